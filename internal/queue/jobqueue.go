// Package queue implements the two serialization mechanisms of the
// pipeline: the durable file-backed FIFO for raw listing ingestion and the
// in-memory single-flight queue for artifact generation.
package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/events"
)

const (
	jobFilePrefix = "raw-job-"
	jobFileSuffix = ".txt"
	errorsSubdir  = "errors"

	// headerDelimiter separates the metadata header from the raw payload
	// inside a queue file.
	headerDelimiter = "---"
)

// DefaultPollInterval is how often the worker loop checks for queued files
// when idle.
const DefaultPollInterval = 2 * time.Second

// Processor consumes one raw captured job listing. A returned error leaves
// the queue file in place for a later retry.
type Processor interface {
	Process(ctx context.Context, rawJobListing string) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, rawJobListing string) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, rawJobListing string) error {
	return f(ctx, rawJobListing)
}

// QueuedJobInfo describes one pending queue file.
type QueuedJobInfo struct {
	Filename string    `json:"filename"`
	Created  time.Time `json:"created"`
	Size     int64     `json:"size"`
}

// Status is a snapshot of the queue for the status endpoint.
type Status struct {
	Running    bool            `json:"running"`
	QueuedJobs int             `json:"queuedJobs"`
	Jobs       []QueuedJobInfo `json:"jobs"`
}

// JobQueue is a durable FIFO of raw job captures. Each pending job is one
// file in the queue directory; the file's existence is the sole marker of
// "pending". A single worker loop processes the oldest file at a time and
// deletes it only after successful processing, giving at-least-once
// semantics across crashes and restarts. A permanently failing file is
// retried on every poll cycle until removed by hand.
type JobQueue struct {
	dir          string
	pollInterval time.Duration
	processor    Processor
	broadcaster  *events.Broadcaster
	logger       *zap.Logger

	seq     atomic.Uint64
	running atomic.Bool
}

// NewJobQueue creates the queue directory if needed and seeds the filename
// sequence counter past any files already present, so ordering survives a
// restart.
func NewJobQueue(dir string, pollInterval time.Duration, processor Processor, broadcaster *events.Broadcaster, logger *zap.Logger) (*JobQueue, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if broadcaster == nil {
		broadcaster = events.NewBroadcaster(nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory %s: %w", dir, err)
	}

	q := &JobQueue{
		dir:          dir,
		pollInterval: pollInterval,
		processor:    processor,
		broadcaster:  broadcaster,
		logger:       logger,
	}

	infos, err := q.listJobFiles()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if seq, ok := sequenceFromFilename(info.Filename); ok && seq > q.seq.Load() {
			q.seq.Store(seq)
		}
	}
	return q, nil
}

// Add durably enqueues a raw capture and returns the generated job id. The
// filename carries a zero-padded monotonic sequence number, so queue order
// is the lexicographic filename order and never depends on filesystem mtime
// resolution. Safe to call while the worker loop is running.
func (q *JobQueue) Add(rawJobListing string) (string, error) {
	jobID := uuid.New().String()
	seq := q.seq.Add(1)
	filename := fmt.Sprintf("%s%09d-%s%s", jobFilePrefix, seq, jobID, jobFileSuffix)

	content := fmt.Sprintf("# Stashboard queue job\n# Created: %s\n# JobId: %s\n%s\n%s",
		time.Now().UTC().Format(time.RFC3339), jobID, headerDelimiter, rawJobListing)

	if err := os.WriteFile(filepath.Join(q.dir, filename), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to queue job: %w", err)
	}

	q.logger.Info("job queued", zap.String("jobId", jobID), zap.String("filename", filename))
	q.broadcaster.JobQueued(jobID, filename)
	return jobID, nil
}

// Run executes the worker loop until ctx is cancelled. One queue file is
// processed per cycle; an in-flight job always finishes before the loop
// observes cancellation.
func (q *JobQueue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return fmt.Errorf("job queue worker already running")
	}
	defer q.running.Store(false)

	q.logger.Info("job queue worker started", zap.String("dir", q.dir), zap.Duration("pollInterval", q.pollInterval))

	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		q.processNext(ctx)
		select {
		case <-ctx.Done():
			q.logger.Info("job queue worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Running reports whether the worker loop is active.
func (q *JobQueue) Running() bool {
	return q.running.Load()
}

// Status returns a snapshot of the pending queue files.
func (q *JobQueue) Status() Status {
	infos, err := q.listJobFiles()
	if err != nil {
		q.logger.Error("failed to read queue directory", zap.Error(err))
		infos = nil
	}
	return Status{
		Running:    q.running.Load(),
		QueuedJobs: len(infos),
		Jobs:       infos,
	}
}

// processNext handles the oldest queued file, if any. Processing errors are
// swallowed into a job-failed event; the file stays queued so the job is
// retried on the next cycle.
func (q *JobQueue) processNext(ctx context.Context) {
	infos, err := q.listJobFiles()
	if err != nil {
		q.logger.Error("failed to read queue directory", zap.Error(err))
		return
	}
	if len(infos) == 0 {
		return
	}

	oldest := infos[0]
	jobPath := filepath.Join(q.dir, oldest.Filename)
	jobID := jobIDFromFilename(oldest.Filename)

	content, err := os.ReadFile(jobPath)
	if err != nil {
		q.logger.Error("failed to read queue file", zap.String("filename", oldest.Filename), zap.Error(err))
		return
	}
	payload := extractPayload(string(content))

	q.logger.Info("processing job", zap.String("filename", oldest.Filename))
	q.broadcaster.JobStarted(jobID, oldest.Filename)

	if err := q.processor.Process(ctx, payload); err != nil {
		q.logger.Warn("job processing failed, leaving file queued",
			zap.String("filename", oldest.Filename), zap.Error(err))
		q.broadcaster.JobFailed(jobID, oldest.Filename, err)
		q.recordFailure(oldest.Filename, string(content), err)
		return
	}

	if err := os.Remove(jobPath); err != nil {
		q.logger.Error("failed to remove completed queue file",
			zap.String("filename", oldest.Filename), zap.Error(err))
		return
	}
	q.logger.Info("job completed", zap.String("filename", oldest.Filename))
	q.broadcaster.JobCompleted(jobID, oldest.Filename)
}

// recordFailure keeps a one-time debugging copy of a failing queue file
// under errors/. The original stays in the queue for retry.
func (q *JobQueue) recordFailure(filename, content string, procErr error) {
	errDir := filepath.Join(q.dir, errorsSubdir)
	if err := os.MkdirAll(errDir, 0o755); err != nil {
		q.logger.Error("failed to create errors directory", zap.Error(err))
		return
	}
	errPath := filepath.Join(errDir, filename)
	if _, err := os.Stat(errPath); err == nil {
		return // already recorded on an earlier failed attempt
	}
	annotated := fmt.Sprintf("# Error: %v\n# ErrorTime: %s\n%s\n%s",
		procErr, time.Now().UTC().Format(time.RFC3339), headerDelimiter, content)
	if err := os.WriteFile(errPath, []byte(annotated), 0o644); err != nil {
		q.logger.Error("failed to write error copy", zap.Error(err))
	}
}

// listJobFiles returns pending queue files sorted oldest-first by filename.
func (q *JobQueue) listJobFiles() ([]QueuedJobInfo, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, err
	}
	infos := make([]QueuedJobInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, jobFilePrefix) || !strings.HasSuffix(name, jobFileSuffix) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, QueuedJobInfo{Filename: name, Created: fi.ModTime(), Size: fi.Size()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })
	return infos, nil
}

// extractPayload splits a queue file at the header delimiter. A file with no
// delimiter is treated as all payload rather than rejected.
func extractPayload(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == headerDelimiter {
			return strings.Join(lines[i+1:], "\n")
		}
	}
	return content
}

// sequenceFromFilename parses the zero-padded sequence number out of a queue
// filename.
func sequenceFromFilename(filename string) (uint64, bool) {
	rest := strings.TrimPrefix(filename, jobFilePrefix)
	idx := strings.IndexByte(rest, '-')
	if idx <= 0 {
		return 0, false
	}
	var seq uint64
	if _, err := fmt.Sscanf(rest[:idx], "%d", &seq); err != nil {
		return 0, false
	}
	return seq, true
}

// jobIDFromFilename recovers the job id embedded in a queue filename.
func jobIDFromFilename(filename string) string {
	rest := strings.TrimPrefix(filename, jobFilePrefix)
	rest = strings.TrimSuffix(rest, jobFileSuffix)
	if idx := strings.IndexByte(rest, '-'); idx >= 0 {
		return rest[idx+1:]
	}
	return rest
}
