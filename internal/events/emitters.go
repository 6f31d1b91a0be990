package events

import "fmt"

// Event types recognized by subscribers. The UI switches on these values.
const (
	TypeJobQueued              = "job-queued"
	TypeJobStarted             = "job-started"
	TypeJobCompleted           = "job-completed"
	TypeJobFailed              = "job-failed"
	TypeJobProcessingFailed    = "job-processing-failed"
	TypeLLMProcessingStarted   = "llm-processing-started"
	TypeLLMProcessingCompleted = "llm-processing-completed"
	TypeGenerationFailed       = "generation-failed"
	TypeHoardUpdated           = "hoard-updated"
	TypeSystemStatus           = "system-status"
)

// JobQueued announces that a capture was durably written to the queue.
func (b *Broadcaster) JobQueued(jobID, filename string) {
	b.Broadcast(TypeJobQueued, map[string]any{
		"message":  fmt.Sprintf("Job queued: %s", filename),
		"jobId":    jobID,
		"filename": filename,
	})
}

// JobStarted announces that the worker loop picked up a queue file.
func (b *Broadcaster) JobStarted(jobID, filename string) {
	b.Broadcast(TypeJobStarted, map[string]any{
		"message":  fmt.Sprintf("Processing job: %s", filename),
		"jobId":    jobID,
		"filename": filename,
	})
}

// JobCompleted announces that a queue file was processed and removed.
func (b *Broadcaster) JobCompleted(jobID, filename string) {
	b.Broadcast(TypeJobCompleted, map[string]any{
		"message":  fmt.Sprintf("Job completed: %s", filename),
		"jobId":    jobID,
		"filename": filename,
	})
}

// JobFailed announces a processing failure. The queue file stays in place
// and the job is retried on a later poll cycle.
func (b *Broadcaster) JobFailed(jobID, filename string, err error) {
	b.Broadcast(TypeJobFailed, map[string]any{
		"message":  fmt.Sprintf("Job failed: %s - %v", filename, err),
		"jobId":    jobID,
		"filename": filename,
		"error":    err.Error(),
	})
}

// LLMProcessingStarted marks the beginning of a model call.
func (b *Broadcaster) LLMProcessingStarted(step string) {
	b.Broadcast(TypeLLMProcessingStarted, map[string]any{
		"message": fmt.Sprintf("%s - processing with LLM...", step),
		"step":    step,
		"status":  "started",
	})
}

// LLMProcessingCompleted marks the end of a model call with a short result
// preview.
func (b *Broadcaster) LLMProcessingCompleted(step, result string) {
	preview := result
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	b.Broadcast(TypeLLMProcessingCompleted, map[string]any{
		"message":      fmt.Sprintf("%s - completed (%d chars)", step, len(result)),
		"step":         step,
		"status":       "completed",
		"preview":      preview,
		"resultLength": len(result),
	})
}

// HoardUpdated signals that the hoard document changed on disk. Subscribers
// re-fetch the hoard rather than trusting event payloads.
func (b *Broadcaster) HoardUpdated(listingCount int) {
	b.Broadcast(TypeHoardUpdated, map[string]any{
		"message":      "Hoard updated",
		"listingCount": listingCount,
	})
}

// SystemStatus reports a coarse service state change.
func (b *Broadcaster) SystemStatus(status, detail string) {
	b.Broadcast(TypeSystemStatus, map[string]any{
		"message": fmt.Sprintf("System: %s", detail),
		"status":  status,
		"details": detail,
	})
}
