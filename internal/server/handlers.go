package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/scrape"
)

// handleEvents streams broadcaster events over SSE until the client
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub, err := s.deps.Broadcaster.Subscribe(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to subscribe to events")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := sse.WriteJSON(ev.Payload); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleEventsStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.deps.Broadcaster.Stats())
}

// handleGetHoard returns the full hoard document.
func (s *Server) handleGetHoard(w http.ResponseWriter, _ *http.Request) {
	h, err := s.deps.Store.Load()
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, h)
}

type enqueueJobRequest struct {
	HTML string `json:"html" validate:"required"`
	// URL of the page the HTML was captured from. Embedded invisibly in
	// the payload so extraction can recover the posting's address.
	URL string `json:"url,omitempty" validate:"omitempty,url"`
}

// handleEnqueueJob accepts a captured page and adds it to the durable
// queue. The capture is acknowledged as soon as the file is on disk.
func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueJobRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	payload := req.HTML
	if req.URL != "" {
		payload = scrape.EmbedReferenceURL(payload, req.URL)
	}

	jobID, err := s.deps.JobQueue.Add(payload)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobQueue":        s.deps.JobQueue.Status(),
		"generationQueue": s.deps.GenQueue.Status(),
	})
}

type ingestURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// handleIngestURL fetches a posting by URL and enqueues the page as if the
// browser extension had captured it.
func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.deps.Fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}

	payload := scrape.EmbedReferenceURL(result.HTML, req.URL)
	jobID, err := s.deps.JobQueue.Add(payload)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"jobId":     jobID,
		"fromCache": result.FromCache,
	})
}

type noteKeyRequest struct {
	Company  string `json:"company" validate:"required"`
	JobTitle string `json:"jobTitle" validate:"required"`
}

func (s *Server) handleDeleteNutNote(w http.ResponseWriter, r *http.Request) {
	var req noteKeyRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.deps.Store.Delete(req.Company, req.JobTitle); err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type collapseRequest struct {
	Company   string `json:"company" validate:"required"`
	JobTitle  string `json:"jobTitle" validate:"required"`
	Collapsed bool   `json:"collapsed"`
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	var req collapseRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.deps.Store.SetCollapsed(req.Company, req.JobTitle, req.Collapsed); err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

type editVersionRequest struct {
	Company  string `json:"company" validate:"required"`
	JobTitle string `json:"jobTitle" validate:"required"`
	Index    int    `json:"index" validate:"gte=0"`
	Content  string `json:"content" validate:"required"`
}

type deleteVersionRequest struct {
	Company  string `json:"company" validate:"required"`
	JobTitle string `json:"jobTitle" validate:"required"`
	Index    int    `json:"index" validate:"gte=0"`
}

func (s *Server) handleEditResumeVersion(w http.ResponseWriter, r *http.Request) {
	var req editVersionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.deps.Store.EditResumeVersion(req.Company, req.JobTitle, req.Index, req.Content); err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteResumeVersion(w http.ResponseWriter, r *http.Request) {
	var req deleteVersionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.deps.Store.DeleteResumeVersion(req.Company, req.JobTitle, req.Index); err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleEditCoverLetterVersion(w http.ResponseWriter, r *http.Request) {
	var req editVersionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.deps.Store.EditCoverLetterVersion(req.Company, req.JobTitle, req.Index, req.Content); err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteCoverLetterVersion(w http.ResponseWriter, r *http.Request) {
	var req deleteVersionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.deps.Store.DeleteCoverLetterVersion(req.Company, req.JobTitle, req.Index); err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type generateRequest struct {
	Company  string `json:"company" validate:"required"`
	JobTitle string `json:"jobTitle" validate:"required"`
	// Template selects template-driven rendering; zero means free-form.
	Template int `json:"template,omitempty" validate:"gte=0"`
}

// handleGenerateResume runs a generation through the single-flight queue
// and responds once it settles.
func (s *Server) handleGenerateResume(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	_, err := s.deps.GenQueue.Do(r.Context(), func(ctx context.Context) (any, error) {
		if req.Template > 0 {
			return nil, s.deps.Templatized.GenerateResume(ctx, req.Company, req.JobTitle, req.Template)
		}
		return nil, s.deps.Freeform.GenerateResume(ctx, req.Company, req.JobTitle)
	})
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "generated"})
}

func (s *Server) handleGenerateCoverLetter(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	_, err := s.deps.GenQueue.Do(r.Context(), func(ctx context.Context) (any, error) {
		return nil, s.deps.Freeform.GenerateCoverLetter(ctx, req.Company, req.JobTitle)
	})
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "generated"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeAndValidate decodes the JSON body into dst and validates it,
// writing the error response itself on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			s.errorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("invalid field %q", verrs[0].Field()))
		} else {
			s.errorResponse(w, http.StatusBadRequest, "invalid request")
		}
		return false
	}
	return true
}

func (s *Server) domainError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
