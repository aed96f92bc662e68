package server

import (
	"errors"
	"io"
	"net/http"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/jonathan/job-validator/internal/pipeline"
	"github.com/jonathan/job-validator/internal/server/middleware"
	"github.com/jonathan/job-validator/internal/types"
)

// maxBodyBytes caps request bodies; a full batch of long URLs fits easily.
const maxBodyBytes = 256 << 10

// ErrorReply is the body of every non-2xx JSON response.
type ErrorReply struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// RateLimitReply is the body of a 429 response.
type RateLimitReply struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	RetryAfter int    `json:"retry_after"`
}

// BatchReply is the body of a batch validation response.
type BatchReply struct {
	Results []*types.UnifiedValidationResult `json:"results"`
	Total   int                              `json:"total"`
	Valid   int                              `json:"valid"`
}

// handleValidate runs the pipeline for one URL. Validation verdicts are
// always 200; only malformed requests fail.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, validationError(err))
		return
	}

	res := s.validator.Validate(r.Context(), req.URL)
	s.logger.Debug("validated",
		zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
		zap.String("subject", subjectOf(r)),
		zap.String("url", req.URL),
		zap.Bool("valid", res.IsValid),
	)
	s.jsonResponse(w, r, http.StatusOK, res)
}

// handleValidateBatch runs the pipeline for up to types.MaxBatchSize URLs.
func (s *Server) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	var req types.BatchRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, validationError(err))
		return
	}

	results := s.validator.ValidateBatch(r.Context(), req.URLs)
	reply := BatchReply{Results: results, Total: len(results)}
	for _, res := range results {
		if res != nil && res.IsValid {
			reply.Valid++
		}
	}
	s.jsonResponse(w, r, http.StatusOK, reply)
}

// handleValidateStream runs the pipeline for one URL and streams a progress
// event per tier, then the full result as the complete event.
func (s *Server) handleValidateStream(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, validationError(err))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	ctx := pipeline.WithProgress(r.Context(), func(ev pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", ev); err != nil {
			s.logger.Debug("dropping progress event", zap.String("step", ev.Step), zap.Error(err))
		}
	})

	res := s.validator.Validate(ctx, req.URL)
	if r.Context().Err() != nil {
		return
	}
	sse.WriteComplete(res)
}

// handleHealth reports the orchestrator snapshot; unhealthy maps to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.validator.Health()
	status := http.StatusOK
	if health.Status == pipeline.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.jsonResponse(w, r, status, health)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(body, v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is empty"}
		}
		return &ErrBadRequest{Err: err}
	}
	return nil
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// errorResponse writes an error JSON response with the status HTTPStatus picks.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.jsonResponse(w, r, status, ErrorReply{
		Error:     err.Error(),
		RequestID: chiMiddleware.GetReqID(r.Context()),
	})
}

func subjectOf(r *http.Request) string {
	subject, err := middleware.GetSubject(r)
	if err != nil {
		return ""
	}
	return subject
}
