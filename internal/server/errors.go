package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	kstat "github.com/illumos/go-kstat"
)

// Error codes.
const (
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeDecodeFailed       = "DECODE_FAILED"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int,
	code, message string, retryable bool, details map[string]any) {

	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	respondJSON(w, statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// writeKstatError maps an error from a kstat.Reader to a response.
// Chain update and open failures are the system's and may go away;
// decode failures are ours and won't.
func (s *Server) writeKstatError(w http.ResponseWriter, r *http.Request, err error) {
	var de *kstat.DecodeError
	var oe *kstat.OpenError
	switch {
	case errors.As(err, &de):
		s.log.Error("kstat decode failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, ErrCodeDecodeFailed, err.Error(), false, de.Context())
	case errors.Is(err, kstat.ErrUpdate), errors.As(err, &oe), errors.Is(err, kstat.ErrClosed):
		s.log.Warn("kstat unavailable", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, err.Error(), true, nil)
	default:
		s.log.Error("kstat request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), true, nil)
	}
}
