package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/tagimport/internal/importer"
	"github.com/JonMunkholm/tagimport/internal/logging"
	"github.com/JonMunkholm/tagimport/internal/store"
	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

// errBadRequest marks client mistakes that have no sentinel of their own.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the JSON body of every error. Code is the stable
// machine-readable part; Message and Action are for people.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err with request context and writes its user message.
// A status of zero derives one from err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := importer.MapError(err)

	logger := logging.FromContext(r.Context(), s.logger)
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	resp := ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
	if errors.Is(err, errBadRequest) {
		resp = ErrorResponse{Error: err.Error(), Message: err.Error(), Code: "REQ001"}
	}
	s.writeJSONStatus(w, status, resp)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, importer.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, tagcsv.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tagcsv.ErrUnreadableFile), errors.Is(err, tagcsv.ErrEmptyFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrBusy), errors.Is(err, importer.ErrNoStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
