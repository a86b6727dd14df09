package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/registry"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindInvalidInput:    http.StatusBadRequest,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindTransientFetch:  http.StatusBadGateway,
	domain.KindDataUnavailable: http.StatusBadGateway,
	domain.KindNoValidData:     http.StatusUnprocessableEntity,
	domain.KindNoYield:         http.StatusUnprocessableEntity,
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

// writeAssessmentError maps an assessment failure to its HTTP status and
// public message.
func (s *Server) writeAssessmentError(w http.ResponseWriter, r *http.Request, err error) {
	status, ok := kindStatus[domain.KindOf(err)]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg := "internal error"
	var ae *domain.AssessmentError
	if errors.As(err, &ae) && status != http.StatusInternalServerError {
		msg = ae.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("assessment failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, msg)
}

func (s *Server) writeRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, registry.ErrNotFound.Error())
	case errors.Is(err, registry.ErrConflict):
		writeError(w, http.StatusConflict, registry.ErrConflict.Error())
	case errors.Is(err, registry.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, registry.ErrInvalidAddress.Error())
	case errors.Is(err, registry.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("user registry failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
