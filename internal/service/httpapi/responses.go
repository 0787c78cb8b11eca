package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

type errorResponse struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// writeError — единственное место, где ошибка домена превращается в HTTP-статус.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Errors:  map[string]string{validationErr.Field: validationErr.Reason},
		})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
		})
	case errors.Is(err, domain.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Status:  http.StatusNotFound,
			Message: "Item not found",
		})
	default:
		h.logger.WithError(err).WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
}
