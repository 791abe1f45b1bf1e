// Package handler provides the HTTP and WebSocket handlers of the admin API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/catalog"
	"github.com/tanhuynh200412/catalog-admin/internal/model"
)

// Catalog is the part of *catalog.Catalog the handlers use.
type Catalog interface {
	Ready() bool
	Collection(name string) (catalog.Listing, error)
	Editor(operator, name string) (catalog.Editor, error)
	OnChange(fn catalog.ChangeFunc)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// CollectionResponse is the body of a collection listing. Item listings
// also carry the category records for the category picker.
type CollectionResponse struct {
	catalog.ViewState
	Categories any `json:"categories,omitempty"`
}

// FieldUpdate is the body of a draft field update. Value may be any JSON
// scalar; strings are taken verbatim, other scalars by their JSON text.
type FieldUpdate struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// TagRequest is the body of a tag append.
type TagRequest struct {
	Value string `json:"value"`
}

// SubmitResponse reports a record handed to the store.
type SubmitResponse struct {
	Collection string            `json:"collection"`
	Key        model.Key         `json:"key"`
	Flow       catalog.FlowState `json:"flow"`
}

// DeleteResponse reports a delete handed to the store.
type DeleteResponse struct {
	Collection string    `json:"collection"`
	Key        model.Key `json:"key"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error envelope. fields is set for rejected drafts.
func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message string, fields map[string]string) {
	resp := model.NewErrorResponse[*model.ErrorResponse](message)
	resp.Data = &model.ErrorResponse{
		Code:    status,
		Message: message,
		Fields:  fields,
	}
	writeJSON(w, logger, status, resp)
}

// handleCatalogError maps catalog errors onto HTTP responses.
func handleCatalogError(w http.ResponseWriter, logger *zap.Logger, err error, operation string) {
	var (
		validationErr *catalog.ValidationError
		referenceErr  *catalog.ReferentialError
		writeErr      *catalog.WriteError
		deleteErr     *catalog.DeleteError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, logger, http.StatusBadRequest, err.Error(), validationErr.Fields)
	case errors.As(err, &referenceErr):
		writeError(w, logger, http.StatusUnprocessableEntity, err.Error(),
			map[string]string{catalog.FieldCategoryID: "does not exist"})
	case errors.Is(err, catalog.ErrUnknownCollection):
		writeError(w, logger, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, catalog.ErrUnknownField),
		errors.Is(err, catalog.ErrReadOnlyField),
		errors.Is(err, catalog.ErrInvalidFieldValue):
		writeError(w, logger, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, catalog.ErrSubmitInFlight), errors.Is(err, catalog.ErrNoDraft):
		writeError(w, logger, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, catalog.ErrConfirmationRequired):
		writeError(w, logger, http.StatusPreconditionRequired, err.Error(), nil)
	case errors.Is(err, catalog.ErrViewLoading), errors.Is(err, catalog.ErrViewUnavailable):
		writeError(w, logger, http.StatusServiceUnavailable, err.Error(), nil)
	case errors.As(err, &writeErr), errors.As(err, &deleteErr):
		writeError(w, logger, http.StatusBadGateway, err.Error(), nil)
	default:
		logger.Error("catalog operation failed", zap.String("operation", operation), zap.Error(err))
		writeError(w, logger, http.StatusInternalServerError, "internal server error", nil)
	}
}

var errNotScalar = errors.New("value must be a JSON scalar")
