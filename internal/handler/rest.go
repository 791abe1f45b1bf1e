package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/auth"
	"github.com/tanhuynh200412/catalog-admin/internal/catalog"
	"github.com/tanhuynh200412/catalog-admin/internal/model"
)

// Version is the application version.
const Version = "1.0.0"

// ConfirmDeleteHeader must be "true" on delete requests.
const ConfirmDeleteHeader = "X-Confirm-Delete"

// maxBodyBytes bounds draft request bodies.
const maxBodyBytes = 1 << 16

// RESTHandler serves the admin API over the catalog.
type RESTHandler struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(c Catalog, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		catalog: c,
		logger:  logger,
	}
}

// RegisterRoutes registers the admin API routes with the router. Draft
// routes are registered before the record routes so that "draft" is never
// taken for a record key.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)

	const base = "/api/v1/{collection}"
	router.HandleFunc(base, h.ListRecords).Methods(http.MethodGet)
	router.HandleFunc(base+"/draft", h.GetDraft).Methods(http.MethodGet)
	router.HandleFunc(base+"/draft", h.StartDraft).Methods(http.MethodPost)
	router.HandleFunc(base+"/draft", h.UpdateDraftField).Methods(http.MethodPatch)
	router.HandleFunc(base+"/draft", h.CancelDraft).Methods(http.MethodDelete)
	router.HandleFunc(base+"/draft/submit", h.SubmitDraft).Methods(http.MethodPost)
	router.HandleFunc(base+"/draft/tags/{list}", h.AddTag).Methods(http.MethodPost)
	router.HandleFunc(base+"/draft/tags/{list}/{index:[0-9]+}", h.RemoveTag).Methods(http.MethodDelete)
	router.HandleFunc(base+"/{id}", h.DeleteRecord).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(HealthResponse{
		Status:  "healthy",
		Version: Version,
	}))
}

// ReadyCheck handles GET /ready requests. The service is ready once both
// live views have received their first snapshot.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	if !h.catalog.Ready() {
		writeJSON(w, h.logger, http.StatusServiceUnavailable, model.APIResponse[ReadyResponse]{
			Data:  ReadyResponse{Status: "loading"},
			Error: "live views are still loading",
		})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListRecords handles GET /api/v1/{collection} requests.
func (h *RESTHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["collection"]

	listing, err := h.catalog.Collection(name)
	if err != nil {
		handleCatalogError(w, h.logger, err, "list records")
		return
	}

	resp := CollectionResponse{ViewState: listing.State()}
	if name == catalog.CollectionItems {
		categories, err := h.catalog.Collection(catalog.CollectionCategories)
		if err != nil {
			handleCatalogError(w, h.logger, err, "list categories")
			return
		}
		resp.Categories = categories.State().Records
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(resp))
}

// GetDraft handles GET /api/v1/{collection}/draft requests.
func (h *RESTHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editor(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(ed.State()))
}

// StartDraft handles POST /api/v1/{collection}/draft requests.
func (h *RESTHandler) StartDraft(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editor(w, r)
	if !ok {
		return
	}

	state, err := ed.StartCreate()
	if err != nil {
		handleCatalogError(w, h.logger, err, "start draft")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(state))
}

// UpdateDraftField handles PATCH /api/v1/{collection}/draft requests.
func (h *RESTHandler) UpdateDraftField(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editor(w, r)
	if !ok {
		return
	}

	var input FieldUpdate
	if !h.decode(w, r, &input) {
		return
	}
	value, err := scalarText(input.Value)
	if err != nil || input.Field == "" {
		writeError(w, h.logger, http.StatusBadRequest, "field and scalar value are required", nil)
		return
	}

	state, err := ed.UpdateField(input.Field, value)
	if err != nil {
		handleCatalogError(w, h.logger, err, "update draft field")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(state))
}

// CancelDraft handles DELETE /api/v1/{collection}/draft requests.
func (h *RESTHandler) CancelDraft(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editor(w, r)
	if !ok {
		return
	}

	state, err := ed.Cancel()
	if err != nil {
		handleCatalogError(w, h.logger, err, "cancel draft")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(state))
}

// AddTag handles POST /api/v1/{collection}/draft/tags/{list} requests.
func (h *RESTHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editor(w, r)
	if !ok {
		return
	}

	var input TagRequest
	if !h.decode(w, r, &input) {
		return
	}

	state, err := ed.AddTag(mux.Vars(r)["list"], input.Value)
	if err != nil {
		handleCatalogError(w, h.logger, err, "add tag")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(state))
}

// RemoveTag handles DELETE /api/v1/{collection}/draft/tags/{list}/{index}
// requests.
func (h *RESTHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editor(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid tag index", nil)
		return
	}

	state, err := ed.RemoveTag(vars["list"], index)
	if err != nil {
		handleCatalogError(w, h.logger, err, "remove tag")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(state))
}

// SubmitDraft handles POST /api/v1/{collection}/draft/submit requests.
func (h *RESTHandler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editor(w, r)
	if !ok {
		return
	}

	key, err := ed.Submit(r.Context())
	if err != nil {
		handleCatalogError(w, h.logger, err, "submit draft")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, model.NewSuccessResponse(SubmitResponse{
		Collection: mux.Vars(r)["collection"],
		Key:        key,
		Flow:       ed.State(),
	}))
}

// DeleteRecord handles DELETE /api/v1/{collection}/{id} requests.
func (h *RESTHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	listing, err := h.catalog.Collection(vars["collection"])
	if err != nil {
		handleCatalogError(w, h.logger, err, "delete record")
		return
	}

	confirmed, _ := strconv.ParseBool(r.Header.Get(ConfirmDeleteHeader))
	key := model.Key(vars["id"])

	if err := listing.RequestDelete(r.Context(), key, confirmed); err != nil {
		handleCatalogError(w, h.logger, err, "delete record")
		return
	}

	writeJSON(w, h.logger, http.StatusAccepted, model.NewSuccessResponse(DeleteResponse{
		Collection: listing.Name(),
		Key:        key,
	}))
}

// editor resolves the creation flow of the requesting operator, writing the
// error response itself when the collection is unknown.
func (h *RESTHandler) editor(w http.ResponseWriter, r *http.Request) (catalog.Editor, bool) {
	ed, err := h.catalog.Editor(auth.Operator(r.Context()), mux.Vars(r)["collection"])
	if err != nil {
		handleCatalogError(w, h.logger, err, "resolve draft")
		return nil, false
	}
	return ed, true
}

func (h *RESTHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

// scalarText renders a JSON scalar as draft input text. Null becomes the
// empty string; objects and arrays are rejected.
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", errNotScalar
	default:
		return string(raw), nil
	}
}
