package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/services"
	"github.com/diewo77/go-quotes/validation"
	"github.com/rs/zerolog"
)

// QuoteStore is the quote engine as seen by the HTTP layer.
type QuoteStore interface {
	Save(ctx context.Context, ownerID uint, id *uint, in services.QuoteInput) (*services.SaveResult, error)
	Get(ctx context.Context, ownerID, id uint) (*models.Quote, error)
	List(ctx context.Context, ownerID uint, status models.QuoteStatus) ([]models.Quote, error)
	Delete(ctx context.Context, ownerID, id uint) error
	UpdateStatus(ctx context.Context, ownerID, id uint, status models.QuoteStatus) (*models.Quote, error)
	ListVersions(ctx context.Context, ownerID, id uint, limit, offset int) ([]services.VersionSummary, error)
	GetVersion(ctx context.Context, ownerID, id uint, num int) (*models.QuoteVersion, error)
	CompareVersions(ctx context.Context, ownerID, id uint, a, b int) (*services.ComparisonResult, error)
	RestoreVersion(ctx context.Context, ownerID, id uint, target int) (int, error)
}

type QuoteHandler struct {
	store QuoteStore
	log   zerolog.Logger
}

func NewQuoteHandler(store QuoteStore, log zerolog.Logger) *QuoteHandler {
	return &QuoteHandler{store: store, log: log}
}

// Register mounts the quote routes on mux, each wrapped by protect.
func (h *QuoteHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"POST /quotes/save":                         h.Save,
		"GET /quotes/my":                            h.List,
		"GET /quotes/{id}":                          h.Get,
		"DELETE /quotes/{id}":                       h.Delete,
		"PATCH /quotes/{id}/status":                 h.UpdateStatus,
		"GET /quotes/{id}/versions":                 h.ListVersions,
		"GET /quotes/{id}/versions/{num}":           h.GetVersion,
		"GET /quotes/{id}/compare":                  h.Compare,
		"POST /quotes/{id}/versions/{num}/restore": h.Restore,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, protect(fn))
	}
}

type saveRequest struct {
	ID *uint `json:"id"`
	services.QuoteInput
}

type statusRequest struct {
	Status models.QuoteStatus `json:"status"`
}

// Save: POST /quotes/save
func (h *QuoteHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req saveRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", map[string]string{"body": err.Error()})
		return
	}

	res, err := h.store.Save(r.Context(), userID, req.ID, req.QuoteInput)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, map[string]any{
		"success":       true,
		"quoteId":       res.QuoteID,
		"version":       res.Version,
		"changeSummary": res.ChangeSummary,
	})
}

// List: GET /quotes/my?status=
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	quotes, err := h.store.List(r.Context(), userID, models.QuoteStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotes)
}

// Get: GET /quotes/{id}
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.store.Get(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Delete: DELETE /quotes/{id}
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateStatus: PATCH /quotes/{id}/status
func (h *QuoteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", map[string]string{"body": err.Error()})
		return
	}
	q, err := h.store.UpdateStatus(r.Context(), userID, id, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// ListVersions: GET /quotes/{id}/versions?limit=&offset=
func (h *QuoteHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v := validation.Violations{}
	limit := queryInt(r, "limit", 0, v)
	offset := queryInt(r, "offset", 0, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", v)
		return
	}

	versions, err := h.store.ListVersions(r.Context(), userID, id, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, versions)
}

// GetVersion: GET /quotes/{id}/versions/{num}
func (h *QuoteHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	num, ok := pathVersion(w, r)
	if !ok {
		return
	}
	ver, err := h.store.GetVersion(r.Context(), userID, id, num)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ver)
}

// Compare: GET /quotes/{id}/compare?v1=&v2=
func (h *QuoteHandler) Compare(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v := validation.Violations{}
	query := r.URL.Query()
	for _, key := range []string{"v1", "v2"} {
		if !query.Has(key) {
			v[key] = "required"
		}
	}
	a := queryInt(r, "v1", 0, v)
	b := queryInt(r, "v2", 0, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", v)
		return
	}

	res, err := h.store.CompareVersions(r.Context(), userID, id, a, b)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// Restore: POST /quotes/{id}/versions/{num}/restore
func (h *QuoteHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	num, ok := pathVersion(w, r)
	if !ok {
		return
	}
	version, err := h.store.RestoreVersion(r.Context(), userID, id, num)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "version": version})
}

// writeError maps service error kinds to HTTP responses.
func (h *QuoteHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inv *services.InvalidInputError
	switch {
	case errors.As(err, &inv):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", inv.Violations)
	case errors.Is(err, services.ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, services.ErrBusy):
		w.Header().Set("Retry-After", "1")
		httpx.JSONError(w, http.StatusServiceUnavailable, "busy", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.JSONError(w, http.StatusRequestTimeout, "request_cancelled", nil)
	default:
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("quote request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "storage_failure", nil)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}

func pathVersion(w http.ResponseWriter, r *http.Request) (int, bool) {
	num, err := strconv.Atoi(r.PathValue("num"))
	if err != nil || num <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_version", nil)
		return 0, false
	}
	return num, true
}

// queryInt reads an optional integer query parameter, recording a violation
// when it is present but malformed.
func queryInt(r *http.Request, key string, def int, v validation.Violations) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		v[key] = "not_an_integer"
		return def
	}
	return n
}
