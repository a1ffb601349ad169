package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/productsearch/internal/service"
	"github.com/utafrali/productsearch/pkg/httputil"
)

// Reindexer rebuilds the document index from the catalog.
type Reindexer interface {
	Reindex(ctx context.Context, recreate bool) (*service.ReindexResult, error)
}

// AdminHandler handles maintenance endpoints.
type AdminHandler struct {
	reindexer Reindexer
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(reindexer Reindexer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		reindexer: reindexer,
		logger:    logger,
	}
}

// Reindex handles POST /api/v1/admin/reindex?recreate=true
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	recreate := false
	if v := r.URL.Query().Get("recreate"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", "recreate must be a boolean")
			return
		}
		recreate = parsed
	}

	result, err := h.reindexer.Reindex(r.Context(), recreate)
	if err != nil {
		if errors.Is(err, service.ErrRecreateUnsupported) {
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", err.Error())
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
