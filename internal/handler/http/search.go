package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/pkg/httputil"
)

// Searcher answers free-text product searches.
type Searcher interface {
	Search(ctx context.Context, raw string, page, pageSize int) (*domain.SearchResult, error)
}

// SearchHandler handles HTTP requests for the search endpoint.
type SearchHandler struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(searcher Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		logger:   logger,
	}
}

// Search handles GET /api/v1/search?q=&page=&page_size=
//
// q may carry "under N", "above N" and "in <brand>" filters. A missing q is
// a 400; a query matching nothing answers with recommendations instead.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	result, err := h.searcher.Search(r.Context(), query.Get("q"), page, pageSize)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
