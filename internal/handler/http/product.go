package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/repository"
	"github.com/utafrali/productsearch/internal/service"
	"github.com/utafrali/productsearch/pkg/httputil"
	"github.com/utafrali/productsearch/pkg/pagination"
	"github.com/utafrali/productsearch/pkg/validator"
)

// Catalog is the product and category surface the handlers need.
type Catalog interface {
	CreateProduct(ctx context.Context, input *service.CreateProductInput) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, pagination.Params, int, error)
	UpdateProduct(ctx context.Context, id int64, input *service.UpdateProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
}

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(catalog Catalog, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name           string          `json:"name" validate:"required,min=1,max=255"`
	Slug           string          `json:"slug" validate:"omitempty,max=255"`
	Description    *string         `json:"description"`
	Brand          *string         `json:"brand" validate:"omitempty,max=255"`
	CategoryID     int64           `json:"category_id" validate:"required,gt=0"`
	CategoryName   string          `json:"category_name" validate:"omitempty,oneof=electronics fashion home_appliances books others"`
	AvailableStock int             `json:"available_stock" validate:"gte=0"`
	MarkedPrice    decimal.Decimal `json:"marked_price" validate:"gte=0,cents"`
	DiscountPrice  decimal.Decimal `json:"discount_price" validate:"gte=0,cents"`
	IsActive       *bool           `json:"is_active"`
}

// UpdateProductRequest is the JSON request body for a partial product update.
type UpdateProductRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Slug           *string          `json:"slug" validate:"omitempty,max=255"`
	Description    *string          `json:"description"`
	Brand          *string          `json:"brand" validate:"omitempty,max=255"`
	CategoryID     *int64           `json:"category_id" validate:"omitempty,gt=0"`
	CategoryName   *string          `json:"category_name" validate:"omitempty,oneof=electronics fashion home_appliances books others"`
	AvailableStock *int             `json:"available_stock" validate:"omitempty,gte=0"`
	MarkedPrice    *decimal.Decimal `json:"marked_price" validate:"omitempty,gte=0,cents"`
	DiscountPrice  *decimal.Decimal `json:"discount_price" validate:"omitempty,gte=0,cents"`
	IsActive       *bool            `json:"is_active"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products?category_id=1,2&query=&page=&page_size=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.ProductFilter{
		Query: strings.TrimSpace(q.Get("query")),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	if v := q.Get("category_id"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				httputil.WriteBadRequest(w, "INVALID_PARAMETER", "category_id must be a comma-separated list of positive integers")
				return
			}
			filter.CategoryIDs = append(filter.CategoryIDs, id)
		}
	}

	products, params, total, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: pagination.NewResult(products, total, params),
	})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), &service.CreateProductInput{
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		Brand:          req.Brand,
		CategoryID:     req.CategoryID,
		CategoryName:   req.CategoryName,
		AvailableStock: req.AvailableStock,
		MarkedPrice:    req.MarkedPrice,
		DiscountPrice:  req.DiscountPrice,
		IsActive:       req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, &service.UpdateProductInput{
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		Brand:          req.Brand,
		CategoryID:     req.CategoryID,
		CategoryName:   req.CategoryName,
		AvailableStock: req.AvailableStock,
		MarkedPrice:    req.MarkedPrice,
		DiscountPrice:  req.DiscountPrice,
		IsActive:       req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
