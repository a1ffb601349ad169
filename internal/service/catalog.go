package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/repository"
	apperrors "github.com/utafrali/productsearch/pkg/errors"
	"github.com/utafrali/productsearch/pkg/pagination"
	"github.com/utafrali/productsearch/pkg/slug"
)

// IndexSync is notified after every committed catalog write. Implementations
// must not fail the write: errors are theirs to log.
type IndexSync interface {
	OnCreate(ctx context.Context, p *domain.Product)
	OnUpdate(ctx context.Context, p *domain.Product)
	OnDelete(ctx context.Context, productID int64)
}

// CatalogService implements product and category operations.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	sync       IndexSync
	limits     pagination.Limits
	logger     *slog.Logger
}

// NewCatalogService creates a catalog service. sync may be nil, in which case
// nothing is indexed.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	sync IndexSync,
	limits pagination.Limits,
	logger *slog.Logger,
) *CatalogService {
	if sync == nil {
		sync = noopSync{}
	}
	return &CatalogService{
		products:   products,
		categories: categories,
		sync:       sync,
		limits:     limits,
		logger:     logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name           string
	Slug           string
	Description    *string
	Brand          *string
	CategoryID     int64
	CategoryName   string
	AvailableStock int
	MarkedPrice    decimal.Decimal
	DiscountPrice  decimal.Decimal
	IsActive       *bool
}

// UpdateProductInput holds a partial product update. Nil fields are left
// unchanged.
type UpdateProductInput struct {
	Name           *string
	Slug           *string
	Description    *string
	Brand          *string
	CategoryID     *int64
	CategoryName   *string
	AvailableStock *int
	MarkedPrice    *decimal.Decimal
	DiscountPrice  *decimal.Decimal
	IsActive       *bool
}

// CreateProduct validates and stores a product, then hands it to the index
// sync.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	product := &domain.Product{
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Brand:          input.Brand,
		CategoryID:     input.CategoryID,
		CategoryName:   input.CategoryName,
		AvailableStock: input.AvailableStock,
		MarkedPrice:    input.MarkedPrice,
		DiscountPrice:  input.DiscountPrice,
		IsActive:       true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.Slug = slugFor(input.Slug, product.Name)

	if err := s.prepare(ctx, product); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.sync.OnCreate(ctx, product)

	s.logger.InfoContext(ctx, "product created",
		slog.Int64("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered page of products ordered by name.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, pagination.Params, int, error) {
	params := pagination.New(filter.Page, filter.PageSize, s.limits)
	if err := params.Err(); err != nil {
		return nil, params, 0, err
	}
	filter.Page = params.Page
	filter.PageSize = params.PageSize

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, params, 0, fmt.Errorf("list products: %w", err)
	}
	return products, params, total, nil
}

// UpdateProduct applies a partial update and re-syncs the document.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		product.Slug = slugFor(*input.Slug, product.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	categoryChanged := false
	if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
		product.CategoryID = *input.CategoryID
		categoryChanged = true
	}
	if input.CategoryName != nil {
		product.CategoryName = *input.CategoryName
	} else if categoryChanged {
		product.CategoryName = ""
	}
	if input.AvailableStock != nil {
		product.AvailableStock = *input.AvailableStock
	}
	if input.MarkedPrice != nil {
		product.MarkedPrice = *input.MarkedPrice
	}
	if input.DiscountPrice != nil {
		product.DiscountPrice = *input.DiscountPrice
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.prepare(ctx, product); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.sync.OnUpdate(ctx, product)

	s.logger.InfoContext(ctx, "product updated",
		slog.Int64("product_id", product.ID),
	)

	return product, nil
}

// DeleteProduct removes a product and its document.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.sync.OnDelete(ctx, id)

	s.logger.InfoContext(ctx, "product deleted",
		slog.Int64("product_id", id),
	)

	return nil
}

// ListCategories returns every category.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory stores a category. The name must be one of the known
// category names.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !domain.IsValidCategoryName(name) {
		return nil, invalidCategoryName(name)
	}

	category := &domain.Category{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.Int64("category_id", category.ID),
		slog.String("category_name", category.Name),
	)

	return category, nil
}

// prepare validates p and fills CategoryName from the referenced category
// when it is empty.
func (s *CatalogService) prepare(ctx context.Context, p *domain.Product) error {
	if p.Name == "" {
		return apperrors.InvalidInput("product name is required")
	}
	if p.AvailableStock < 0 {
		return apperrors.InvalidInput("available stock must not be negative")
	}
	if p.MarkedPrice.IsNegative() || p.DiscountPrice.IsNegative() {
		return apperrors.InvalidInput("prices must not be negative")
	}

	category, err := s.categories.GetByID(ctx, p.CategoryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput(fmt.Sprintf("category %d does not exist", p.CategoryID))
		}
		return fmt.Errorf("get category: %w", err)
	}

	if p.CategoryName == "" {
		p.CategoryName = category.Name
		if !domain.IsValidCategoryName(p.CategoryName) {
			p.CategoryName = domain.DefaultCategoryName
		}
	}
	if !domain.IsValidCategoryName(p.CategoryName) {
		return invalidCategoryName(p.CategoryName)
	}

	p.MarkedPrice = p.MarkedPrice.Round(2)
	p.DiscountPrice = p.DiscountPrice.Round(2)
	return nil
}

func invalidCategoryName(name string) error {
	return apperrors.InvalidInput(fmt.Sprintf("invalid category name %q, must be one of: %s",
		name, strings.Join(domain.ValidCategoryNames(), ", ")))
}

// slugFor returns explicit when set, otherwise a slug generated from name.
// An empty result is stored as NULL.
func slugFor(explicit, name string) *string {
	s := slug.Generate(explicit)
	if s == "" {
		s = slug.Generate(name)
	}
	if s == "" {
		return nil
	}
	return &s
}

type noopSync struct{}

func (noopSync) OnCreate(context.Context, *domain.Product) {}
func (noopSync) OnUpdate(context.Context, *domain.Product) {}
func (noopSync) OnDelete(context.Context, int64)           {}
