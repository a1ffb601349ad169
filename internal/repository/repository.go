package repository

import (
	"context"

	"github.com/utafrali/productsearch/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	// CategoryIDs restricts results to any of the listed categories.
	CategoryIDs []int64
	// Query is a case-insensitive substring matched against name,
	// description, category name and brand.
	Query    string
	Page     int
	PageSize int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a product and sets its ID and timestamps.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its primary key.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// List returns products matching the filter ordered by name, along with
	// the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// ListAfter returns up to limit products with an ID greater than afterID,
	// ordered by ID. Used to stream the catalog in batches.
	ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.Product, error)

	// Update overwrites an existing product and refreshes UpdatedAt.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its primary key.
	Delete(ctx context.Context, id int64) error
}

// CategoryRepository defines the interface for category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}
