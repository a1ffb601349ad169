package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Category names a product may carry.
const (
	CategoryElectronics    = "electronics"
	CategoryFashion        = "fashion"
	CategoryHomeAppliances = "home_appliances"
	CategoryBooks          = "books"
	CategoryOthers         = "others"
)

// DefaultCategoryName is used when a product's category has no valid name.
const DefaultCategoryName = CategoryFashion

// ValidCategoryNames returns the category names the catalog accepts.
func ValidCategoryNames() []string {
	return []string{CategoryElectronics, CategoryFashion, CategoryHomeAppliances, CategoryBooks, CategoryOthers}
}

// IsValidCategoryName reports whether name is one of ValidCategoryNames.
func IsValidCategoryName(name string) bool {
	for _, c := range ValidCategoryNames() {
		if c == name {
			return true
		}
	}
	return false
}

// Category is a catalog category.
type Category struct {
	ID             int64     `json:"category_id"`
	Name           string    `json:"category_name"`
	DateOfCreation time.Time `json:"date_of_creation"`
}

// Product is the canonical product record owned by the catalog store.
type Product struct {
	ID             int64           `json:"product_id"`
	Name           string          `json:"name"`
	Slug           *string         `json:"slug"`
	Description    *string         `json:"description"`
	Brand          *string         `json:"brand"`
	CategoryID     int64           `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	AvailableStock int             `json:"available_stock"`
	MarkedPrice    decimal.Decimal `json:"marked_price"`
	DiscountPrice  decimal.Decimal `json:"discount_price"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DocumentID is the index document id for a product id.
func DocumentID(productID int64) string {
	return strconv.FormatInt(productID, 10)
}

// ProductDocument is the denormalized, searchable projection of a Product.
// Brand is stored lowercased so term filters match what the parser extracts.
type ProductDocument struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug,omitempty"`
	Description    string          `json:"description"`
	Brand          string          `json:"brand"`
	CategoryName   string          `json:"category_name"`
	AvailableStock int             `json:"available_stock"`
	MarkedPrice    decimal.Decimal `json:"marked_price"`
	DiscountPrice  decimal.Decimal `json:"discount_price"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewProductDocument mirrors every searchable field of p.
func NewProductDocument(p *Product) ProductDocument {
	return ProductDocument{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           deref(p.Slug),
		Description:    deref(p.Description),
		Brand:          NormalizeBrand(deref(p.Brand)),
		CategoryName:   p.CategoryName,
		AvailableStock: p.AvailableStock,
		MarkedPrice:    p.MarkedPrice.Round(2),
		DiscountPrice:  p.DiscountPrice.Round(2),
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

// DocumentID returns the index id of the document.
func (d ProductDocument) DocumentID() string {
	return DocumentID(d.ID)
}

// Hit projects the document onto the fields returned by search.
func (d ProductDocument) Hit() ProductHit {
	return ProductHit{
		ID:            d.ID,
		Name:          d.Name,
		Slug:          d.Slug,
		CategoryName:  d.CategoryName,
		Brand:         d.Brand,
		Description:   d.Description,
		MarkedPrice:   d.MarkedPrice,
		DiscountPrice: d.DiscountPrice,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
