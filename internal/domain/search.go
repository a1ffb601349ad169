package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Document fields the planner queries.
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldCategoryName = "category_name"
	FieldBrand        = "brand"
	FieldMarkedPrice  = "marked_price"

	FieldDiscountPrice  = "discount_price"
	FieldAvailableStock = "available_stock"
)

// FullTextFields are matched by the free-text part of a search.
var FullTextFields = []string{FieldName, FieldDescription, FieldCategoryName, FieldBrand}

// NormalizeBrand is the case normalization applied to brands on both the
// indexing and the query side.
func NormalizeBrand(brand string) string {
	return strings.ToLower(strings.TrimSpace(brand))
}

// ParsedQuery is the structured intent extracted from a raw search string.
type ParsedQuery struct {
	FreeText string           `json:"free_text"`
	MinPrice *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`
	Brand    *string          `json:"brand,omitempty"`
}

// HasFilters reports whether any filter was extracted.
func (q ParsedQuery) HasFilters() bool {
	return q.MinPrice != nil || q.MaxPrice != nil || q.Brand != nil
}

// Operator joins the terms of a full-text clause.
type Operator string

const (
	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
)

// SortOrder is a sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FullTextClause matches Text across Fields.
type FullTextClause struct {
	Text     string
	Fields   []string
	Operator Operator
}

// TermFilter is an exact keyword match.
type TermFilter struct {
	Field string
	Value string
}

// RangeFilter bounds a numeric field. Nil bounds are open.
type RangeFilter struct {
	Field string
	Gte   *decimal.Decimal
	Lte   *decimal.Decimal
}

// Sort orders hits by a field.
type Sort struct {
	Field string
	Order SortOrder
}

// Query is the backend-neutral structured query. A nil FullText matches
// every document; all filters are conjunctive. A query carrying only Sort
// and Size is the recommendation lookup.
type Query struct {
	FullText *FullTextClause
	Terms    []TermFilter
	Ranges   []RangeFilter
	Sort     []Sort
	From     int
	Size     int
}

// Hits is one page of documents plus the total number of matches.
type Hits struct {
	Total     int
	Documents []ProductDocument
}

// ProductHit is a search result as returned to clients.
type ProductHit struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug,omitempty"`
	CategoryName  string          `json:"category_name"`
	Brand         string          `json:"brand"`
	Description   string          `json:"description"`
	MarkedPrice   decimal.Decimal `json:"marked_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
}

// SearchResult is the planner's answer to a search. Recommendations is only
// set when Results is empty.
type SearchResult struct {
	Results         []ProductHit `json:"results"`
	Recommendations []ProductHit `json:"recommendations,omitempty"`
	TotalCount      int          `json:"total_count"`
	Page            int          `json:"page"`
	PageSize        int          `json:"page_size"`
	TotalPages      int          `json:"total_pages"`
}

// HitsFromDocuments projects documents to hits, never returning nil.
func HitsFromDocuments(docs []ProductDocument) []ProductHit {
	hits := make([]ProductHit, 0, len(docs))
	for i := range docs {
		hits = append(hits, docs[i].Hit())
	}
	return hits
}
