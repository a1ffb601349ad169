package pagination

import (
	"fmt"

	apperrors "github.com/utafrali/productsearch/pkg/errors"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// DefaultMaxWindow matches Elasticsearch's default index.max_result_window.
	DefaultMaxWindow = 10000
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Offset   int `json:"-"`
	// LastPage is the highest page whose rows fit inside the result window.
	LastPage int `json:"-"`
}

// Limits bounds the page size a caller may request and how deep into a
// result set paging may reach.
type Limits struct {
	Default int
	Max     int
	// MaxWindow caps Offset+PageSize.
	MaxWindow int
}

// DefaultLimits returns the 10/100 page size bounds and a 10000 row window.
func DefaultLimits() Limits {
	return Limits{Default: DefaultPageSize, Max: MaxPageSize, MaxWindow: DefaultMaxWindow}
}

// New builds Params from raw values. A page below 1 becomes 1. A page size
// below 1 falls back to the default; one above the maximum is clamped to it.
// A page past the result window keeps its number but gets Offset set to the
// window, so Offset never overflows; Err reports it.
func New(page, pageSize int, limits Limits) Params {
	if limits.Default <= 0 {
		limits.Default = DefaultPageSize
	}
	if limits.Max <= 0 {
		limits.Max = MaxPageSize
	}
	if limits.MaxWindow <= 0 {
		limits.MaxWindow = DefaultMaxWindow
	}

	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = limits.Default
	case pageSize > limits.Max:
		pageSize = limits.Max
	}
	pageSize = min(pageSize, limits.MaxWindow)

	params := Params{
		Page:     page,
		PageSize: pageSize,
		LastPage: limits.MaxWindow / pageSize,
	}
	if page > params.LastPage {
		params.Offset = limits.MaxWindow
		return params
	}
	params.Offset = (page - 1) * pageSize
	return params
}

// Err returns an INVALID_INPUT error when the page lies past the result window.
func (p Params) Err() error {
	if p.LastPage > 0 && p.Page > p.LastPage {
		return apperrors.InvalidInput(fmt.Sprintf("page must be at most %d when page_size is %d", p.LastPage, p.PageSize))
	}
	return nil
}

// Result wraps a paginated response.
type Result[T any] struct {
	Results    []T `json:"results"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewResult creates a paginated result. A nil slice is rendered as [].
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	return Result[T]{
		Results:    data,
		TotalCount: totalCount,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: TotalPages(totalCount, params.PageSize),
	}
}

// TotalPages is ceil(total/size), zero when size is not positive.
func TotalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	pages := total / size
	if total%size > 0 {
		pages++
	}
	return pages
}
