package planner

import (
	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/pkg/pagination"
)

// Build turns parsed into the structured query for one page. An empty free
// text leaves the full-text clause out, so the filters alone decide.
func Build(parsed domain.ParsedQuery, page pagination.Params) domain.Query {
	q := domain.Query{
		From: page.Offset,
		Size: page.PageSize,
	}

	if parsed.FreeText != "" {
		q.FullText = &domain.FullTextClause{
			Text:     parsed.FreeText,
			Fields:   domain.FullTextFields,
			Operator: domain.OperatorAnd,
		}
	}

	if parsed.Brand != nil {
		q.Terms = append(q.Terms, domain.TermFilter{Field: domain.FieldBrand, Value: *parsed.Brand})
	}
	if parsed.MaxPrice != nil {
		q.Ranges = append(q.Ranges, domain.RangeFilter{Field: domain.FieldMarkedPrice, Lte: parsed.MaxPrice})
	}
	if parsed.MinPrice != nil {
		q.Ranges = append(q.Ranges, domain.RangeFilter{Field: domain.FieldMarkedPrice, Gte: parsed.MinPrice})
	}

	return q
}

// RecommendationQuery asks for the size most expensive documents.
func RecommendationQuery(size int) domain.Query {
	return domain.Query{
		Sort: []domain.Sort{{Field: domain.FieldMarkedPrice, Order: domain.SortDesc}},
		Size: size,
	}
}
