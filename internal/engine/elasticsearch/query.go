package elasticsearch

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/utafrali/productsearch/internal/domain"
)

// buildSearchBody translates a structured query into the search DSL.
func buildSearchBody(q domain.Query) map[string]any {
	must := []any{map[string]any{"match_all": map[string]any{}}}
	if q.FullText != nil && q.FullText.Text != "" {
		operator := q.FullText.Operator
		if operator == "" {
			operator = domain.OperatorAnd
		}
		must = []any{map[string]any{
			"multi_match": map[string]any{
				"query":    q.FullText.Text,
				"fields":   q.FullText.Fields,
				"type":     "best_fields",
				"operator": string(operator),
			},
		}}
	}

	boolQuery := map[string]any{"must": must}
	if filters := buildFilters(q); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	body := map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             max(q.From, 0),
		"track_total_hits": true,
	}
	if q.Size > 0 {
		body["size"] = q.Size
	}
	if len(q.Sort) > 0 {
		sorts := make([]any, 0, len(q.Sort))
		for _, s := range q.Sort {
			sorts = append(sorts, map[string]any{s.Field: map[string]any{"order": string(s.Order)}})
		}
		body["sort"] = sorts
	}
	return body
}

func buildFilters(q domain.Query) []any {
	var filters []any

	for _, t := range q.Terms {
		field := t.Field
		if kw, ok := keywordFields[field]; ok {
			field = kw
		}
		filters = append(filters, map[string]any{
			"term": map[string]any{field: t.Value},
		})
	}

	for _, r := range q.Ranges {
		bounds := map[string]any{}
		if r.Gte != nil {
			bounds["gte"] = number(*r.Gte)
		}
		if r.Lte != nil {
			bounds["lte"] = number(*r.Lte)
		}
		if len(bounds) == 0 {
			continue
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{r.Field: bounds},
		})
	}

	return filters
}

// number renders d as a bare JSON number.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
