package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/engine"
)

// Engine is an in-memory implementation of engine.DocumentIndex. Full-text
// matching follows best-fields semantics: with the AND operator every term
// must occur in the same field. Thread-safe via sync.RWMutex.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]domain.ProductDocument
}

var (
	_ engine.DocumentIndex = (*Engine)(nil)
	_ engine.IndexManager  = (*Engine)(nil)
)

// New creates an empty in-memory index.
func New() *Engine {
	return &Engine{docs: make(map[string]domain.ProductDocument)}
}

// Upsert stores or replaces doc.
func (e *Engine) Upsert(_ context.Context, doc domain.ProductDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.DocumentID()] = doc
	return nil
}

// BulkUpsert stores or replaces every doc.
func (e *Engine) BulkUpsert(_ context.Context, docs []domain.ProductDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].DocumentID()] = docs[i]
	}
	return nil
}

// Get returns a copy of the document or engine.ErrDocumentNotFound.
func (e *Engine) Get(_ context.Context, id string) (*domain.ProductDocument, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[id]
	if !ok {
		return nil, engine.ErrDocumentNotFound
	}
	return &doc, nil
}

// Delete removes the document if present.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error { return nil }

// Recreate drops every document.
func (e *Engine) Recreate(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs = make(map[string]domain.ProductDocument)
	return nil
}

// Len returns the number of stored documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

type scored struct {
	doc   domain.ProductDocument
	score float64
}

// Query evaluates q over all documents.
func (e *Engine) Query(_ context.Context, q domain.Query) (*domain.Hits, error) {
	e.mu.RLock()
	matched := make([]scored, 0, len(e.docs))
	for _, doc := range e.docs {
		if !matchesFilters(doc, q) {
			continue
		}
		score := 1.0
		if q.FullText != nil {
			score = fullTextScore(doc, q.FullText)
			if score == 0 {
				continue
			}
		}
		matched = append(matched, scored{doc: doc, score: score})
	}
	e.mu.RUnlock()

	sortMatches(matched, q.Sort)

	total := len(matched)
	from := min(max(q.From, 0), total)
	end := total
	if q.Size > 0 {
		end = min(from+q.Size, total)
	}

	docs := make([]domain.ProductDocument, 0, end-from)
	for _, m := range matched[from:end] {
		docs = append(docs, m.doc)
	}
	return &domain.Hits{Total: total, Documents: docs}, nil
}

func matchesFilters(doc domain.ProductDocument, q domain.Query) bool {
	for _, t := range q.Terms {
		v, ok := keywordValue(doc, t.Field)
		if !ok || v != t.Value {
			return false
		}
	}
	for _, r := range q.Ranges {
		v, ok := numericValue(doc, r.Field)
		if !ok {
			return false
		}
		if r.Gte != nil && v.LessThan(*r.Gte) {
			return false
		}
		if r.Lte != nil && v.GreaterThan(*r.Lte) {
			return false
		}
	}
	return true
}

// fullTextScore returns 0 when the clause does not match. Otherwise the
// score is the best per-field term frequency, with name weighted higher.
func fullTextScore(doc domain.ProductDocument, c *domain.FullTextClause) float64 {
	terms := tokenize(c.Text)
	if len(terms) == 0 {
		return 0
	}

	best := 0.0
	for _, field := range c.Fields {
		text, ok := textValue(doc, field)
		if !ok {
			continue
		}
		counts := make(map[string]int)
		for _, tok := range tokenize(text) {
			counts[tok]++
		}

		hits, freq := 0, 0
		for _, term := range terms {
			if n := counts[term]; n > 0 {
				hits++
				freq += n
			}
		}
		if hits == 0 || (c.Operator != domain.OperatorOr && hits < len(terms)) {
			continue
		}

		score := float64(freq) / float64(len(counts))
		if field == domain.FieldName {
			score *= 2
		}
		best = max(best, score)
	}
	return best
}

func sortMatches(matched []scored, sorts []domain.Sort) {
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		for _, s := range sorts {
			av, _ := numericValue(a.doc, s.Field)
			bv, _ := numericValue(b.doc, s.Field)
			if c := av.Cmp(bv); c != 0 {
				if s.Order == domain.SortDesc {
					return c > 0
				}
				return c < 0
			}
		}
		if len(sorts) == 0 && a.score != b.score {
			return a.score > b.score
		}
		return a.doc.ID < b.doc.ID
	})
}

// tokenize splits like Elasticsearch's standard analyzer for the text this
// index holds: underscores join words, so home_appliances is one token.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func textValue(doc domain.ProductDocument, field string) (string, bool) {
	switch field {
	case domain.FieldName:
		return doc.Name, true
	case domain.FieldDescription:
		return doc.Description, true
	case domain.FieldCategoryName:
		return doc.CategoryName, true
	case domain.FieldBrand:
		return doc.Brand, true
	}
	return "", false
}

func keywordValue(doc domain.ProductDocument, field string) (string, bool) {
	switch field {
	case domain.FieldBrand:
		return domain.NormalizeBrand(doc.Brand), true
	case domain.FieldCategoryName:
		return doc.CategoryName, true
	}
	return "", false
}

func numericValue(doc domain.ProductDocument, field string) (decimal.Decimal, bool) {
	switch field {
	case domain.FieldMarkedPrice:
		return doc.MarkedPrice, true
	case domain.FieldDiscountPrice:
		return doc.DiscountPrice, true
	case domain.FieldAvailableStock:
		return decimal.NewFromInt(int64(doc.AvailableStock)), true
	}
	return decimal.Zero, false
}
