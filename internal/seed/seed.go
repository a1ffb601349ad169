// Package seed fills the catalog with a deterministic synthetic product set
// for local development and load tests.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/pkg/database"
	"github.com/utafrali/productsearch/pkg/slug"
)

// DefaultBatchSize is the number of products per INSERT statement.
const DefaultBatchSize = 500

// productColumnCount is the number of placeholders per product row.
const productColumnCount = 12

type categoryDef struct {
	brands   []string
	nouns    []string
	minCents int64
	maxCents int64
}

var catalog = map[string]categoryDef{
	domain.CategoryElectronics: {
		brands:   []string{"Samsung", "Apple", "Dell", "Lenovo", "Sony", "Xiaomi"},
		nouns:    []string{"Phone", "Laptop", "Tablet", "Headphones", "Monitor", "Smartwatch"},
		minCents: 5_000_00,
		maxCents: 200_000_00,
	},
	domain.CategoryFashion: {
		brands:   []string{"Zara", "Levis", "Nike", "Adidas", "Mango"},
		nouns:    []string{"Jacket", "Jeans", "Sneakers", "Dress", "T-Shirt", "Scarf"},
		minCents: 500_00,
		maxCents: 15_000_00,
	},
	domain.CategoryHomeAppliances: {
		brands:   []string{"Bosch", "Philips", "LG", "Whirlpool", "Dyson"},
		nouns:    []string{"Refrigerator", "Vacuum Cleaner", "Microwave", "Washing Machine", "Air Purifier"},
		minCents: 3_000_00,
		maxCents: 120_000_00,
	},
	domain.CategoryBooks: {
		brands:   []string{"Penguin", "HarperCollins", "Vintage", "Bloomsbury"},
		nouns:    []string{"Novel", "Cookbook", "Biography", "Atlas", "Anthology"},
		minCents: 200_00,
		maxCents: 3_000_00,
	},
	domain.CategoryOthers: {
		brands:   []string{"Lego", "Hasbro", "Yonex", "Decathlon"},
		nouns:    []string{"Board Game", "Yoga Mat", "Badminton Racket", "Backpack"},
		minCents: 300_00,
		maxCents: 10_000_00,
	},
}

var adjectives = []string{"Classic", "Pro", "Ultra", "Compact", "Premium", "Essential", "Smart", "Lite"}

// Generate returns n products spread over every category. The same seed
// always yields the same products. CategoryID is left zero; InsertProducts
// resolves it from CategoryName.
func Generate(n int, seed uint64, now time.Time) []domain.Product {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	names := domain.ValidCategoryNames()
	now = now.UTC()

	products := make([]domain.Product, 0, n)
	for i := 0; i < n; i++ {
		categoryName := names[i%len(names)]
		def := catalog[categoryName]

		brand := def.brands[rng.IntN(len(def.brands))]
		noun := def.nouns[rng.IntN(len(def.nouns))]
		adjective := adjectives[rng.IntN(len(adjectives))]

		name := fmt.Sprintf("%s %s %s %d", brand, adjective, noun, 100+rng.IntN(900))
		productSlug := fmt.Sprintf("%s-%d", slug.Generate(name), i+1)
		description := fmt.Sprintf("%s %s from %s. %s", adjective, strings.ToLower(noun), brand, blurb(rng))

		marked := def.minCents + rng.Int64N(def.maxCents-def.minCents+1)
		discounted := marked
		if rng.Float64() < 0.7 {
			// 10-40% off
			discounted = marked * int64(60+rng.IntN(31)) / 100
		}

		stock := rng.IntN(200)
		if rng.Float64() < 0.1 {
			stock = 0
		}

		created := now.Add(-time.Duration(rng.IntN(365*24)) * time.Hour)
		products = append(products, domain.Product{
			Name:           name,
			Slug:           &productSlug,
			Description:    &description,
			Brand:          &brand,
			CategoryName:   categoryName,
			AvailableStock: stock,
			MarkedPrice:    decimal.New(marked, -2),
			DiscountPrice:  decimal.New(discounted, -2),
			IsActive:       rng.Float64() < 0.95,
			CreatedAt:      created,
			UpdatedAt:      created,
		})
	}
	return products
}

var blurbs = []string{
	"Built to last with a two-year warranty.",
	"A customer favourite this season.",
	"Ships in eco-friendly packaging.",
	"Limited stock, order soon.",
	"Rated highly for value for money.",
}

func blurb(rng *rand.Rand) string {
	return blurbs[rng.IntN(len(blurbs))]
}

const (
	ensureCategoriesSQL = `
		INSERT INTO categories (category_name, date_of_creation)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (category_name) DO NOTHING`

	selectCategoriesSQL = `SELECT category_id, category_name FROM categories`
)

// EnsureCategories creates any missing category and returns the id of every
// category keyed by name.
func EnsureCategories(ctx context.Context, db database.DBTX) (map[string]int64, error) {
	if _, err := db.Exec(ctx, ensureCategoriesSQL, domain.ValidCategoryNames(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure categories: %w", err)
	}

	rows, err := db.Query(ctx, selectCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return ids, nil
}

// InsertProducts writes products in multi-row INSERT batches. Rows whose
// slug already exists are skipped, so re-running a seed is harmless. It
// returns the number of rows actually inserted.
func InsertProducts(ctx context.Context, db database.DBTX, products []domain.Product, categoryIDs map[string]int64, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var inserted int64
	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))
		batch := products[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO products (name, slug, description, category_id, category_name, brand,
			available_stock, marked_price, discount_price, is_active, created_at, updated_at) VALUES `)

		args := make([]any, 0, len(batch)*productColumnCount)
		for i, p := range batch {
			categoryID, ok := categoryIDs[p.CategoryName]
			if !ok {
				return inserted, fmt.Errorf("seed product %q: unknown category %q", p.Name, p.CategoryName)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholders(i*productColumnCount, productColumnCount))
			args = append(args,
				p.Name, p.Slug, p.Description, categoryID, p.CategoryName, p.Brand,
				p.AvailableStock, p.MarkedPrice, p.DiscountPrice, p.IsActive, p.CreatedAt, p.UpdatedAt,
			)
		}
		sb.WriteString(" ON CONFLICT (slug) DO NOTHING")

		tag, err := db.Exec(ctx, sb.String(), args...)
		if err != nil {
			return inserted, fmt.Errorf("insert products %d-%d: %w", start, end, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// placeholders renders "($offset+1, ..., $offset+n)".
func placeholders(offset, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
