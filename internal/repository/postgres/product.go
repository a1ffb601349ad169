package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/repository"
	"github.com/utafrali/productsearch/pkg/database"
	apperrors "github.com/utafrali/productsearch/pkg/errors"
)

// productColumns is the standard SELECT column list for products.
const productColumns = `product_id, name, slug, description, category_id, category_name, brand,
	available_stock, marked_price, discount_price, is_active, created_at, updated_at`

const (
	insertProductSQL = `
		INSERT INTO products (name, slug, description, category_id, category_name, brand,
			available_stock, marked_price, discount_price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING product_id`

	updateProductSQL = `
		UPDATE products
		SET name = $1, slug = $2, description = $3, category_id = $4, category_name = $5, brand = $6,
		    available_stock = $7, marked_price = $8, discount_price = $9, is_active = $10, updated_at = $11
		WHERE product_id = $12`

	deleteProductSQL = `DELETE FROM products WHERE product_id = $1`
)

var (
	getProductSQL        = fmt.Sprintf(`SELECT %s FROM products WHERE product_id = $1`, productColumns)
	listProductsAfterSQL = fmt.Sprintf(`SELECT %s FROM products WHERE product_id > $1 ORDER BY product_id LIMIT $2`, productColumns)
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateProduct", insertProductSQL)
	defer func() { end(err) }()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err = r.pool.QueryRow(ctx, insertProductSQL,
		p.Name,
		p.Slug,
		p.Description,
		p.CategoryID,
		p.CategoryName,
		p.Brand,
		p.AvailableStock,
		p.MarkedPrice,
		p.DiscountPrice,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return writeError(err, p, "insert product")
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (_ *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "GetProduct", getProductSQL)
	defer func() { end(err) }()

	p, err := scanProduct(r.pool.QueryRow(ctx, getProductSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if len(filter.CategoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("category_id = ANY($%d)", argIndex))
		args = append(args, filter.CategoryIDs)
		argIndex++
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%[1]d OR description ILIKE $%[1]d OR category_name ILIKE $%[1]d OR brand ILIKE $%[1]d)", argIndex))
		args = append(args, "%"+escapeLike(q)+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY name, product_id
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	limit := filter.PageSize
	if limit <= 0 {
		limit = 10
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var p domain.Product
		dest := append(productDest(&p), &totalCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// ListAfter returns the next batch of products by ascending ID.
func (r *ProductRepository) ListAfter(ctx context.Context, afterID int64, limit int) (_ []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "ListProductsAfter", listProductsAfterSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listProductsAfterSQL, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list products after %d: %w", afterID, err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(productDest(&p)...); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateProduct", updateProductSQL)
	defer func() { end(err) }()

	p.UpdatedAt = time.Now().UTC()

	ct, err := r.pool.Exec(ctx, updateProductSQL,
		p.Name,
		p.Slug,
		p.Description,
		p.CategoryID,
		p.CategoryName,
		p.Brand,
		p.AvailableStock,
		p.MarkedPrice,
		p.DiscountPrice,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return writeError(err, p, "update product")
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(p.ID, 10))
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteProduct", deleteProductSQL)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}

	return nil
}

// productDest returns scan targets in productColumns order.
func productDest(p *domain.Product) []any {
	return []any{
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.CategoryID,
		&p.CategoryName,
		&p.Brand,
		&p.AvailableStock,
		&p.MarkedPrice,
		&p.DiscountPrice,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(productDest(&p)...); err != nil {
		return nil, err
	}
	return &p, nil
}

// writeError maps constraint violations on insert and update.
func writeError(err error, p *domain.Product, op string) error {
	if _, ok := database.IsUniqueViolation(err); ok {
		slug := ""
		if p.Slug != nil {
			slug = *p.Slug
		}
		return apperrors.AlreadyExists("product", "slug", slug)
	}
	if database.IsForeignKeyViolation(err) {
		return apperrors.InvalidInput(fmt.Sprintf("category %d does not exist", p.CategoryID))
	}
	return fmt.Errorf("%s: %w", op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
