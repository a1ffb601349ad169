package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/repository"
	"github.com/utafrali/productsearch/pkg/database"
	apperrors "github.com/utafrali/productsearch/pkg/errors"
)

const (
	insertCategorySQL = `
		INSERT INTO categories (category_name, date_of_creation)
		VALUES ($1, $2)
		RETURNING category_id`

	getCategorySQL = `SELECT category_id, category_name, date_of_creation FROM categories WHERE category_id = $1`

	listCategoriesSQL = `SELECT category_id, category_name, date_of_creation FROM categories ORDER BY category_id`
)

// CategoryRepository implements category persistence operations using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create inserts a new category into the database.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateCategory", insertCategorySQL)
	defer func() { end(err) }()

	c.DateOfCreation = time.Now().UTC()

	err = r.pool.QueryRow(ctx, insertCategorySQL, c.Name, c.DateOfCreation).Scan(&c.ID)
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return apperrors.AlreadyExists("category", "category_name", c.Name)
		}
		return fmt.Errorf("insert category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (_ *domain.Category, err error) {
	ctx, end := database.TraceQuery(ctx, "GetCategory", getCategorySQL)
	defer func() { end(err) }()

	var c domain.Category
	err = r.pool.QueryRow(ctx, getCategorySQL, id).Scan(&c.ID, &c.Name, &c.DateOfCreation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	return &c, nil
}

// List returns every category ordered by ID.
func (r *CategoryRepository) List(ctx context.Context) (_ []domain.Category, err error) {
	ctx, end := database.TraceQuery(ctx, "ListCategories", listCategoriesSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DateOfCreation); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}
