package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/repository"
	apperrors "github.com/utafrali/productsearch/pkg/errors"
	"github.com/utafrali/productsearch/pkg/pagination"
)

// --- Mocks ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, afterID, limit)
	if fn, ok := args.Get(0).(func(context.Context, int64, int) []domain.Product); ok {
		return fn(ctx, afterID, limit), args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

type mockSync struct {
	mock.Mock
}

func (m *mockSync) OnCreate(ctx context.Context, p *domain.Product) { m.Called(ctx, p) }
func (m *mockSync) OnUpdate(ctx context.Context, p *domain.Product) { m.Called(ctx, p) }
func (m *mockSync) OnDelete(ctx context.Context, id int64)          { m.Called(ctx, id) }

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	products   *mockProductRepository
	categories *mockCategoryRepository
	sync       *mockSync
	svc        *CatalogService
}

func newFixture() *fixture {
	f := &fixture{
		products:   new(mockProductRepository),
		categories: new(mockCategoryRepository),
		sync:       new(mockSync),
	}
	f.svc = NewCatalogService(f.products, f.categories, f.sync, pagination.DefaultLimits(), newTestLogger())
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.products.AssertExpectations(t)
	f.categories.AssertExpectations(t)
	f.sync.AssertExpectations(t)
}

func strPtr(s string) *string { return &s }

var electronics = &domain.Category{ID: 1, Name: domain.CategoryElectronics}

func validInput() *CreateProductInput {
	return &CreateProductInput{
		Name:           "  Dell XPS 13 ",
		Brand:          strPtr("Dell"),
		CategoryID:     1,
		AvailableStock: 3,
		MarkedPrice:    decimal.RequireFromString("99999.999"),
		DiscountPrice:  decimal.RequireFromString("89999"),
	}
}

// --- CreateProduct ---

func TestCreateProduct_Success(t *testing.T) {
	f := newFixture()
	f.categories.On("GetByID", mock.Anything, int64(1)).Return(electronics, nil)
	f.products.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Product).ID = 10 }).
		Return(nil)
	f.sync.On("OnCreate", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool { return p.ID == 10 })).Return()

	p, err := f.svc.CreateProduct(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, int64(10), p.ID)
	assert.Equal(t, "Dell XPS 13", p.Name)
	require.NotNil(t, p.Slug)
	assert.Equal(t, "dell-xps-13", *p.Slug)
	assert.Equal(t, domain.CategoryElectronics, p.CategoryName)
	assert.Equal(t, "100000", p.MarkedPrice.String())
	assert.True(t, p.IsActive)
	f.assertExpectations(t)
}

func TestCreateProduct_ExplicitSlugAndInactive(t *testing.T) {
	f := newFixture()
	inactive := false
	in := validInput()
	in.Slug = "XPS Limited"
	in.IsActive = &inactive
	in.CategoryName = domain.CategoryOthers

	f.categories.On("GetByID", mock.Anything, int64(1)).Return(electronics, nil)
	f.products.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sync.On("OnCreate", mock.Anything, mock.Anything).Return()

	p, err := f.svc.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "xps-limited", *p.Slug)
	assert.False(t, p.IsActive)
	assert.Equal(t, domain.CategoryOthers, p.CategoryName)
}

func TestCreateProduct_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateProductInput)
	}{
		{"empty name", func(in *CreateProductInput) { in.Name = "   " }},
		{"negative stock", func(in *CreateProductInput) { in.AvailableStock = -1 }},
		{"negative price", func(in *CreateProductInput) { in.MarkedPrice = decimal.NewFromInt(-5) }},
		{"negative discount", func(in *CreateProductInput) { in.DiscountPrice = decimal.NewFromInt(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			in := validInput()
			tt.mutate(in)

			_, err := f.svc.CreateProduct(context.Background(), in)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			f.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.sync.AssertNotCalled(t, "OnCreate", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	f := newFixture()
	f.categories.On("GetByID", mock.Anything, int64(1)).Return(nil, apperrors.NotFound("category", "1"))

	_, err := f.svc.CreateProduct(context.Background(), validInput())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "category 1 does not exist")
}

func TestCreateProduct_InvalidCategoryName(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.CategoryName = "toys"
	f.categories.On("GetByID", mock.Anything, int64(1)).Return(electronics, nil)

	_, err := f.svc.CreateProduct(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateProduct_CategoryWithUnknownNameFallsBack(t *testing.T) {
	f := newFixture()
	f.categories.On("GetByID", mock.Anything, int64(1)).Return(&domain.Category{ID: 1, Name: "Gadgets"}, nil)
	f.products.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sync.On("OnCreate", mock.Anything, mock.Anything).Return()

	p, err := f.svc.CreateProduct(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCategoryName, p.CategoryName)
}

func TestCreateProduct_RepositoryErrorSkipsSync(t *testing.T) {
	f := newFixture()
	f.categories.On("GetByID", mock.Anything, int64(1)).Return(electronics, nil)
	f.products.On("Create", mock.Anything, mock.Anything).Return(apperrors.AlreadyExists("product", "slug", "dell-xps-13"))

	_, err := f.svc.CreateProduct(context.Background(), validInput())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	f.sync.AssertNotCalled(t, "OnCreate", mock.Anything, mock.Anything)
}

// --- Get / List ---

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture()
	f.products.On("GetByID", mock.Anything, int64(5)).Return(nil, apperrors.NotFound("product", "5"))

	_, err := f.svc.GetProduct(context.Background(), 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListProducts_ClampsPagination(t *testing.T) {
	f := newFixture()
	want := repository.ProductFilter{CategoryIDs: []int64{1}, Query: "dell", Page: 1, PageSize: 100}
	f.products.On("List", mock.Anything, want).Return([]domain.Product{{ID: 1}}, 1, nil)

	products, params, total, err := f.svc.ListProducts(context.Background(), repository.ProductFilter{
		CategoryIDs: []int64{1}, Query: "dell", Page: -3, PageSize: 1000,
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, 100, params.PageSize)
	f.assertExpectations(t)
}

func TestListProducts_PagePastWindowRejected(t *testing.T) {
	f := newFixture()

	_, _, _, err := f.svc.ListProducts(context.Background(), repository.ProductFilter{Page: 1 << 62, PageSize: 10})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.products.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

// --- UpdateProduct ---

func existingProduct() *domain.Product {
	return &domain.Product{
		ID:             7,
		Name:           "Old",
		Slug:           strPtr("old"),
		CategoryID:     1,
		CategoryName:   domain.CategoryElectronics,
		AvailableStock: 1,
		MarkedPrice:    decimal.NewFromInt(100),
		DiscountPrice:  decimal.NewFromInt(90),
		IsActive:       true,
	}
}

func TestUpdateProduct_Partial(t *testing.T) {
	f := newFixture()
	f.products.On("GetByID", mock.Anything, int64(7)).Return(existingProduct(), nil)
	f.categories.On("GetByID", mock.Anything, int64(1)).Return(electronics, nil)
	f.products.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sync.On("OnUpdate", mock.Anything, mock.Anything).Return()

	price := decimal.NewFromInt(80)
	p, err := f.svc.UpdateProduct(context.Background(), 7, &UpdateProductInput{
		Name:        strPtr("New Name"),
		MarkedPrice: &price,
	})
	require.NoError(t, err)

	assert.Equal(t, "New Name", p.Name)
	assert.Equal(t, "old", *p.Slug)
	assert.Equal(t, "80", p.MarkedPrice.String())
	assert.Equal(t, "90", p.DiscountPrice.String())
	f.assertExpectations(t)
}

func TestUpdateProduct_CategoryChangeRederivesName(t *testing.T) {
	f := newFixture()
	books := &domain.Category{ID: 4, Name: domain.CategoryBooks}
	newCategory := int64(4)
	f.products.On("GetByID", mock.Anything, int64(7)).Return(existingProduct(), nil)
	f.categories.On("GetByID", mock.Anything, int64(4)).Return(books, nil)
	f.products.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sync.On("OnUpdate", mock.Anything, mock.Anything).Return()

	p, err := f.svc.UpdateProduct(context.Background(), 7, &UpdateProductInput{CategoryID: &newCategory})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBooks, p.CategoryName)
}

func TestUpdateProduct_EmptyNameRejected(t *testing.T) {
	f := newFixture()
	f.products.On("GetByID", mock.Anything, int64(7)).Return(existingProduct(), nil)

	_, err := f.svc.UpdateProduct(context.Background(), 7, &UpdateProductInput{Name: strPtr("")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.products.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	f := newFixture()
	f.products.On("GetByID", mock.Anything, int64(7)).Return(nil, apperrors.NotFound("product", "7"))

	_, err := f.svc.UpdateProduct(context.Background(), 7, &UpdateProductInput{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- DeleteProduct ---

func TestDeleteProduct(t *testing.T) {
	f := newFixture()
	f.products.On("Delete", mock.Anything, int64(7)).Return(nil)
	f.sync.On("OnDelete", mock.Anything, int64(7)).Return()

	require.NoError(t, f.svc.DeleteProduct(context.Background(), 7))
	f.assertExpectations(t)
}

func TestDeleteProduct_NotFoundSkipsSync(t *testing.T) {
	f := newFixture()
	f.products.On("Delete", mock.Anything, int64(7)).Return(apperrors.NotFound("product", "7"))

	err := f.svc.DeleteProduct(context.Background(), 7)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.sync.AssertNotCalled(t, "OnDelete", mock.Anything, mock.Anything)
}

// --- Categories ---

func TestCreateCategory(t *testing.T) {
	f := newFixture()
	f.categories.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Category) bool {
		return c.Name == domain.CategoryHomeAppliances
	})).Return(nil)

	c, err := f.svc.CreateCategory(context.Background(), " Home_Appliances ")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryHomeAppliances, c.Name)
}

func TestCreateCategory_InvalidName(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateCategory(context.Background(), "toys")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.categories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListCategories(t *testing.T) {
	f := newFixture()
	f.categories.On("List", mock.Anything).Return([]domain.Category{*electronics}, nil)

	categories, err := f.svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestListCategories_Error(t *testing.T) {
	f := newFixture()
	f.categories.On("List", mock.Anything).Return([]domain.Category(nil), errors.New("db down"))

	_, err := f.svc.ListCategories(context.Background())
	assert.Error(t, err)
}

func TestNilSyncIsNoop(t *testing.T) {
	products := new(mockProductRepository)
	products.On("Delete", mock.Anything, int64(1)).Return(nil)
	svc := NewCatalogService(products, new(mockCategoryRepository), nil, pagination.DefaultLimits(), newTestLogger())

	assert.NoError(t, svc.DeleteProduct(context.Background(), 1))
}
