package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"pointshop/internal/service/product/domain"
)

// memoryProductRepo 是 domain.ProductRepository 的内存实现，
// ReduceStock 和真实存储一样做条件扣减。
type memoryProductRepo struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	nextID   int64

	// conflictOnce 模拟锁外的并发消耗：下一次条件扣减未命中任何行
	conflictOnce bool
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{products: make(map[int64]*domain.Product), nextID: 1}
}

func (r *memoryProductRepo) Save(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *product
	copied.ID = r.nextID
	r.nextID++
	r.products[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (r *memoryProductRepo) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memoryProductRepo) FindAll(_ context.Context) ([]*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryProductRepo) Update(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	copied := *product
	r.products[product.ID] = &copied
	return nil
}

func (r *memoryProductRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memoryProductRepo) ReduceStock(_ context.Context, id int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictOnce {
		r.conflictOnce = false
		return domain.ErrStockConflict
	}
	p, ok := r.products[id]
	if !ok || p.Stock < quantity {
		return domain.ErrStockConflict
	}
	p.Stock -= quantity
	return nil
}

func (r *memoryProductRepo) RestoreStock(_ context.Context, id int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += quantity
	return nil
}

func newTestProductService(repo domain.ProductRepository) *ProductService {
	return NewProductService(repo, NoopLocker{}, otel.Tracer("test"))
}

func seedProduct(t *testing.T, service *ProductService, stock int) *domain.Product {
	t.Helper()
	product, err := service.Create(context.Background(), &CreateProductRequest{
		Name: "keyboard", Price: 10000, Stock: stock,
	})
	require.NoError(t, err)
	return product
}

func TestCreateAndFindProduct(t *testing.T) {
	repo := newMemoryProductRepo()
	service := newTestProductService(repo)

	created := seedProduct(t, service, 100)
	assert.NotZero(t, created.ID)

	found, err := service.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "keyboard", found.Name)
	assert.Equal(t, 100, found.Stock)

	_, err = service.FindByID(context.Background(), 9999)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUpdateProduct(t *testing.T) {
	repo := newMemoryProductRepo()
	service := newTestProductService(repo)
	created := seedProduct(t, service, 100)

	updated, err := service.Update(context.Background(), created.ID, &UpdateProductRequest{
		Name: "mechanical keyboard", Price: 20000, Stock: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, "mechanical keyboard", updated.Name)
	assert.Equal(t, int64(20000), updated.Price)
	assert.Equal(t, 60, updated.Stock)

	_, err = service.Update(context.Background(), created.ID, &UpdateProductRequest{Price: -1})
	require.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestDeleteProduct(t *testing.T) {
	repo := newMemoryProductRepo()
	service := newTestProductService(repo)
	created := seedProduct(t, service, 100)

	require.NoError(t, service.Delete(context.Background(), created.ID))
	require.ErrorIs(t, service.Delete(context.Background(), created.ID), domain.ErrProductNotFound)
}

func TestReduceStock(t *testing.T) {
	repo := newMemoryProductRepo()
	service := newTestProductService(repo)
	created := seedProduct(t, service, 100)

	product, err := service.ReduceStock(context.Background(), created.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 70, product.Stock)

	product, err = service.ReduceStock(context.Background(), created.ID, 70)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)
}

func TestReduceStockInsufficient(t *testing.T) {
	repo := newMemoryProductRepo()
	service := newTestProductService(repo)
	created := seedProduct(t, service, 5)

	_, err := service.ReduceStock(context.Background(), created.ID, 6)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "keyboard", stockErr.ProductName)

	// 库存保持不变
	found, findErr := service.FindByID(context.Background(), created.ID)
	require.NoError(t, findErr)
	assert.Equal(t, 5, found.Stock)
}

func TestReduceStockConflictMapsToInsufficientStock(t *testing.T) {
	repo := newMemoryProductRepo()
	service := newTestProductService(repo)
	created := seedProduct(t, service, 100)

	// 条件更新未命中（并发消耗）也报库存不足，而不是内部错误
	repo.conflictOnce = true
	_, err := service.ReduceStock(context.Background(), created.ID, 10)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
}

func TestReduceStockValidation(t *testing.T) {
	repo := newMemoryProductRepo()
	service := newTestProductService(repo)
	created := seedProduct(t, service, 100)

	_, err := service.ReduceStock(context.Background(), created.ID, 0)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = service.ReduceStock(context.Background(), 9999, 1)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestRestoreStock(t *testing.T) {
	repo := newMemoryProductRepo()
	service := newTestProductService(repo)
	created := seedProduct(t, service, 100)

	_, err := service.ReduceStock(context.Background(), created.ID, 40)
	require.NoError(t, err)

	product, err := service.RestoreStock(context.Background(), created.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 100, product.Stock)

	_, err = service.RestoreStock(context.Background(), created.ID, -1)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
