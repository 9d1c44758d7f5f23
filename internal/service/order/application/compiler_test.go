package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"pointshop/internal/service/order/domain"
	"pointshop/internal/service/order/domain/port"
)

// fakeInventory 是 port.InventoryService 的测试替身，
// 记录每一次预占与归还，便于断言补偿的净效果。
type fakeInventory struct {
	mu       sync.Mutex
	products map[int64]*port.ProductInfo
	getCalls int

	reduceCalls  []stockCall
	restoreCalls []stockCall

	// failReduceAt 指定第 n 次（从 1 数）ReduceStock 调用返回失败
	failReduceAt int
	reduceCount  int

	failRestore bool
}

type stockCall struct {
	productID int64
	quantity  int
}

func newFakeInventory(products ...*port.ProductInfo) *fakeInventory {
	m := make(map[int64]*port.ProductInfo, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeInventory{products: m}
}

func (f *fakeInventory) GetProduct(_ context.Context, productID int64) (*port.ProductInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	p, ok := f.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeInventory) ReduceStock(_ context.Context, productID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reduceCount++
	if f.failReduceAt > 0 && f.reduceCount == f.failReduceAt {
		return &domain.InsufficientStockError{ProductName: fmt.Sprintf("product-%d", productID)}
	}
	f.reduceCalls = append(f.reduceCalls, stockCall{productID, quantity})
	return nil
}

func (f *fakeInventory) RestoreStock(_ context.Context, productID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRestore {
		return fmt.Errorf("restore failed for product %d", productID)
	}
	f.restoreCalls = append(f.restoreCalls, stockCall{productID, quantity})
	return nil
}

func TestCompile(t *testing.T) {
	inventory := newFakeInventory(
		&port.ProductInfo{ID: 1, Name: "keyboard", Price: 10000, Stock: 100},
		&port.ProductInfo{ID: 2, Name: "mouse", Price: 15000, Stock: 50},
	)
	compiler := NewOrderItemCompiler(inventory, otel.Tracer("test"))

	items, total, err := compiler.Compile(context.Background(), []ItemRequest{
		{ProductID: 1, Quantity: 10},
		{ProductID: 2, Quantity: 20},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	// 快照保持请求顺序，单价与名称来自商品服务
	assert.Equal(t, "keyboard", items[0].ProductName)
	assert.Equal(t, int64(10000), items[0].UnitPrice)
	assert.Equal(t, 10, items[0].Quantity)
	assert.Equal(t, "mouse", items[1].ProductName)

	// 10000*10 + 15000*20
	assert.Equal(t, int64(400000), total)
}

func TestCompileEmptyItems(t *testing.T) {
	inventory := newFakeInventory()
	compiler := NewOrderItemCompiler(inventory, otel.Tracer("test"))

	_, _, err := compiler.Compile(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrEmptyOrderItems)
}

func TestCompileInvalidQuantity(t *testing.T) {
	inventory := newFakeInventory(
		&port.ProductInfo{ID: 1, Name: "keyboard", Price: 10000, Stock: 100},
	)
	compiler := NewOrderItemCompiler(inventory, otel.Tracer("test"))

	for _, quantity := range []int{0, -1} {
		_, _, err := compiler.Compile(context.Background(), []ItemRequest{
			{ProductID: 1, Quantity: quantity},
		})
		require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}

	// 校验失败发生在任何商品查询之前
	assert.Zero(t, inventory.getCalls)
}

func TestCompileProductNotFound(t *testing.T) {
	inventory := newFakeInventory(
		&port.ProductInfo{ID: 1, Name: "keyboard", Price: 10000, Stock: 100},
	)
	compiler := NewOrderItemCompiler(inventory, otel.Tracer("test"))

	_, _, err := compiler.Compile(context.Background(), []ItemRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 99, Quantity: 1},
	})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCompileInsufficientStock(t *testing.T) {
	inventory := newFakeInventory(
		&port.ProductInfo{ID: 1, Name: "keyboard", Price: 10000, Stock: 5},
	)
	compiler := NewOrderItemCompiler(inventory, otel.Tracer("test"))

	_, _, err := compiler.Compile(context.Background(), []ItemRequest{
		{ProductID: 1, Quantity: 10},
	})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "keyboard", stockErr.ProductName)
}
