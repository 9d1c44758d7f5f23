package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"pointshop/internal/service/order/domain"
	"pointshop/internal/service/order/domain/port"
)

// memoryOrderRepo 是 domain.OrderRepository 的内存实现，
// 和真实存储一样由它分配订单 ID。
type memoryOrderRepo struct {
	mu      sync.Mutex
	orders  map[int64]*domain.Order
	nextID  int64
	saveErr error
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[int64]*domain.Order), nextID: 1}
}

func (r *memoryOrderRepo) Save(_ context.Context, order *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	if !order.IsPersisted() {
		copied := *order
		copied.ID = r.nextID
		r.nextID++
		r.orders[copied.ID] = &copied
		return &copied, nil
	}
	r.orders[order.ID] = order
	return order, nil
}

func (r *memoryOrderRepo) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (r *memoryOrderRepo) FindByMemberID(_ context.Context, memberID int64) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.MemberID == memberID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryOrderRepo) FindAll(_ context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

type paymentCall struct {
	memberID int64
	amount   int64
}

// fakePayment 是 port.PaymentService 的测试替身。
type fakePayment struct {
	mu        sync.Mutex
	charges   []paymentCall
	refunds   []paymentCall
	chargeErr error
	refundErr error
}

func (f *fakePayment) Charge(_ context.Context, memberID, amount int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chargeErr != nil {
		return "", f.chargeErr
	}
	f.charges = append(f.charges, paymentCall{memberID, amount})
	return "tx-1", nil
}

func (f *fakePayment) Refund(_ context.Context, memberID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refunds = append(f.refunds, paymentCall{memberID, amount})
	return nil
}

func newTestService(repo *memoryOrderRepo, inventory *fakeInventory, payment *fakePayment) *OrderService {
	return NewOrderService(repo, inventory, payment, nil, 5*time.Second, otel.Tracer("test"))
}

func twoProducts() *fakeInventory {
	return newFakeInventory(
		&port.ProductInfo{ID: 1, Name: "keyboard", Price: 10000, Stock: 100},
		&port.ProductInfo{ID: 2, Name: "mouse", Price: 15000, Stock: 50},
	)
}

func createRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		MemberID: 42,
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 10},
			{ProductID: 2, Quantity: 20},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	repo := newMemoryOrderRepo()
	inventory := twoProducts()
	service := newTestService(repo, inventory, &fakePayment{})

	order, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	assert.True(t, order.IsPersisted())
	assert.Equal(t, domain.StateCreated, order.State)
	assert.Equal(t, int64(400000), order.TotalPrice)
	require.Len(t, order.Items, 2)

	// 每个行项目各预占一次
	assert.Equal(t, []stockCall{{1, 10}, {2, 20}}, inventory.reduceCalls)
	assert.Empty(t, inventory.restoreCalls)

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalPrice, stored.TotalPrice)
}

func TestCreateOrderPartialReservationRollsBack(t *testing.T) {
	repo := newMemoryOrderRepo()
	inventory := twoProducts()
	inventory.failReduceAt = 2 // 第二个行项目预占失败
	service := newTestService(repo, inventory, &fakePayment{})

	_, err := service.CreateOrder(context.Background(), createRequest())

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// 已成功的预占必须被原样归还，净效果为零
	assert.Equal(t, inventory.reduceCalls, inventory.restoreCalls)

	// 订单没有被持久化
	orders, findErr := repo.FindAll(context.Background())
	require.NoError(t, findErr)
	assert.Empty(t, orders)
}

func TestCreateOrderPersistFailureRestoresAllStock(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.saveErr = errors.New("db down")
	inventory := twoProducts()
	service := newTestService(repo, inventory, &fakePayment{})

	_, err := service.CreateOrder(context.Background(), createRequest())
	require.Error(t, err)

	// 两个行项目都预占成功后持久化失败：两个都要归还
	assert.Len(t, inventory.reduceCalls, 2)
	assert.ElementsMatch(t, inventory.reduceCalls, inventory.restoreCalls)
}

func TestCreateOrderCompensationFailure(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.saveErr = errors.New("db down")
	inventory := twoProducts()
	inventory.failRestore = true
	service := newTestService(repo, inventory, &fakePayment{})

	_, err := service.CreateOrder(context.Background(), createRequest())

	// 补偿本身失败要与普通失败区分上报
	var compErr *domain.CompensationError
	require.ErrorAs(t, err, &compErr)
	assert.ErrorContains(t, compErr.Cause, "db down")
}

func TestCreateOrderValidationSkipsSideEffects(t *testing.T) {
	repo := newMemoryOrderRepo()
	inventory := twoProducts()
	service := newTestService(repo, inventory, &fakePayment{})

	_, err := service.CreateOrder(context.Background(), &CreateOrderRequest{MemberID: 42})
	require.ErrorIs(t, err, domain.ErrEmptyOrderItems)
	assert.Zero(t, inventory.reduceCount)
}

func TestProcessPayment(t *testing.T) {
	repo := newMemoryOrderRepo()
	inventory := twoProducts()
	payment := &fakePayment{}
	service := newTestService(repo, inventory, payment)

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	paid, err := service.ProcessPayment(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, paid.State)

	// 扣款金额 = 创建时的总额快照
	require.Len(t, payment.charges, 1)
	assert.Equal(t, paymentCall{42, 400000}, payment.charges[0])

	stored, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, stored.State)
}

func TestProcessPaymentRejectsNonCreatedState(t *testing.T) {
	repo := newMemoryOrderRepo()
	payment := &fakePayment{}
	service := newTestService(repo, twoProducts(), payment)

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	_, err = service.ProcessPayment(context.Background(), created.ID)
	require.NoError(t, err)

	// 第二次支付：状态校验先于扣款，支付服务不会被再次触碰
	_, err = service.ProcessPayment(context.Background(), created.ID)
	var stateErr *domain.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, domain.StatePaid, stateErr.State)
	assert.Len(t, payment.charges, 1)
}

func TestProcessPaymentChargeFailureKeepsOrderCreated(t *testing.T) {
	repo := newMemoryOrderRepo()
	payment := &fakePayment{chargeErr: &domain.PaymentError{Reason: "insufficient point balance"}}
	service := newTestService(repo, twoProducts(), payment)

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	_, err = service.ProcessPayment(context.Background(), created.ID)
	var payErr *domain.PaymentError
	require.ErrorAs(t, err, &payErr)

	stored, findErr := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.StateCreated, stored.State)
}

func TestProcessPaymentPersistFailureRefunds(t *testing.T) {
	repo := newMemoryOrderRepo()
	payment := &fakePayment{}
	service := newTestService(repo, twoProducts(), payment)

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	repo.saveErr = errors.New("db down")
	_, err = service.ProcessPayment(context.Background(), created.ID)
	require.Error(t, err)

	var compErr *domain.CompensationError
	assert.False(t, errors.As(err, &compErr), "refund succeeded, should not be a compensation error")

	// 扣款已发生、落库失败：按同样金额退款
	require.Len(t, payment.refunds, 1)
	assert.Equal(t, paymentCall{42, 400000}, payment.refunds[0])
}

func TestProcessPaymentRefundFailureIsCompensationError(t *testing.T) {
	repo := newMemoryOrderRepo()
	payment := &fakePayment{}
	service := newTestService(repo, twoProducts(), payment)

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	repo.saveErr = errors.New("db down")
	payment.refundErr = errors.New("point service unreachable")

	_, err = service.ProcessPayment(context.Background(), created.ID)
	var compErr *domain.CompensationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, created.ID, compErr.OrderID)
}

func TestCancelCreatedOrder(t *testing.T) {
	repo := newMemoryOrderRepo()
	inventory := twoProducts()
	payment := &fakePayment{}
	service := newTestService(repo, inventory, payment)

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	cancelled, err := service.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, cancelled.State)

	// 未支付的订单：归还库存，但绝不退款
	assert.ElementsMatch(t, inventory.reduceCalls, inventory.restoreCalls)
	assert.Empty(t, payment.refunds)
}

func TestCancelPaidOrderRefundsSnapshotTotal(t *testing.T) {
	repo := newMemoryOrderRepo()
	inventory := twoProducts()
	payment := &fakePayment{}
	service := newTestService(repo, inventory, payment)

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)
	_, err = service.ProcessPayment(context.Background(), created.ID)
	require.NoError(t, err)

	cancelled, err := service.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, cancelled.State)

	assert.ElementsMatch(t, inventory.reduceCalls, inventory.restoreCalls)
	require.Len(t, payment.refunds, 1)
	assert.Equal(t, paymentCall{42, 400000}, payment.refunds[0])
}

func TestCancelCancelledOrderRejected(t *testing.T) {
	repo := newMemoryOrderRepo()
	inventory := twoProducts()
	service := newTestService(repo, inventory, &fakePayment{})

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)
	_, err = service.Cancel(context.Background(), created.ID)
	require.NoError(t, err)

	restoresAfterFirstCancel := len(inventory.restoreCalls)

	_, err = service.Cancel(context.Background(), created.ID)
	var stateErr *domain.InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	// 重复取消不会再次归还库存
	assert.Len(t, inventory.restoreCalls, restoresAfterFirstCancel)
}

func TestCancelAbortsBeforeRefundIfRestoreFails(t *testing.T) {
	repo := newMemoryOrderRepo()
	inventory := twoProducts()
	payment := &fakePayment{}
	service := newTestService(repo, inventory, payment)

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)
	_, err = service.ProcessPayment(context.Background(), created.ID)
	require.NoError(t, err)

	inventory.failRestore = true
	_, err = service.Cancel(context.Background(), created.ID)
	require.Error(t, err)

	// 库存归还失败：支付服务不被触碰，状态保持 PAID，取消可重试
	assert.Empty(t, payment.refunds)
	stored, findErr := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.StatePaid, stored.State)
}

func TestFindOrders(t *testing.T) {
	repo := newMemoryOrderRepo()
	service := newTestService(repo, twoProducts(), &fakePayment{})

	created, err := service.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	found, err := service.FindOrderByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = service.FindOrderByID(context.Background(), 9999)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	mine, err := service.FindMyOrders(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := service.FindAllOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
