package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/order"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/product"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/infrastructure/store"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/infrastructure/store/mocks"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/payment/shurjopay"
)

// fakeGateway is an in-memory PaymentGateway.
type fakeGateway struct {
	mu          sync.Mutex
	payErr      error
	verifyErr   error
	records     []shurjopay.VerificationRecord
	payCalls    int
	verifyCalls int
}

func (f *fakeGateway) MakePayment(ctx context.Context, req shurjopay.PaymentRequest) (*shurjopay.PaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payCalls++
	if f.payErr != nil {
		return nil, f.payErr
	}
	return &shurjopay.PaymentResponse{
		CheckoutURL:       "https://sandbox.shurjopayment.com/checkout/" + req.OrderID,
		Amount:            req.Amount,
		SpOrderID:         "sp-" + req.OrderID,
		CustomerOrderID:   req.OrderID,
		Currency:          req.Currency,
		TransactionStatus: "Initiated",
	}, nil
}

func (f *fakeGateway) VerifyPayment(ctx context.Context, spOrderID string) ([]shurjopay.VerificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.records, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []order.Event
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if evt, ok := event.(order.Event); ok {
		f.events = append(f.events, evt)
	}
	return nil
}

func (f *fakePublisher) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.events))
	for i, e := range f.events {
		types[i] = e.Type
	}
	return types
}

type testEnv struct {
	service   *Service
	orders    *mocks.MockOrderStore
	products  *mocks.MockProductStore
	users     *mocks.MockUserStore
	gateway   *fakeGateway
	publisher *fakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	products := mocks.NewMockProductStore()
	users := mocks.NewMockUserStore()
	orderStore := mocks.NewMockOrderStore(products, users)
	gateway := &fakeGateway{}
	publisher := &fakePublisher{}

	ctx := context.Background()
	require.NoError(t, users.Insert(ctx, &user.User{
		ID: "user-1", Name: "Rahim", Email: "rahim@example.com", Role: user.RoleCustomer, Status: user.StatusActive,
	}))
	require.NoError(t, users.Insert(ctx, &user.User{
		ID: "user-2", Name: "Karim", Email: "karim@example.com", Role: user.RoleCustomer, Status: user.StatusActive,
	}))
	require.NoError(t, products.Insert(ctx, &product.Product{
		ID: "prod-1", Name: "Roadster Pro", Category: "Road", Price: 500.00, Stock: 10,
	}))
	require.NoError(t, products.Insert(ctx, &product.Product{
		ID: "prod-2", Name: "City Cruiser", Category: "Hybrid", Price: 120.50, Stock: 5,
	}))

	return &testEnv{
		service:   NewService(orderStore, users, gateway, publisher),
		orders:    orderStore,
		products:  products,
		users:     users,
		gateway:   gateway,
		publisher: publisher,
	}
}

func testAddress() order.ShippingAddress {
	return order.ShippingAddress{
		Street:  "12 Lake Road",
		City:    "Dhaka",
		State:   "Dhaka",
		ZipCode: "1207",
		Country: "Bangladesh",
	}
}

func testInput(items ...ItemInput) CreateOrderInput {
	if len(items) == 0 {
		items = []ItemInput{{ProductID: "prod-1", Quantity: 2, Price: 500.00}}
	}
	return CreateOrderInput{
		Items:           items,
		ShippingAddress: testAddress(),
		PhoneNumber:     "01700000000",
		PaymentMethod:   "shurjopay",
	}
}

// Create

func TestCreate_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.service.Create(ctx, "user-1", testInput(), "10.0.0.1")

	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.Equal(t, order.StatusPending, result.Order.Status)
	assert.Equal(t, order.PaymentPending, result.Order.PaymentStatus)
	assert.InDelta(t, 1000.00, result.Order.TotalPrice, 0.001)
	assert.NotEmpty(t, result.CheckoutURL)
	require.NotNil(t, result.Order.Transaction)
	assert.Equal(t, "sp-"+result.Order.ID, result.Order.Transaction.ID)

	// stock reserved
	assert.Equal(t, 8, env.products.Stock("prod-1"))

	// order persisted
	stored, err := env.orders.FindByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)

	assert.Equal(t, []string{order.EventOrderPlaced}, env.publisher.eventTypes())
}

func TestCreate_MultiItemTotal(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.service.Create(context.Background(), "user-1", testInput(
		ItemInput{ProductID: "prod-1", Quantity: 1, Price: 500.00},
		ItemInput{ProductID: "prod-2", Quantity: 3, Price: 120.50},
	), "10.0.0.1")

	require.NoError(t, err)
	assert.InDelta(t, 861.50, result.Order.TotalPrice, 0.001)
	assert.Equal(t, 9, env.products.Stock("prod-1"))
	assert.Equal(t, 2, env.products.Stock("prod-2"))
}

func TestCreate_UserNotFound(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.service.Create(context.Background(), "nobody", testInput(), "10.0.0.1")

	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.Nil(t, result)
	assert.Equal(t, 10, env.products.Stock("prod-1"))
}

func TestCreate_ProductNotFound(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.service.Create(context.Background(), "user-1", testInput(
		ItemInput{ProductID: "prod-1", Quantity: 1, Price: 500.00},
		ItemInput{ProductID: "ghost", Quantity: 1, Price: 9.99},
	), "10.0.0.1")

	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.Nil(t, result)
	// nothing was reserved for the valid line either
	assert.Equal(t, 10, env.products.Stock("prod-1"))
	assert.Zero(t, env.gateway.payCalls)
}

func TestCreate_InsufficientStock(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.service.Create(context.Background(), "user-1", testInput(
		ItemInput{ProductID: "prod-2", Quantity: 6, Price: 120.50},
	), "10.0.0.1")

	assert.ErrorIs(t, err, product.ErrInsufficientStock)
	assert.Nil(t, result)
	assert.Equal(t, 5, env.products.Stock("prod-2"))
	assert.Zero(t, env.gateway.payCalls)
}

func TestCreate_EmptyOrder(t *testing.T) {
	env := newTestEnv(t)

	in := testInput()
	in.Items = nil
	result, err := env.service.Create(context.Background(), "user-1", in, "10.0.0.1")

	assert.ErrorIs(t, err, order.ErrEmptyOrder)
	assert.Nil(t, result)
}

func TestCreate_GatewayFailureKeepsOrder(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.payErr = shurjopay.ErrGateway
	ctx := context.Background()

	result, err := env.service.Create(ctx, "user-1", testInput(), "10.0.0.1")

	require.Error(t, err)
	assert.ErrorIs(t, err, shurjopay.ErrGateway)
	// the order was committed before the gateway call
	require.NotNil(t, result)
	require.NotNil(t, result.Order)
	assert.Empty(t, result.CheckoutURL)

	stored, findErr := env.orders.FindByID(ctx, result.Order.ID)
	require.NoError(t, findErr)
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.Equal(t, order.PaymentPending, stored.PaymentStatus)
	assert.Nil(t, stored.Transaction)

	// stock stays reserved until the order is cancelled
	assert.Equal(t, 8, env.products.Stock("prod-1"))
}

func TestCreate_ConcurrentNeverOversells(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 20 // prod-2 has stock 5
	var wg sync.WaitGroup
	successes := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.service.Create(ctx, "user-1", testInput(
				ItemInput{ProductID: "prod-2", Quantity: 1, Price: 120.50},
			), "10.0.0.1")
			if err == nil {
				successes <- result.Order.ID
			}
		}()
	}
	wg.Wait()
	close(successes)

	var ids []string
	for id := range successes {
		ids = append(ids, id)
	}
	assert.Len(t, ids, 5)
	assert.Equal(t, 0, env.products.Stock("prod-2"))
}

// UpdateStatus

func mustCreate(t *testing.T, env *testEnv, in CreateOrderInput) *order.Order {
	t.Helper()
	result, err := env.service.Create(context.Background(), "user-1", in, "10.0.0.1")
	require.NoError(t, err)
	return result.Order
}

func TestUpdateStatus_ForwardProgression(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput())

	for _, target := range []order.Status{order.StatusPaid, order.StatusShipped, order.StatusCompleted} {
		updated, err := env.service.UpdateStatus(ctx, o.ID, target)
		require.NoError(t, err)
		assert.Equal(t, target, updated.Status)
	}
}

func TestUpdateStatus_SkippingStateRejected(t *testing.T) {
	env := newTestEnv(t)
	o := mustCreate(t, env, testInput())

	_, err := env.service.UpdateStatus(context.Background(), o.ID, order.StatusShipped)

	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	o := mustCreate(t, env, testInput())

	_, err := env.service.UpdateStatus(context.Background(), o.ID, order.Status("delivered"))

	assert.ErrorIs(t, err, order.ErrInvalidStatus)
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.UpdateStatus(context.Background(), "nope", order.StatusPaid)

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestUpdateStatus_CancelRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput()) // 2x prod-1
	require.Equal(t, 8, env.products.Stock("prod-1"))

	updated, err := env.service.UpdateStatus(ctx, o.ID, order.StatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, updated.Status)
	assert.Equal(t, 10, env.products.Stock("prod-1"))
	assert.Equal(t, []string{order.EventOrderPlaced, order.EventOrderCancelled}, env.publisher.eventTypes())
}

func TestUpdateStatus_RecancelDoesNotDoubleCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput())

	_, err := env.service.UpdateStatus(ctx, o.ID, order.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, 10, env.products.Stock("prod-1"))

	_, err = env.service.UpdateStatus(ctx, o.ID, order.StatusCancelled)

	assert.ErrorIs(t, err, order.ErrOrderCancelled)
	assert.Equal(t, 10, env.products.Stock("prod-1"))
}

func TestUpdateStatus_CancelFromAnyActiveState(t *testing.T) {
	for _, from := range []order.Status{order.StatusPaid, order.StatusShipped, order.StatusCompleted} {
		t.Run(string(from), func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			o := mustCreate(t, env, testInput())

			steps := map[order.Status][]order.Status{
				order.StatusPaid:      {order.StatusPaid},
				order.StatusShipped:   {order.StatusPaid, order.StatusShipped},
				order.StatusCompleted: {order.StatusPaid, order.StatusShipped, order.StatusCompleted},
			}
			for _, s := range steps[from] {
				_, err := env.service.UpdateStatus(ctx, o.ID, s)
				require.NoError(t, err)
			}

			updated, err := env.service.UpdateStatus(ctx, o.ID, order.StatusCancelled)
			require.NoError(t, err)
			assert.Equal(t, order.StatusCancelled, updated.Status)
			assert.Equal(t, 10, env.products.Stock("prod-1"))
		})
	}
}

// CancelOwn

func TestCancelOwn_Success(t *testing.T) {
	env := newTestEnv(t)
	o := mustCreate(t, env, testInput())

	updated, err := env.service.CancelOwn(context.Background(), o.ID, "user-1", order.StatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, updated.Status)
	assert.Equal(t, 10, env.products.Stock("prod-1"))
}

func TestCancelOwn_OtherUsersOrder(t *testing.T) {
	env := newTestEnv(t)
	o := mustCreate(t, env, testInput())

	_, err := env.service.CancelOwn(context.Background(), o.ID, "user-2", order.StatusCancelled)

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 8, env.products.Stock("prod-1"))
}

func TestCancelOwn_OnlyCancelAccepted(t *testing.T) {
	env := newTestEnv(t)
	o := mustCreate(t, env, testInput())

	_, err := env.service.CancelOwn(context.Background(), o.ID, "user-1", order.StatusPaid)

	assert.ErrorIs(t, err, order.ErrInvalidStatus)
}

// VerifyPayment

func TestVerifyPayment_SuccessMarksPaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput())
	spRef := "sp-" + o.ID

	env.gateway.records = []shurjopay.VerificationRecord{{
		SpOrderID:         spRef,
		Amount:            o.TotalPrice,
		BankStatus:        "Success",
		SPCode:            "1000",
		SPMessage:         "Success",
		Method:            "Bkash",
		DateTime:          "2026-01-15 10:30:00",
		TransactionStatus: "Completed",
	}}

	records, err := env.service.VerifyPayment(ctx, spRef)

	require.NoError(t, err)
	require.Len(t, records, 1)

	stored, err := env.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, stored.PaymentStatus)
	require.NotNil(t, stored.Transaction)
	assert.Equal(t, "Success", stored.Transaction.BankStatus)
	assert.Equal(t, "Bkash", stored.Transaction.Method)
	assert.Equal(t, "1000", stored.Transaction.SPCode)
}

func TestVerifyPayment_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput())
	spRef := "sp-" + o.ID

	env.gateway.records = []shurjopay.VerificationRecord{{
		SpOrderID: spRef, BankStatus: "Success", TransactionStatus: "Completed",
	}}

	_, err := env.service.VerifyPayment(ctx, spRef)
	require.NoError(t, err)
	_, err = env.service.VerifyPayment(ctx, spRef)
	require.NoError(t, err)

	stored, err := env.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, stored.PaymentStatus)
}

func TestVerifyPayment_BankStatusMapping(t *testing.T) {
	tests := []struct {
		bankStatus string
		want       order.PaymentStatus
	}{
		{"Success", order.PaymentPaid},
		{"Failed", order.PaymentPending},
		{"Cancel", order.PaymentCancel},
	}

	for _, tt := range tests {
		t.Run(tt.bankStatus, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			o := mustCreate(t, env, testInput())
			spRef := "sp-" + o.ID

			env.gateway.records = []shurjopay.VerificationRecord{{
				SpOrderID: spRef, BankStatus: tt.bankStatus,
			}}

			_, err := env.service.VerifyPayment(ctx, spRef)
			require.NoError(t, err)

			stored, err := env.orders.FindByID(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.PaymentStatus)
		})
	}
}

func TestVerifyPayment_UnknownBankStatusKeepsCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput())
	spRef := "sp-" + o.ID

	// first mark it paid
	env.gateway.records = []shurjopay.VerificationRecord{{SpOrderID: spRef, BankStatus: "Success"}}
	_, err := env.service.VerifyPayment(ctx, spRef)
	require.NoError(t, err)

	// then a record with an unrecognized bank status arrives
	env.gateway.records = []shurjopay.VerificationRecord{{SpOrderID: spRef, BankStatus: "Mystery"}}
	_, err = env.service.VerifyPayment(ctx, spRef)
	require.NoError(t, err)

	stored, err := env.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, "Mystery", stored.Transaction.BankStatus)
}

func TestVerifyPayment_NoRecords(t *testing.T) {
	env := newTestEnv(t)
	o := mustCreate(t, env, testInput())

	env.gateway.records = nil
	records, err := env.service.VerifyPayment(context.Background(), "sp-"+o.ID)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestVerifyPayment_GatewayError(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.verifyErr = shurjopay.ErrGateway

	_, err := env.service.VerifyPayment(context.Background(), "sp-x")

	assert.ErrorIs(t, err, shurjopay.ErrGateway)
}

func TestVerifyPayment_UnknownReference(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.records = []shurjopay.VerificationRecord{{SpOrderID: "sp-ghost", BankStatus: "Success"}}

	_, err := env.service.VerifyPayment(context.Background(), "sp-ghost")

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

// Get / List / SoftDelete

func TestGet_OwnershipEnforcedForCustomers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput())

	got, err := env.service.Get(ctx, o.ID, Caller{UserID: "user-1", Role: user.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = env.service.Get(ctx, o.ID, Caller{UserID: "user-2", Role: user.RoleCustomer})
	assert.ErrorIs(t, err, ErrUnauthorized)

	got, err = env.service.Get(ctx, o.ID, Caller{UserID: "admin-1", Role: user.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestList_PaginationMath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.products.Insert(ctx, &product.Product{
		ID: "prod-bulk", Name: "Junior Sprint", Category: "Kids", Price: 310.00, Stock: 100,
	}))
	for i := 0; i < 25; i++ {
		mustCreate(t, env, testInput(ItemInput{ProductID: "prod-bulk", Quantity: 1, Price: 310.00}))
	}

	page1, err := env.service.List(ctx, 1, 10, store.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, page1.Data, 10)
	assert.Equal(t, 25, page1.Meta.Total)
	assert.Equal(t, 3, page1.Meta.TotalPage)

	page3, err := env.service.List(ctx, 3, 10, store.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, page3.Data, 5)

	page4, err := env.service.List(ctx, 4, 10, store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, page4.Data)
	assert.Equal(t, 3, page4.Meta.TotalPage)
}

func TestList_DefaultsAndClamping(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, testInput(ItemInput{ProductID: "prod-1", Quantity: 1, Price: 500.00}))

	paged, err := env.service.List(context.Background(), 0, -5, store.ListFilter{})

	require.NoError(t, err)
	assert.Equal(t, 1, paged.Meta.Page)
	assert.Equal(t, 10, paged.Meta.Limit)
	assert.Len(t, paged.Data, 1)
}

func TestList_EmptyResultIsNotNil(t *testing.T) {
	env := newTestEnv(t)

	paged, err := env.service.List(context.Background(), 1, 10, store.ListFilter{})

	require.NoError(t, err)
	assert.NotNil(t, paged.Data)
	assert.Empty(t, paged.Data)
	assert.Equal(t, 0, paged.Meta.Total)
	assert.Equal(t, 0, paged.Meta.TotalPage)
}

func TestList_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	o1 := mustCreate(t, env, testInput(ItemInput{ProductID: "prod-1", Quantity: 1, Price: 500.00}))
	mustCreate(t, env, testInput(ItemInput{ProductID: "prod-1", Quantity: 1, Price: 500.00}))
	_, err := env.service.UpdateStatus(ctx, o1.ID, order.StatusPaid)
	require.NoError(t, err)

	paged, err := env.service.List(ctx, 1, 10, store.ListFilter{Status: "paid"})
	require.NoError(t, err)
	require.Len(t, paged.Data, 1)
	assert.Equal(t, o1.ID, paged.Data[0].ID)
}

func TestListMine_OnlyOwnOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput(ItemInput{ProductID: "prod-1", Quantity: 1, Price: 500.00}))

	other, err := env.service.Create(ctx, "user-2", testInput(ItemInput{ProductID: "prod-1", Quantity: 1, Price: 500.00}), "10.0.0.1")
	require.NoError(t, err)

	mine, err := env.service.ListMine(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o.ID, mine[0].ID)
	assert.NotEqual(t, other.Order.ID, mine[0].ID)
}

func TestSoftDelete_HidesOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput())

	deleted, err := env.service.SoftDelete(ctx, o.ID, Caller{UserID: "user-1", Role: user.RoleCustomer})
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	_, err = env.service.Get(ctx, o.ID, Caller{UserID: "user-1", Role: user.RoleCustomer})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	mine, err := env.service.ListMine(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, mine)

	paged, err := env.service.List(ctx, 1, 10, store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, paged.Data)
}

func TestSoftDelete_AlreadyDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o := mustCreate(t, env, testInput())
	caller := Caller{UserID: "user-1", Role: user.RoleCustomer}

	_, err := env.service.SoftDelete(ctx, o.ID, caller)
	require.NoError(t, err)

	_, err = env.service.SoftDelete(ctx, o.ID, caller)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestSoftDelete_Ownership(t *testing.T) {
	env := newTestEnv(t)
	o := mustCreate(t, env, testInput())

	_, err := env.service.SoftDelete(context.Background(), o.ID, Caller{UserID: "user-2", Role: user.RoleCustomer})
	assert.ErrorIs(t, err, ErrUnauthorized)

	deleted, err := env.service.SoftDelete(context.Background(), o.ID, Caller{UserID: "admin-1", Role: user.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
}

func TestPublishFailureDoesNotFailCreate(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")

	result, err := env.service.Create(context.Background(), "user-1", testInput(), "10.0.0.1")

	require.NoError(t, err)
	assert.NotNil(t, result.Order)
}

func TestCreatedOrderTimestamps(t *testing.T) {
	env := newTestEnv(t)
	before := time.Now().UTC().Add(-time.Second)

	result, err := env.service.Create(context.Background(), "user-1", testInput(), "10.0.0.1")

	require.NoError(t, err)
	assert.True(t, result.Order.CreatedAt.After(before))
	assert.True(t, result.Order.CreatedAt.Before(time.Now().UTC().Add(time.Second)))
}
