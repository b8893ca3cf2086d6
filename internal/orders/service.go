package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/order"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/infrastructure/store"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/payment/shurjopay"
)

// ErrUnauthorized is returned when a customer acts on another customer's order.
var ErrUnauthorized = errors.New("you are not authorized")

// PaymentGateway is the outbound contract to the payment provider.
type PaymentGateway interface {
	MakePayment(ctx context.Context, req shurjopay.PaymentRequest) (*shurjopay.PaymentResponse, error)
	VerifyPayment(ctx context.Context, spOrderID string) ([]shurjopay.VerificationRecord, error)
}

// EventPublisher publishes order lifecycle events. Publishing is always
// best-effort; a publish failure never affects order state.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Service is the order lifecycle engine: it owns creation with stock
// reservation, the status state machine, payment reconciliation and all
// order read paths.
type Service struct {
	orders    store.OrderStore
	users     store.UserStore
	gateway   PaymentGateway
	publisher EventPublisher
}

func NewService(orders store.OrderStore, users store.UserStore, gateway PaymentGateway, publisher EventPublisher) *Service {
	return &Service{
		orders:    orders,
		users:     users,
		gateway:   gateway,
		publisher: publisher,
	}
}

// Caller identifies who is invoking a customer-scoped operation.
type Caller struct {
	UserID string
	Role   string
}

type ItemInput struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type CreateOrderInput struct {
	Items           []ItemInput           `json:"items"`
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
	PhoneNumber     string                `json:"phone_number"`
	PaymentMethod   string                `json:"payment_method"`
}

type CreateOrderResult struct {
	Order       *order.Order               `json:"order"`
	CheckoutURL string                     `json:"checkout_url,omitempty"`
	Payment     *shurjopay.PaymentResponse `json:"payment,omitempty"`
}

// Create reserves stock and persists the order in one atomic unit, then
// initiates payment outside of it. A gateway failure after the commit is
// returned to the caller together with the created order: the order stays
// pending and is reconciled later through VerifyPayment.
func (s *Service) Create(ctx context.Context, userID string, in CreateOrderInput, clientIP string) (*CreateOrderResult, error) {
	usr, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]order.Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, order.Item{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}

	o, err := order.New(uuid.New().String(), userID, items, in.ShippingAddress, in.PhoneNumber, in.PaymentMethod)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	log.Printf("[Orders] Order %s created for user %s, total %.2f", o.ID, userID, o.TotalPrice)

	s.publish(ctx, order.EventOrderPlaced, o.ID, order.OrderPlaced{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Items:      o.Items,
		TotalPrice: o.TotalPrice,
		PlacedAt:   o.CreatedAt,
	})

	resp, err := s.gateway.MakePayment(ctx, shurjopay.PaymentRequest{
		Amount:          o.TotalPrice,
		OrderID:         o.ID,
		Currency:        "BDT",
		CustomerName:    usr.Name,
		CustomerEmail:   usr.Email,
		CustomerPhone:   o.PhoneNumber,
		CustomerAddress: o.ShippingAddress.State,
		CustomerCity:    o.ShippingAddress.City,
		ClientIP:        clientIP,
	})
	if err != nil {
		// The order is already committed; stock stays reserved and the
		// caller retries through verification later.
		log.Printf("[Orders] Payment initiation failed for order %s: %v", o.ID, err)
		return &CreateOrderResult{Order: o}, fmt.Errorf("initiate payment for order %s: %w", o.ID, err)
	}

	txn := &order.Transaction{
		ID:                resp.SpOrderID,
		TransactionStatus: resp.TransactionStatus,
	}
	if err := s.orders.UpdateTransaction(ctx, o.ID, txn, ""); err != nil {
		log.Printf("[Orders] Failed to record transaction %s on order %s: %v", resp.SpOrderID, o.ID, err)
	} else {
		o.Transaction = txn
	}

	return &CreateOrderResult{Order: o, CheckoutURL: resp.CheckoutURL, Payment: resp}, nil
}

// UpdateStatus is the admin-scoped transition. Cancellation releases every
// line item's reserved stock inside the store's transaction.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target order.Status) (*order.Order, error) {
	if !order.KnownStatus(target) {
		return nil, fmt.Errorf("%w: %q", order.ErrInvalidStatus, target)
	}

	prev, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, target)
	if err != nil {
		return nil, err
	}
	log.Printf("[Orders] Order %s status %s -> %s", orderID, prev.Status, target)

	if target == order.StatusCancelled {
		s.publish(ctx, order.EventOrderCancelled, orderID, order.OrderCancelled{
			OrderID:     orderID,
			UserID:      updated.UserID,
			Items:       updated.Items,
			CancelledAt: time.Now().UTC(),
		})
	} else {
		s.publish(ctx, order.EventOrderStatusChanged, orderID, order.OrderStatusChanged{
			OrderID:   orderID,
			OldStatus: prev.Status,
			NewStatus: target,
			ChangedAt: time.Now().UTC(),
		})
	}
	return updated, nil
}

// CancelOwn is the customer-scoped cancel: the order must belong to the
// caller and the only accepted target is cancelled.
func (s *Service) CancelOwn(ctx context.Context, orderID, userID string, target order.Status) (*order.Order, error) {
	if target != order.StatusCancelled {
		return nil, fmt.Errorf("%w: %q", order.ErrInvalidStatus, target)
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrUnauthorized
	}

	return s.UpdateStatus(ctx, orderID, order.StatusCancelled)
}

// VerifyPayment reconciles local payment state from the provider's records.
// Re-verifying the same reference re-applies the same mapping; the
// transaction fields are simply overwritten with the latest snapshot.
func (s *Service) VerifyPayment(ctx context.Context, spOrderID string) ([]shurjopay.VerificationRecord, error) {
	records, err := s.gateway.VerifyPayment(ctx, spOrderID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	rec := records[0]
	txn := &order.Transaction{
		ID:                spOrderID,
		TransactionStatus: rec.TransactionStatus,
		BankStatus:        rec.BankStatus,
		SPCode:            rec.SPCode,
		SPMessage:         rec.SPMessage,
		Method:            rec.Method,
		DateTime:          rec.DateTime,
	}
	ps := paymentStatusFor(rec.BankStatus)
	if ps == "" {
		log.Printf("[Orders] Unrecognized bank status %q for %s; payment status left unchanged", rec.BankStatus, spOrderID)
	}

	if _, err := s.orders.UpdateTransactionByRef(ctx, spOrderID, txn, ps); err != nil {
		return nil, err
	}
	log.Printf("[Orders] Verified payment %s: bank status %q", spOrderID, rec.BankStatus)
	return records, nil
}

// paymentStatusFor maps the provider's bank status onto the payment axis.
// Failed maps back to pending: the payment can be retried. Unknown values
// return "" meaning keep the current payment status.
func paymentStatusFor(bankStatus string) order.PaymentStatus {
	switch bankStatus {
	case "Success":
		return order.PaymentPaid
	case "Failed":
		return order.PaymentPending
	case "Cancel":
		return order.PaymentCancel
	}
	return ""
}

// Get returns a single non-deleted order. Customers may only fetch their own.
func (s *Service) Get(ctx context.Context, orderID string, caller Caller) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller.Role == user.RoleCustomer && o.UserID != caller.UserID {
		return nil, ErrUnauthorized
	}
	return o, nil
}

type PageMeta struct {
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	Total     int `json:"total"`
	TotalPage int `json:"totalPage"`
}

type PagedOrders struct {
	Data []*order.Order `json:"data"`
	Meta PageMeta       `json:"meta"`
}

// List returns a page of orders for the admin listing.
func (s *Service) List(ctx context.Context, page, limit int, filter store.ListFilter) (*PagedOrders, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	data, total, err := s.orders.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []*order.Order{}
	}

	return &PagedOrders{
		Data: data,
		Meta: PageMeta{
			Page:      page,
			Limit:     limit,
			Total:     total,
			TotalPage: (total + limit - 1) / limit,
		},
	}, nil
}

// ListMine returns the caller's own non-deleted orders.
func (s *Service) ListMine(ctx context.Context, userID string) ([]*order.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// SoftDelete marks the order deleted. Same ownership rule as Get; deleting
// an already-deleted order reports not found.
func (s *Service) SoftDelete(ctx context.Context, orderID string, caller Caller) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller.Role == user.RoleCustomer && o.UserID != caller.UserID {
		return nil, ErrUnauthorized
	}

	if err := s.orders.SoftDelete(ctx, orderID); err != nil {
		return nil, err
	}
	o.IsDeleted = true
	return o, nil
}

func (s *Service) publish(ctx context.Context, eventType, orderID string, payload any) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Orders] Failed to marshal %s for order %s: %v", eventType, orderID, err)
		return
	}
	evt := order.Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OrderID:    orderID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, orderID, evt); err != nil {
		log.Printf("[Orders] Failed to publish %s for order %s: %v", eventType, orderID, err)
	}
}
