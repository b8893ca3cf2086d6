package order

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks the gateway-driven payment axis, independent of the
// fulfillment Status above.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentCancel  PaymentStatus = "cancel"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrEmptyOrder       = errors.New("order must have at least one item")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidPrice     = errors.New("price must be zero or greater")
	ErrInvalidAddress   = errors.New("shipping address is incomplete")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrOrderCancelled   = errors.New("order is already cancelled")
)

// validTransitions defines the forward progression of the fulfillment
// lifecycle. cancelled is reachable from every non-cancelled state and is
// terminal.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusCancelled},
	StatusCancelled: {},
}

// KnownStatus reports whether s is one of the recognized status values.
func KnownStatus(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionError returns an appropriate error for an invalid transition.
func (o *Order) TransitionError(target Status) error {
	if o.Status == StatusCancelled {
		return ErrOrderCancelled
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatusTransition, o.Status, target)
}

// Item is a line item: a product reference with the quantity and the unit
// price snapshotted at order time. Items never change after creation.
type Item struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

func (a ShippingAddress) complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.ZipCode != "" && a.Country != ""
}

// Transaction is the gateway-side payment record. A nil Transaction means
// payment has not been attempted yet.
type Transaction struct {
	ID                string `json:"id"`
	TransactionStatus string `json:"transaction_status"`
	BankStatus        string `json:"bank_status"`
	SPCode            string `json:"sp_code"`
	SPMessage         string `json:"sp_message"`
	Method            string `json:"method"`
	DateTime          string `json:"date_time"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []Item          `json:"items"`
	TotalPrice      float64         `json:"total_price"`
	PhoneNumber     string          `json:"phone_number"`
	PaymentMethod   string          `json:"payment_method"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Transaction     *Transaction    `json:"transaction,omitempty"`
	IsDeleted       bool            `json:"is_deleted"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// New builds a pending order. The caller supplies the line-item prices; the
// total is the sum of line totals and is never recomputed afterwards.
func New(id, userID string, items []Item, addr ShippingAddress, phone, paymentMethod string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	var total float64
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if it.Price < 0 {
			return nil, ErrInvalidPrice
		}
		total += it.Price * float64(it.Quantity)
	}
	if !addr.complete() {
		return nil, ErrInvalidAddress
	}
	if phone == "" {
		return nil, errors.New("phone number is required")
	}
	if paymentMethod == "" {
		return nil, errors.New("payment method is required")
	}

	now := time.Now().UTC()
	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		TotalPrice:      total,
		PhoneNumber:     phone,
		PaymentMethod:   paymentMethod,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		ShippingAddress: addr,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
