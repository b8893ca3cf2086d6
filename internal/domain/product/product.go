package product

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is the catalog snapshot the order core reads: identity, display
// fields for reporting, and the stock counter owned by the order engine
// during reservation and restitution.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"image_url"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	IsDeleted bool      `json:"is_deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
