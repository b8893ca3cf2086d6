package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/order"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/email"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/infrastructure/store"
)

// Handler processes order events for sending notifications
type Handler struct {
	emailService *email.Service
	users        store.UserStore
	products     store.ProductStore
}

// NewHandler creates a new notification handler
func NewHandler(emailSvc *email.Service, users store.UserStore, products store.ProductStore) *Handler {
	return &Handler{
		emailService: emailSvc,
		users:        users,
		products:     products,
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.Type {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(ctx, event)
	case order.EventOrderCancelled:
		return h.handleOrderCancelled(ctx, event)
	}

	return nil
}

func (h *Handler) handleOrderPlaced(ctx context.Context, event order.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPlaced event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing OrderPlaced event for order %s, user %s", e.OrderID, e.UserID)

	u, err := h.users.FindByID(ctx, e.UserID)
	if err != nil {
		log.Printf("[Notifier] Error getting user %s: %v", e.UserID, err)
		return nil
	}

	emailItems := h.emailItems(ctx, e.Items)

	if err := h.emailService.SendOrderConfirmation(u.Email, e.OrderID, e.TotalPrice, emailItems); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", u.Email, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation email sent to %s for order %s", u.Email, e.OrderID)
	return nil
}

func (h *Handler) handleOrderCancelled(ctx context.Context, event order.Event) error {
	var e order.OrderCancelled
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderCancelled event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing OrderCancelled event for order %s, user %s", e.OrderID, e.UserID)

	u, err := h.users.FindByID(ctx, e.UserID)
	if err != nil {
		log.Printf("[Notifier] Error getting user %s: %v", e.UserID, err)
		return nil
	}

	emailItems := h.emailItems(ctx, e.Items)

	if err := h.emailService.SendOrderCancellation(u.Email, e.OrderID, emailItems); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", u.Email, err)
		return err
	}

	log.Printf("[Notifier] Order cancellation email sent to %s for order %s", u.Email, e.OrderID)
	return nil
}

func (h *Handler) emailItems(ctx context.Context, items []order.Item) []email.OrderItem {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	names := map[string]string{}
	if products, err := h.products.FindByIDs(ctx, ids); err == nil {
		for id, p := range products {
			names[id] = p.Name
		}
	}

	emailItems := make([]email.OrderItem, len(items))
	for i, item := range items {
		name := names[item.ProductID]
		if name == "" {
			name = item.ProductID
		}
		emailItems[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return emailItems
}
