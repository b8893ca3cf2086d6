package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/api/middleware"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/auth"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.AuthMiddleware(jwtService)
	admin := middleware.RequireRole(user.RoleAdmin)
	customer := middleware.RequireRole(user.RoleCustomer)
	anyRole := middleware.RequireRole(user.RoleAdmin, user.RoleCustomer)

	// Auth
	mux.Handle("/api/auth/register", method(http.MethodPost, authHandlers.Register))
	mux.Handle("/api/auth/login", method(http.MethodPost, authHandlers.Login))

	// Orders
	mux.Handle("/api/orders", authed(admin(method(http.MethodGet, handlers.GetOrders))))
	mux.Handle("/api/orders/create-order", authed(customer(method(http.MethodPost, handlers.CreateOrder))))
	mux.Handle("/api/orders/verify", authed(customer(method(http.MethodGet, handlers.VerifyPayment))))
	mux.Handle("/api/orders/my-orders", authed(customer(method(http.MethodGet, handlers.GetMyOrders))))

	cancelOrder := customer(http.HandlerFunc(handlers.CancelOrder))
	softDeleteOrder := anyRole(http.HandlerFunc(handlers.SoftDeleteOrder))
	getOrder := anyRole(http.HandlerFunc(handlers.GetOrder))
	updateStatus := admin(http.HandlerFunc(handlers.UpdateOrderStatus))

	mux.Handle("/api/orders/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/cancel") && r.Method == http.MethodPatch:
			cancelOrder.ServeHTTP(w, r)
		case strings.HasSuffix(path, "/soft-delete") && r.Method == http.MethodPatch:
			softDeleteOrder.ServeHTTP(w, r)
		case r.Method == http.MethodGet:
			getOrder.ServeHTTP(w, r)
		case r.Method == http.MethodPatch:
			updateStatus.ServeHTTP(w, r)
		default:
			respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Sales
	mux.Handle("/api/sales/dashboard", authed(admin(method(http.MethodGet, handlers.SalesDashboard))))

	return withLogging(mux)
}

// method restricts a handler to a single HTTP method
func method(verb string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != verb {
			respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
