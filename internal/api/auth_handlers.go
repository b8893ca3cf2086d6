package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/auth"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/infrastructure/store"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	users      store.UserStore
	jwtService *auth.JWTService
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(users store.UserStore, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		users:      users,
		jwtService: jwtService,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" {
		respondError(w, "Name and email are required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			respondError(w, "Password must be at least 8 characters", http.StatusBadRequest)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	newUser := &user.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleCustomer,
		Status:       user.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Insert(r.Context(), newUser); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			respondError(w, "Email already registered", http.StatusConflict)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondSuccess(w, http.StatusCreated, "User registered successfully", toUserResponse(newUser))
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil || u.IsDeleted {
		respondError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if u.Status == user.StatusDeactivated {
		respondError(w, "Account is deactivated", http.StatusForbidden)
		return
	}

	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		respondError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(u.ID, u.Email, u.Role)
	if err != nil {
		respondError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondSuccess(w, http.StatusOK, "Login successful", LoginResponse{
		Token: token,
		User:  toUserResponse(u),
	})
}
