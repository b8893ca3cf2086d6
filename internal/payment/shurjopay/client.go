package shurjopay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// ErrGateway marks payment-provider failures: unreachable endpoint, non-2xx
// responses, malformed bodies. Callers must not treat it as an order failure.
var ErrGateway = errors.New("payment gateway error")

// Config holds the merchant credentials and endpoints.
type Config struct {
	Endpoint  string // e.g. https://sandbox.shurjopayment.com
	Username  string
	Password  string
	Prefix    string // merchant order-id prefix
	ReturnURL string
	CancelURL string
}

// PaymentRequest is the initiate payload built from a committed order.
type PaymentRequest struct {
	Amount          float64
	OrderID         string
	Currency        string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	CustomerCity    string
	ClientIP        string
}

// PaymentResponse is the provider's initiate result. SpOrderID is the
// external transaction reference used for later verification.
type PaymentResponse struct {
	CheckoutURL       string  `json:"checkout_url"`
	Amount            float64 `json:"amount"`
	SpOrderID         string  `json:"sp_order_id"`
	CustomerOrderID   string  `json:"customer_order_id"`
	Currency          string  `json:"currency"`
	TransactionStatus string  `json:"transaction_status"`
	Message           string  `json:"message"`
}

// VerificationRecord is one provider-side transaction record for a reference.
type VerificationRecord struct {
	SpOrderID         string  `json:"order_id"`
	Amount            float64 `json:"amount"`
	BankStatus        string  `json:"bank_status"`
	SPCode            string  `json:"sp_code"`
	SPMessage         string  `json:"sp_message"`
	Method            string  `json:"method"`
	DateTime          string  `json:"date_time"`
	TransactionStatus string  `json:"transaction_status"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	StoreID   int    `json:"store_id"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	Message   string `json:"message"`
}

// Client talks to the ShurjoPay HTTP API. The bearer token is cached until
// shortly before expiry; all calls are safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	storeID     int
	tokenExpiry time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// MakePayment initiates a checkout session for the order.
func (c *Client) MakePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	token, storeID, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"token":            token,
		"store_id":         storeID,
		"prefix":           c.cfg.Prefix,
		"return_url":       c.cfg.ReturnURL,
		"cancel_url":       c.cfg.CancelURL,
		"amount":           req.Amount,
		"order_id":         req.OrderID,
		"currency":         req.Currency,
		"customer_name":    req.CustomerName,
		"customer_address": req.CustomerAddress,
		"customer_email":   req.CustomerEmail,
		"customer_phone":   req.CustomerPhone,
		"customer_city":    req.CustomerCity,
		"client_ip":        req.ClientIP,
	}

	var resp PaymentResponse
	if err := c.post(ctx, "/api/secret-pay", token, payload, &resp); err != nil {
		return nil, err
	}
	if resp.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: initiate returned no checkout url: %s", ErrGateway, resp.Message)
	}
	return &resp, nil
}

// VerifyPayment fetches the provider-side transaction records for an
// external reference. Zero records means the provider knows nothing yet.
func (c *Client) VerifyPayment(ctx context.Context, spOrderID string) ([]VerificationRecord, error) {
	token, _, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"order_id": spOrderID}
	var records []VerificationRecord
	if err := c.post(ctx, "/api/verification", token, payload, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// getToken returns the cached bearer token, fetching a fresh one when the
// cache is empty or within a minute of expiry.
func (c *Client) getToken(ctx context.Context) (string, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, c.storeID, nil
	}

	payload := map[string]any{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	}
	var resp tokenResponse
	if err := c.post(ctx, "/api/get_token", "", payload, &resp); err != nil {
		return "", 0, err
	}
	if resp.Token == "" {
		return "", 0, fmt.Errorf("%w: token request rejected: %s", ErrGateway, resp.Message)
	}

	c.token = resp.Token
	c.storeID = resp.StoreID
	c.tokenExpiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	log.Printf("[ShurjoPay] Token refreshed, expires in %ds", resp.ExpiresIn)
	return c.token, c.storeID, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrGateway, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", ErrGateway, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s returned malformed response: %v", ErrGateway, path, err)
	}
	return nil
}
