package dto

import "github.com/shopspring/decimal"

// CreatePaymentRequest is the request body for payment creation.
// Amount accepts a JSON number or string; positivity is enforced by the
// payment service so the check is not bypassable from other entry points.
type CreatePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency" binding:"required,len=3"`
	CustomerEmail string          `json:"customer_email" binding:"required,email"`
	Reference     string          `json:"reference" binding:"required,max=100"`
}

// CreatePaymentResponse is the response body for payment creation.
type CreatePaymentResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// PaymentResponse is the full payment view for retrieval.
type PaymentResponse struct {
	PaymentID     string `json:"payment_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// WebhookRequest is the request body for provider webhook deliveries.
// Binding runs only after the raw body has passed signature verification.
type WebhookRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	Event     string `json:"event" binding:"required"`
}

// WebhookResponse is the response body for webhook processing.
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
