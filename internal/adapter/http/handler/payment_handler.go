package handler

import (
	"paylite-payment-service/internal/adapter/http/dto"
	"paylite-payment-service/internal/adapter/http/middleware"
	"paylite-payment-service/internal/core/domain"
	"paylite-payment-service/internal/core/ports"
	"paylite-payment-service/pkg/apperror"
	"paylite-payment-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment-related endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// CreatePayment handles POST /api/v1/payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	idempotencyKey := c.GetHeader(middleware.HeaderIdempotencyKey)
	if idempotencyKey == "" {
		response.Error(c, apperror.ErrMissingIdempotencyKey())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.paymentSvc.CreatePayment(c.Request.Context(), ports.CreatePaymentRequest{
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Reference:     req.Reference,
	}, idempotencyKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Replays return 201 as well: the client cannot tell a retry from the
	// first delivery, which is the point of the idempotency key.
	response.Created(c, dto.CreatePaymentResponse{
		PaymentID: result.PaymentID,
		Status:    result.Status,
	})
}

// GetPayment handles GET /api/v1/payments/:paymentId.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// toPaymentResponse converts domain.Payment to DTO.
func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		PaymentID:     p.PaymentID,
		Amount:        p.Amount.String(),
		Currency:      p.Currency,
		CustomerEmail: p.CustomerEmail,
		Reference:     p.Reference,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
