package handler

import (
	"bytes"
	"encoding/json"
	"io"

	"paylite-payment-service/internal/adapter/http/dto"
	"paylite-payment-service/internal/adapter/http/middleware"
	"paylite-payment-service/internal/core/ports"
	"paylite-payment-service/pkg/apperror"
	"paylite-payment-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler handles inbound provider webhook deliveries.
type WebhookHandler struct {
	webhookSvc ports.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// HandlePSPWebhook handles POST /api/v1/webhooks/psp.
// The signature is verified over the exact raw body bytes before any JSON
// binding; re-serialized JSON would not match what the provider signed.
func (h *WebhookHandler) HandlePSPWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(rawBody))

	signature := c.GetHeader(middleware.HeaderSignature)
	if !h.webhookSvc.VerifySignature(signature, rawBody) {
		response.Error(c, apperror.ErrInvalidSignature())
		return
	}

	var req dto.WebhookRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if req.PaymentID == "" || req.Event == "" {
		response.Error(c, apperror.Validation("payment_id and event are required"))
		return
	}

	result, err := h.webhookSvc.ProcessWebhook(c.Request.Context(), ports.WebhookRequest{
		PaymentID:  req.PaymentID,
		Event:      req.Event,
		RawPayload: rawBody,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookResponse{
		Status:  result.Status,
		Message: result.Message,
	})
}
