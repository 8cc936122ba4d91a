package handler

import (
	"io"

	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"
	"custodial-wallet-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderGatewaySignature carries the gateway's HMAC over the raw body.
const HeaderGatewaySignature = "x-paystack-signature"

// WebhookHandler receives settlement events from the payment gateway.
type WebhookHandler struct {
	settlementSvc ports.SettlementService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(settlementSvc ports.SettlementService) *WebhookHandler {
	return &WebhookHandler{settlementSvc: settlementSvc}
}

// Receive handles POST /api/v1/webhooks/gateway. The signature is verified
// over the exact raw bytes, so the body must not be parsed or re-encoded
// before verification.
func (h *WebhookHandler) Receive(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("unable to read request body"))
		return
	}

	signature := c.GetHeader(HeaderGatewaySignature)
	if err := h.settlementSvc.Settle(c.Request.Context(), signature, rawBody); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"status": "acknowledged"})
}
