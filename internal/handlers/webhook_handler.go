package handlers

import (
	"log"

	"mall/internal/middleware"
	"mall/internal/services"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler receives the provider's asynchronous payment
// notifications. A notification carries only the provider-side payment
// identifier; the handler maps it back to a local payment via the
// merchant-generated uid and reconciles it. Deliveries may repeat and may
// arrive before or after the buyer's browser returns; reconciliation is
// idempotent, so re-delivery is harmless.
type WebhookHandler struct {
	payments   *services.PaymentService
	allowedIPs []string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(payments *services.PaymentService, allowedIPs []string) *WebhookHandler {
	return &WebhookHandler{
		payments:   payments,
		allowedIPs: allowedIPs,
	}
}

// RegisterRoutes registers the webhook route, guarded by the source-IP
// allowlist.
func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/webhook", middleware.AllowIPs(h.allowedIPs), h.HandleWebhook)
}

// HandleWebhook reconciles the payment named in the notification payload.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload struct {
		Data struct {
			PaymentID string `json:"paymentId"`
		} `json:"data"`
	}
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook payload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid webhook payload",
			"error":   err.Error(),
		})
	}
	if payload.Data.PaymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "paymentId is required",
		})
	}

	payment, err := h.payments.Reconcile(payload.Data.PaymentID)
	if err != nil {
		log.Printf("Error reconciling payment %s from webhook: %v", payload.Data.PaymentID, err)
		return errorJSON(c, "Could not reconcile payment", err)
	}

	log.Printf("Webhook reconciled payment %s: pay_status=%s is_paid_ok=%t", payment.UID, payment.PayStatus, payment.IsPaidOK)
	return c.SendString("ok")
}
