package handlers

import (
	"log"

	"mall/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders and their payments.
type OrderHandler struct {
	orders   *services.OrderService
	payments *services.PaymentService
	cart     *services.CartService
	auth     *services.AuthService
	shopID   string // provider shop id handed to the client-side payment flow
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders *services.OrderService, payments *services.PaymentService, cart *services.CartService, auth *services.AuthService, shopID string) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		payments: payments,
		cart:     cart,
		auth:     auth,
		shopID:   shopID,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/", h.HandleCheckout)
	orderRoutes.Get("/:uid", h.HandleGetOrderByUID)
	orderRoutes.Post("/:uid/pay", h.HandleStartPayment)
	orderRoutes.Get("/:uid/check/:paymentUID", h.HandleCheckPayment)
	orderRoutes.Post("/:uid/cancel", h.HandleCancelOrder)
	orderRoutes.Post("/:uid/prepared", h.HandleMarkPrepared)
	orderRoutes.Post("/:uid/shipped", h.HandleMarkShipped)
	orderRoutes.Post("/:uid/delivered", h.HandleMarkDelivered)
}

// HandleGetOrders lists the authenticated user's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	userID := currentUserID(c)
	orders, err := h.orders.ListByUser(userID)
	if err != nil {
		log.Printf("Error listing orders for user %s: %v", userID, err)
		return errorJSON(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByUID retrieves one of the user's orders.
func (h *OrderHandler) HandleGetOrderByUID(c *fiber.Ctx) error {
	userID := currentUserID(c)
	uid := c.Params("uid")

	order, err := h.orders.GetByUID(userID, uid)
	if err != nil {
		log.Printf("Error getting order %s: %v", uid, err)
		return errorJSON(c, "Could not retrieve order", err)
	}
	return c.JSON(fiber.Map{
		"order":  order,
		"locked": order.IsLocked(),
	})
}

// HandleCheckout materializes the user's cart into a new order. The cart is
// left intact; it is cleared once a payment succeeds.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	userID := currentUserID(c)

	result, err := h.orders.CreateFromCart(userID)
	if err != nil {
		log.Printf("Error creating order from cart for user %s: %v", userID, err)
		return errorJSON(c, "Could not create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleStartPayment creates a payment attempt for an order and returns the
// fields the client-side provider flow needs.
func (h *OrderHandler) HandleStartPayment(c *fiber.Ctx) error {
	userID := currentUserID(c)
	uid := c.Params("uid")

	order, err := h.orders.GetByUID(userID, uid)
	if err != nil {
		return errorJSON(c, "Could not retrieve order", err)
	}
	user, err := h.auth.GetUserByID(userID)
	if err != nil {
		return errorJSON(c, "Could not load user", err)
	}

	payment, err := h.payments.CreateByOrder(order, user)
	if err != nil {
		log.Printf("Error starting payment for order %s: %v", uid, err)
		return errorJSON(c, "Could not start payment", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"shop_id": h.shopID,
		"payment": fiber.Map{
			"merchant_uid": payment.UID,
			"name":         payment.Name,
			"amount":       payment.DesiredAmount,
			"buyer_name":   payment.BuyerName,
			"buyer_email":  payment.BuyerEmail,
			"pay_method":   payment.PayMethod,
		},
	})
}

// HandleCheckPayment is the browser-return path: the buyer lands here after
// the provider's payment UI, and the payment is reconciled against the
// provider's records. On confirmed success the cart lines behind the order
// are finally cleared.
func (h *OrderHandler) HandleCheckPayment(c *fiber.Ctx) error {
	userID := currentUserID(c)
	uid := c.Params("uid")
	paymentUID := c.Params("paymentUID")

	order, err := h.orders.GetByUID(userID, uid)
	if err != nil {
		return errorJSON(c, "Could not retrieve order", err)
	}

	payment, err := h.payments.Reconcile(paymentUID)
	if err != nil {
		log.Printf("Error reconciling payment %s: %v", paymentUID, err)
		return errorJSON(c, "Could not verify payment", err)
	}

	if payment.IsPaidOK {
		if err := h.cart.ClearForOrder(userID, order); err != nil {
			// The payment itself settled; a failed cart cleanup must not
			// fail the response.
			log.Printf("Warning: failed to clear cart after payment %s: %v", paymentUID, err)
		}
	}

	order, err = h.orders.GetByUID(userID, uid)
	if err != nil {
		return errorJSON(c, "Could not retrieve order", err)
	}
	return c.JSON(fiber.Map{
		"order":   order,
		"payment": payment,
	})
}

// HandleCancelOrder cancels an order and any settled payment behind it.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	userID := currentUserID(c)
	uid := c.Params("uid")

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.orders.Cancel(userID, uid, req.Reason); err != nil {
		log.Printf("Error cancelling order %s: %v", uid, err)
		return errorJSON(c, "Could not cancel order", err)
	}
	return c.JSON(fiber.Map{
		"message": "Order cancelled",
	})
}

// HandleMarkPrepared moves a paid order into product preparation.
func (h *OrderHandler) HandleMarkPrepared(c *fiber.Ctx) error {
	return h.handleTransition(c, h.orders.MarkPrepared, "Order marked as prepared")
}

// HandleMarkShipped moves a prepared order into shipping.
func (h *OrderHandler) HandleMarkShipped(c *fiber.Ctx) error {
	return h.handleTransition(c, h.orders.MarkShipped, "Order marked as shipped")
}

// HandleMarkDelivered completes fulfillment of a shipped order.
func (h *OrderHandler) HandleMarkDelivered(c *fiber.Ctx) error {
	return h.handleTransition(c, h.orders.MarkDelivered, "Order marked as delivered")
}

func (h *OrderHandler) handleTransition(c *fiber.Ctx, transition func(string) error, message string) error {
	uid := c.Params("uid")
	if err := transition(uid); err != nil {
		log.Printf("Error transitioning order %s: %v", uid, err)
		return errorJSON(c, "Could not update order status", err)
	}
	return c.JSON(fiber.Map{
		"message": message,
	})
}
