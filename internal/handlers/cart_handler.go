package handlers

import (
	"log"

	"mall/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the pre-checkout cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app. All routes
// operate on the authenticated user's own cart.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/:productID", h.HandleAddToCart)
	cartRoutes.Patch("/:lineID", h.HandleUpdateQuantity)
	cartRoutes.Delete("/:lineID", h.HandleRemoveLine)
}

// HandleGetCart returns the user's cart lines and the running total.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	userID := currentUserID(c)

	lines, err := h.service.List(userID)
	if err != nil {
		log.Printf("Error listing cart for user %s: %v", userID, err)
		return errorJSON(c, "Could not retrieve cart", err)
	}

	var total int64
	for i := range lines {
		total += lines[i].Amount()
	}

	return c.JSON(fiber.Map{
		"lines": lines,
		"total": total,
	})
}

// HandleAddToCart adds a product (with an optional option) to the cart.
func (h *CartHandler) HandleAddToCart(c *fiber.Ctx) error {
	userID := currentUserID(c)
	productID := c.Params("productID")

	var req struct {
		Quantity int     `json:"quantity" validate:"required,gte=1"`
		OptionID *string `json:"option_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add-to-cart request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Quantity must be at least 1",
		})
	}

	line, err := h.service.AddToCart(userID, productID, req.OptionID, req.Quantity)
	if err != nil {
		log.Printf("Error adding product %s to cart for user %s: %v", productID, userID, err)
		return errorJSON(c, "Could not add product to cart", err)
	}

	return c.Status(fiber.StatusCreated).JSON(line)
}

// HandleUpdateQuantity changes the quantity of one cart line.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	userID := currentUserID(c)
	lineID := c.Params("lineID")

	var req struct {
		Quantity int `json:"quantity" validate:"required,gte=1"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Quantity must be at least 1",
		})
	}

	if err := h.service.UpdateQuantity(userID, lineID, req.Quantity); err != nil {
		log.Printf("Error updating cart line %s for user %s: %v", lineID, userID, err)
		return errorJSON(c, "Could not update cart line", err)
	}

	return c.JSON(fiber.Map{
		"message": "Cart line updated",
	})
}

// HandleRemoveLine deletes one cart line.
func (h *CartHandler) HandleRemoveLine(c *fiber.Ctx) error {
	userID := currentUserID(c)
	lineID := c.Params("lineID")

	if err := h.service.Remove(userID, lineID); err != nil {
		log.Printf("Error removing cart line %s for user %s: %v", lineID, userID, err)
		return errorJSON(c, "Could not remove cart line", err)
	}

	return c.JSON(fiber.Map{
		"message": "Cart line removed",
	})
}
