package handlers

import (
	"log"

	"mall/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetCatalog)
	productRoutes.Get("/:id", h.HandleGetProductByID)
}

// HandleGetCatalog lists the products currently on sale.
func (h *ProductHandler) HandleGetCatalog(c *fiber.Ctx) error {
	products, err := h.service.GetCatalog()
	if err != nil {
		log.Printf("Error getting catalog: %v", err)
		return errorJSON(c, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product with its options.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID := c.Params("id")
	product, err := h.service.GetProductByID(productID)
	if err != nil {
		log.Printf("Error getting product by ID %s: %v", productID, err)
		return errorJSON(c, "Could not retrieve product", err)
	}
	return c.JSON(product)
}
