package repositories

import (
	"mall/internal/models"
)

// CartRepository defines the interface for cart line data access.
type CartRepository interface {
	ListByUser(userID string) ([]models.CartLine, error)
	GetByID(id string) (*models.CartLine, error)
	// FindLine locates the user's line for a (product, option) pair.
	FindLine(userID, productID string, optionID *string) (*models.CartLine, error)
	Create(line *models.CartLine) error
	Update(line *models.CartLine) error
	Delete(id string) error
	DeleteByIDs(ids []string) error
}
