package repositories

import (
	"fmt"
	"mall/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// ListByUser retrieves a user's cart lines with products and options loaded.
func (r *GORMCartRepository) ListByUser(userID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.Preload("Product").Preload("Option").Where("user_id = ?", userID).Order("created_at asc").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to list cart lines for user %s: %w", userID, err)
	}
	return lines, nil
}

// GetByID retrieves a single cart line by its ID.
func (r *GORMCartRepository) GetByID(id string) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.db.Preload("Product").Preload("Option").First(&line, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("cart line with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get cart line by ID %s: %w", id, err)
	}
	return &line, nil
}

// FindLine locates the user's line for a (product, option) pair.
func (r *GORMCartRepository) FindLine(userID, productID string, optionID *string) (*models.CartLine, error) {
	query := r.db.Where("user_id = ? AND product_id = ?", userID, productID)
	if optionID == nil {
		query = query.Where("option_id IS NULL")
	} else {
		query = query.Where("option_id = ?", *optionID)
	}

	var line models.CartLine
	if err := query.First(&line).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("cart line for user %s and product %s not found", userID, productID)
		}
		return nil, fmt.Errorf("failed to find cart line for user %s: %w", userID, err)
	}
	return &line, nil
}

// Create adds a new cart line.
func (r *GORMCartRepository) Create(line *models.CartLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	if err := r.db.Create(line).Error; err != nil {
		return fmt.Errorf("failed to create cart line: %w", err)
	}
	return nil
}

// Update updates an existing cart line.
func (r *GORMCartRepository) Update(line *models.CartLine) error {
	res := r.db.Save(line)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart line with ID %s not found for update", line.ID)
	}
	return nil
}

// Delete removes a cart line by its ID.
func (r *GORMCartRepository) Delete(id string) error {
	res := r.db.Delete(&models.CartLine{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart line with ID %s not found for deletion", id)
	}
	return nil
}

// DeleteByIDs removes the given cart lines. Already-deleted lines are not an
// error; checkout cleanup may run after a retried reconciliation.
func (r *GORMCartRepository) DeleteByIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Delete(&models.CartLine{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete cart lines: %w", err)
	}
	return nil
}
