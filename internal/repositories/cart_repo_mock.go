package repositories

import (
	"fmt"
	"sync"
	"time"
	"mall/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	lines map[string]models.CartLine
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		lines: make(map[string]models.CartLine),
	}
}

// ListByUser returns a user's cart lines.
func (r *MockCartRepository) ListByUser(userID string) ([]models.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lineList := make([]models.CartLine, 0)
	for _, line := range r.lines {
		if line.UserID == userID {
			lineList = append(lineList, line)
		}
	}
	return lineList, nil
}

// GetByID returns a cart line by its ID.
func (r *MockCartRepository) GetByID(id string) (*models.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	line, ok := r.lines[id]
	if !ok {
		return nil, fmt.Errorf("cart line with ID %s not found", id)
	}
	return &line, nil
}

// FindLine locates the user's line for a (product, option) pair.
func (r *MockCartRepository) FindLine(userID, productID string, optionID *string) (*models.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, line := range r.lines {
		if line.UserID != userID || line.ProductID != productID {
			continue
		}
		if (line.OptionID == nil) != (optionID == nil) {
			continue
		}
		if optionID != nil && *line.OptionID != *optionID {
			continue
		}
		return &line, nil
	}
	return nil, fmt.Errorf("cart line for user %s and product %s not found", userID, productID)
}

// Create adds a new cart line.
func (r *MockCartRepository) Create(line *models.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	line.CreatedAt = time.Now()
	line.UpdatedAt = time.Now()
	r.lines[line.ID] = *line
	return nil
}

// Update modifies an existing cart line.
func (r *MockCartRepository) Update(line *models.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.lines[line.ID]
	if !ok {
		return fmt.Errorf("cart line with ID %s not found for update", line.ID)
	}
	line.UpdatedAt = time.Now()
	r.lines[line.ID] = *line
	return nil
}

// Delete removes a cart line by its ID.
func (r *MockCartRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.lines[id]
	if !ok {
		return fmt.Errorf("cart line with ID %s not found for deletion", id)
	}
	delete(r.lines, id)
	return nil
}

// DeleteByIDs removes the given cart lines, ignoring ones already gone.
func (r *MockCartRepository) DeleteByIDs(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.lines, id)
	}
	return nil
}
