package services

import (
	"fmt"

	"mall/internal/models"
	"mall/internal/repositories"
)

// CartService handles business logic for the pre-checkout cart.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddToCart puts quantity units of a product (with an optional option) into
// the user's cart. An existing line for the same (product, option) pair gets
// its quantity bumped instead of a duplicate row.
func (s *CartService) AddToCart(userID, productID string, optionID *string, quantity int) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, fmt.Errorf("product %s not found: %w", productID, err)
	}
	if product.Status != models.ProductStatusActive {
		return nil, fmt.Errorf("product %s is not available for sale", product.Name)
	}
	if optionID != nil {
		option, err := s.productRepo.GetOptionByID(*optionID)
		if err != nil {
			return nil, fmt.Errorf("product option %s not found: %w", *optionID, err)
		}
		if option.ProductID != productID {
			return nil, fmt.Errorf("option %s does not belong to product %s", option.Name, product.Name)
		}
	}

	line, err := s.cartRepo.FindLine(userID, productID, optionID)
	if err == nil {
		line.Quantity += quantity
		if err := s.cartRepo.Update(line); err != nil {
			return nil, fmt.Errorf("failed to update cart line: %w", err)
		}
		return line, nil
	}

	newLine := &models.CartLine{
		UserID:    userID,
		ProductID: productID,
		OptionID:  optionID,
		Quantity:  quantity,
	}
	if err := s.cartRepo.Create(newLine); err != nil {
		return nil, fmt.Errorf("failed to create cart line: %w", err)
	}
	return newLine, nil
}

// UpdateQuantity changes the quantity of one of the user's cart lines.
func (s *CartService) UpdateQuantity(userID, lineID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	line, err := s.cartRepo.GetByID(lineID)
	if err != nil {
		return err
	}
	if line.UserID != userID {
		return fmt.Errorf("cart line with ID %s not found", lineID)
	}
	line.Quantity = quantity
	return s.cartRepo.Update(line)
}

// Remove deletes one of the user's cart lines.
func (s *CartService) Remove(userID, lineID string) error {
	line, err := s.cartRepo.GetByID(lineID)
	if err != nil {
		return err
	}
	if line.UserID != userID {
		return fmt.Errorf("cart line with ID %s not found", lineID)
	}
	return s.cartRepo.Delete(lineID)
}

// List returns the user's cart lines with products and options loaded.
func (s *CartService) List(userID string) ([]models.CartLine, error) {
	return s.cartRepo.ListByUser(userID)
}

// TotalAmount sums the line amounts of the user's cart.
func (s *CartService) TotalAmount(userID string) (int64, error) {
	lines, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for i := range lines {
		total += lines[i].Amount()
	}
	return total, nil
}

// ClearForOrder removes the user's cart lines that were materialized into
// the given order. Called only after payment success has been confirmed, so
// an abandoned or failed checkout leaves the cart intact for retry.
func (s *CartService) ClearForOrder(userID string, order *models.Order) error {
	lines, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return err
	}

	ordered := make(map[string]bool, len(order.Items))
	for _, item := range order.Items {
		ordered[item.ProductID] = true
	}

	var ids []string
	for _, line := range lines {
		if ordered[line.ProductID] {
			ids = append(ids, line.ID)
		}
	}
	return s.cartRepo.DeleteByIDs(ids)
}
