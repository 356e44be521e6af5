package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mall/internal/apperrors"
	"mall/internal/models"
)

// OrderService handles order creation and the order lifecycle. It works on
// *gorm.DB directly because checkout and cancellation need multi-row
// transactions.
type OrderService struct {
	db       *gorm.DB
	payments *PaymentService
	mqClient EventPublisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(db *gorm.DB, payments *PaymentService, mqClient EventPublisher) *OrderService {
	return &OrderService{
		db:       db,
		payments: payments,
		mqClient: mqClient,
	}
}

// CheckoutResult is what checkout hands back: the created order plus the ids
// of the cart lines it was built from. The lines are NOT deleted here; they
// are cleared only once payment success is confirmed.
type CheckoutResult struct {
	Order       *models.Order `json:"order"`
	CartLineIDs []string      `json:"cart_line_ids"`
}

// CreateFromCart materializes the user's cart into a new order with status
// REQUESTED. The cart read, the order row, and the line-item snapshots share
// one transaction, so concurrent cart edits cannot produce a torn snapshot.
func (s *OrderService) CreateFromCart(userID string) (*CheckoutResult, error) {
	var order models.Order
	var cartLineIDs []string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var lines []models.CartLine
		if err := tx.Preload("Product").Preload("Option").Where("user_id = ?", userID).Order("created_at asc").Find(&lines).Error; err != nil {
			return fmt.Errorf("failed to load cart for user %s: %w", userID, err)
		}
		if len(lines) == 0 {
			return fmt.Errorf("cart for user %s is empty", userID)
		}

		var totalAmount int64
		items := make([]models.OrderedProduct, 0, len(lines))
		orderID := uuid.New().String()
		for i := range lines {
			line := &lines[i]
			totalAmount += line.Amount()

			// Snapshot at order time. The unit price includes the option
			// surcharge, so the order total always equals the sum of
			// price*quantity over its items.
			unitPrice := line.Product.Price
			name := line.Product.Name
			if line.Option != nil {
				unitPrice += line.Option.AdditionalPrice
				name = fmt.Sprintf("%s (%s)", name, line.Option.Name)
			}
			items = append(items, models.OrderedProduct{
				ID:        uuid.New().String(),
				OrderID:   orderID,
				ProductID: line.ProductID,
				Name:      name,
				Price:     unitPrice,
				Quantity:  line.Quantity,
			})
			cartLineIDs = append(cartLineIDs, line.ID)
		}

		order = models.Order{
			ID:          orderID,
			UID:         uuid.New().String(),
			UserID:      userID,
			TotalAmount: totalAmount,
			Status:      models.OrderStatusRequested,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{Order: &order, CartLineIDs: cartLineIDs}, nil
}

// ListByUser returns the user's orders, newest first.
func (s *OrderService) ListByUser(userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.Preload("Items").Where("user_id = ?", userID).Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// GetByUID returns one of the user's orders by its external-facing token.
func (s *OrderService) GetByUID(userID, uid string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").First(&order, "uid = ? AND user_id = ?", uid, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with UID %s not found", uid)
		}
		return nil, fmt.Errorf("failed to get order by UID %s: %w", uid, err)
	}
	return &order, nil
}

// MarkPrepared transitions a paid order into product preparation.
func (s *OrderService) MarkPrepared(uid string) error {
	return s.transition(uid, (*models.Order).MarkAsPrepared)
}

// MarkShipped transitions a prepared order into shipping.
func (s *OrderService) MarkShipped(uid string) error {
	return s.transition(uid, (*models.Order).MarkAsShipped)
}

// MarkDelivered completes fulfillment of a shipped order.
func (s *OrderService) MarkDelivered(uid string) error {
	return s.transition(uid, (*models.Order).MarkAsDelivered)
}

// transition loads the order under lock, applies the guarded mutation, and
// persists the new status. A guard failure leaves the row untouched.
func (s *OrderService) transition(uid string, mutate func(*models.Order) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockForUpdate(tx).First(&order, "uid = ?", uid).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order with UID %s not found", uid)
			}
			return fmt.Errorf("failed to load order %s: %w", uid, err)
		}
		if err := mutate(&order); err != nil {
			return err
		}
		return tx.Save(&order).Error
	})
}

// Cancel cancels an order: every PAID payment is cancelled at the provider
// (which moves the order to CANCELLED), payments in other states are skipped,
// and if nothing was cancellable the order is still moved to CANCELLED
// locally.
func (s *OrderService) Cancel(userID, orderUID, reason string) error {
	order, err := s.GetByUID(userID, orderUID)
	if err != nil {
		return err
	}
	if !order.CanCancel() {
		return &apperrors.StateConflictError{Entity: "order", Status: string(order.Status), Action: "be cancelled"}
	}

	var payments []models.Payment
	if err := s.db.Where("order_id = ?", order.ID).Find(&payments).Error; err != nil {
		return fmt.Errorf("failed to load payments for order %s: %w", orderUID, err)
	}

	cancelledAny := false
	for i := range payments {
		payment := &payments[i]
		if payment.PayStatus != models.PayStatusPaid {
			log.Printf("Skipping cancel of payment %s in status %s", payment.UID, payment.PayStatus)
			continue
		}
		if err := s.payments.CancelPayment(payment.UID, reason); err != nil {
			return err
		}
		cancelledAny = true
	}

	if !cancelledAny {
		// No settled payment to reverse; the order-level cancel still applies.
		order.Status = models.OrderStatusCancelled
		if err := s.db.Save(order).Error; err != nil {
			return fmt.Errorf("failed to cancel order %s: %w", orderUID, err)
		}
		s.publishOrderEvent("order.cancelled", order.UID, "", reason)
	}
	return nil
}

// publishOrderEvent emits a lifecycle event, best-effort.
func (s *OrderService) publishOrderEvent(routingKey, orderUID, paymentUID, detail string) {
	if s.mqClient == nil {
		return
	}
	body, err := json.Marshal(map[string]string{
		"order_uid":   orderUID,
		"payment_uid": paymentUID,
		"detail":      detail,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for order %s: %v", routingKey, orderUID, err)
		return
	}
	if err := s.mqClient.Publish("order", routingKey, body); err != nil {
		log.Printf("Warning: Failed to publish %s event for order %s: %v", routingKey, orderUID, err)
	}
}
