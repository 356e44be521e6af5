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

// PaymentService handles payment attempts against the external provider and
// the reconciliation of provider state onto local Order/Payment state.
type PaymentService struct {
	db       *gorm.DB
	provider PaymentProvider
	mqClient EventPublisher
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(db *gorm.DB, provider PaymentProvider, mqClient EventPublisher) *PaymentService {
	return &PaymentService{
		db:       db,
		provider: provider,
		mqClient: mqClient,
	}
}

// CreateByOrder starts a new payment attempt for an order. The desired
// amount is copied from the order total and never changes afterwards. No
// provider call happens here; the provider is only consulted at
// reconciliation time.
func (s *PaymentService) CreateByOrder(order *models.Order, user *models.User) (*models.Payment, error) {
	if !order.CanPay() {
		return nil, &apperrors.StateConflictError{Entity: "order", Status: string(order.Status), Action: "start a payment"}
	}

	payment := &models.Payment{
		ID:            uuid.New().String(),
		UID:           uuid.New().String(),
		OrderID:       order.ID,
		Name:          order.Name(),
		DesiredAmount: order.TotalAmount,
		BuyerName:     user.DisplayName(),
		BuyerEmail:    user.Email,
		PayMethod:     models.PayMethodCard,
		PayStatus:     models.PayStatusReady,
		IsPaidOK:      false,
	}
	if err := s.db.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment for order %s: %w", order.UID, err)
	}
	return payment, nil
}

// GetByUID returns a payment by its merchant-generated identifier.
func (s *PaymentService) GetByUID(uid string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment with UID %s not found", uid)
		}
		return nil, fmt.Errorf("failed to get payment by UID %s: %w", uid, err)
	}
	return &payment, nil
}

// ListByOrder returns all payment attempts recorded for an order.
func (s *PaymentService) ListByOrder(orderID string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.Where("order_id = ?", orderID).Order("created_at asc").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments for order %s: %w", orderID, err)
	}
	return payments, nil
}

// Reconcile fetches the provider's view of a payment and maps it onto local
// state. Both the browser-return path and the webhook path land here, so the
// routine is idempotent and is serialized per order: the owning order row is
// locked for the whole routine, making concurrent duplicate deliveries
// converge to the same final state.
func (s *PaymentService) Reconcile(paymentUID string) (*models.Payment, error) {
	var payment models.Payment
	var routingKey string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "uid = ?", paymentUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("payment with UID %s not found", paymentUID)
			}
			return fmt.Errorf("failed to load payment %s: %w", paymentUID, err)
		}

		var order models.Order
		if err := lockForUpdate(tx).First(&order, "id = ?", payment.OrderID).Error; err != nil {
			return fmt.Errorf("failed to lock order %s: %w", payment.OrderID, err)
		}

		result, err := s.provider.Lookup(payment.UID)
		if err != nil {
			return err
		}

		// Only the latest provider snapshot is kept.
		payment.Meta = result.Raw
		payment.PayStatus = models.PayStatus(result.Status)
		payment.IsPaidOK = payment.PayStatus == models.PayStatusPaid && result.Amount == payment.DesiredAmount

		if payment.PayStatus == models.PayStatusPaid && result.Amount != payment.DesiredAmount {
			// Settled at the wrong amount. There is no review flag yet, so
			// this only logs and withholds is_paid_ok; the order status is
			// left as-is.
			log.Printf("Suspicious payment %s: provider settled %d but %d was requested (order %s)",
				payment.UID, result.Amount, payment.DesiredAmount, order.UID)
		}

		if err := tx.Save(&payment).Error; err != nil {
			return fmt.Errorf("failed to save payment %s: %w", payment.UID, err)
		}

		switch {
		case payment.IsPaidOK:
			// At most one live successful payment per order: stale sibling
			// attempts are removed so a later reconciliation of one of them
			// cannot touch the settled order. Deleting zero rows is fine,
			// which keeps re-runs of this branch harmless.
			if err := tx.Unscoped().Where("order_id = ? AND id <> ?", order.ID, payment.ID).Delete(&models.Payment{}).Error; err != nil {
				return fmt.Errorf("failed to delete sibling payments of %s: %w", payment.UID, err)
			}
			order.Status = models.OrderStatusPaid
			routingKey = "order.paid"
		case payment.PayStatus == models.PayStatusFailed:
			order.Status = models.OrderStatusFailedPayment
			routingKey = "order.failed_payment"
		case payment.PayStatus == models.PayStatusCancelled:
			order.Status = models.OrderStatusCancelled
			routingKey = "order.cancelled"
		default:
			// READY / VIRTUAL_ACCOUNT_ISSUED: nothing settled yet, the order
			// stays where it is.
			return nil
		}
		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to save order %s: %w", order.UID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if routingKey != "" {
		s.publishPaymentEvent(routingKey, &payment)
	}
	return &payment, nil
}

// CancelPayment cancels a settled payment at the provider and, on success,
// moves the payment and its owning order to CANCELLED. Only a completed
// payment may be cancelled; any other status fails before a network call is
// made. Provider business errors pass through as *apperrors.CancelError so
// callers can tell "already cancelled elsewhere" from an amount-consistency
// violation.
func (s *PaymentService) CancelPayment(paymentUID, reason string) error {
	var payment models.Payment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "uid = ?", paymentUID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("payment with UID %s not found", paymentUID)
			}
			return fmt.Errorf("failed to load payment %s: %w", paymentUID, err)
		}

		if payment.PayStatus != models.PayStatusPaid {
			return &apperrors.StateConflictError{Entity: "payment", Status: string(payment.PayStatus), Action: "be cancelled; only a completed payment may be cancelled"}
		}

		var order models.Order
		if err := lockForUpdate(tx).First(&order, "id = ?", payment.OrderID).Error; err != nil {
			return fmt.Errorf("failed to lock order %s: %w", payment.OrderID, err)
		}

		raw, err := s.provider.Cancel(payment.UID, reason)
		if err != nil {
			return err
		}

		payment.Meta = raw
		payment.PayStatus = models.PayStatusCancelled
		payment.IsPaidOK = false
		if err := tx.Save(&payment).Error; err != nil {
			return fmt.Errorf("failed to save payment %s: %w", payment.UID, err)
		}

		order.Status = models.OrderStatusCancelled
		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to save order %s: %w", order.UID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishPaymentEvent("order.cancelled", &payment)
	return nil
}

// publishPaymentEvent emits a lifecycle event after a reconciliation or
// cancellation outcome, best-effort.
func (s *PaymentService) publishPaymentEvent(routingKey string, payment *models.Payment) {
	if s.mqClient == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"payment_uid": payment.UID,
		"order_id":    payment.OrderID,
		"pay_status":  payment.PayStatus,
		"is_paid_ok":  payment.IsPaidOK,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for payment %s: %v", routingKey, payment.UID, err)
		return
	}
	if err := s.mqClient.Publish("order", routingKey, body); err != nil {
		log.Printf("Warning: Failed to publish %s event for payment %s: %v", routingKey, payment.UID, err)
	}
}
