package models

import (
	"fmt"

	"gorm.io/gorm"

	"mall/internal/apperrors"
)

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusRequested       OrderStatus = "REQUESTED"
	OrderStatusFailedPayment   OrderStatus = "FAILED_PAYMENT"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusPreparedProduct OrderStatus = "PREPARED_PRODUCT"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// Order is a placed purchase request. Its line items and total amount are
// snapshots taken at creation time and never change afterwards; only the
// status moves.
type Order struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UID         string      `json:"uid" gorm:"uniqueIndex;type:varchar(36)"` // external-facing token
	UserID      string      `json:"user_id" gorm:"index;type:varchar(36)"`
	TotalAmount int64       `json:"total_amount"`
	Status      OrderStatus `json:"status" gorm:"type:varchar(16);default:REQUESTED"`

	Items []OrderedProduct `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	gorm.Model
}

// OrderedProduct is an immutable line-item snapshot: name and price are
// copied from the product at order-creation time and stay decoupled from
// later product edits.
type OrderedProduct struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string `json:"order_id" gorm:"type:varchar(36);uniqueIndex:idx_order_product"`
	ProductID string `json:"product_id" gorm:"type:varchar(36);uniqueIndex:idx_order_product"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	gorm.Model
}

// CanPay reports whether a payment attempt may be started for this order.
func (o *Order) CanPay() bool {
	return o.Status == OrderStatusRequested || o.Status == OrderStatusFailedPayment
}

// IsLocked reports whether the order is closed for edits. Used by the
// presentation layer to freeze delivered orders.
func (o *Order) IsLocked() bool {
	return o.Status == OrderStatusDelivered
}

// CanCancel reports whether an order-level cancellation may be attempted.
func (o *Order) CanCancel() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}

// MarkAsPrepared moves a paid order into product preparation.
func (o *Order) MarkAsPrepared() error {
	if o.Status != OrderStatusPaid {
		return &apperrors.StateConflictError{Entity: "order", Status: string(o.Status), Action: "be marked as prepared"}
	}
	o.Status = OrderStatusPreparedProduct
	return nil
}

// MarkAsShipped moves a prepared order into shipping.
func (o *Order) MarkAsShipped() error {
	if o.Status != OrderStatusPreparedProduct {
		return &apperrors.StateConflictError{Entity: "order", Status: string(o.Status), Action: "be marked as shipped"}
	}
	o.Status = OrderStatusShipped
	return nil
}

// MarkAsDelivered completes fulfillment of a shipped order.
func (o *Order) MarkAsDelivered() error {
	if o.Status != OrderStatusShipped {
		return &apperrors.StateConflictError{Entity: "order", Status: string(o.Status), Action: "be marked as delivered"}
	}
	o.Status = OrderStatusDelivered
	return nil
}

// Name is the display name handed to the payment provider: the first
// item's name, suffixed with the number of remaining items.
func (o *Order) Name() string {
	if len(o.Items) == 0 {
		return "empty order"
	}
	if len(o.Items) == 1 {
		return o.Items[0].Name
	}
	return fmt.Sprintf("%s and %d more", o.Items[0].Name, len(o.Items)-1)
}
