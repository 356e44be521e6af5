package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// PayMethod is the payment instrument chosen by the buyer.
type PayMethod string

const (
	PayMethodCard           PayMethod = "card"
	PayMethodVirtualAccount PayMethod = "virtual_account"
)

// PayStatus mirrors the provider's payment status 1:1.
type PayStatus string

const (
	PayStatusReady                PayStatus = "READY"
	PayStatusPaid                 PayStatus = "PAID"
	PayStatusCancelled            PayStatus = "CANCELLED"
	PayStatusFailed               PayStatus = "FAILED"
	PayStatusVirtualAccountIssued PayStatus = "VIRTUAL_ACCOUNT_ISSUED"
)

// Payment is one attempt to settle an order's total amount with the
// external provider. An order may accumulate several attempts; successful
// reconciliation of one removes its siblings.
type Payment struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UID           string          `json:"uid" gorm:"uniqueIndex;type:varchar(36)"` // merchant-generated provider identifier
	OrderID       string          `json:"order_id" gorm:"index;type:varchar(36)"`
	Meta          json.RawMessage `json:"meta,omitempty"` // latest raw provider response, kept verbatim for audit
	Name          string          `json:"name"`
	DesiredAmount int64           `json:"desired_amount"` // copied from Order.TotalAmount, never changes
	BuyerName     string          `json:"buyer_name"`
	BuyerEmail    string          `json:"buyer_email"`
	PayMethod     PayMethod       `json:"pay_method" gorm:"type:varchar(20);default:card"`
	PayStatus     PayStatus       `json:"pay_status" gorm:"type:varchar(22);default:READY"`
	IsPaidOK      bool            `json:"is_paid_ok" gorm:"index"`

	Order Order `json:"-" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	gorm.Model
}
