package models

import "gorm.io/gorm"

// ProductStatus is the sales status of a product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusSoldOut  ProductStatus = "sold_out"
	ProductStatusObsolete ProductStatus = "obsolete"
)

// Product represents a product in the store.
// Price is stored in minor currency units.
type Product struct {
	ID          string        `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string        `json:"name" gorm:"index" validate:"required,min=1,max=100"`
	Description string        `json:"description" validate:"omitempty,max=2000"`
	Price       int64         `json:"price" validate:"gte=0"`
	Status      ProductStatus `json:"status" gorm:"type:varchar(10);default:active" validate:"omitempty,oneof=active inactive sold_out obsolete"`
	Options     []ProductOption `json:"options" gorm:"constraint:OnDelete:CASCADE"`
	gorm.Model                // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// ProductOption is a selectable variant of a product (color, size, ...)
// carrying an additional price on top of the product price.
type ProductOption struct {
	ID              string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	ProductID       string `json:"product_id" gorm:"index;type:varchar(36)"`
	Name            string `json:"name" validate:"required,max=100"`
	AdditionalPrice int64  `json:"additional_price" validate:"gte=0"`
	gorm.Model
}
