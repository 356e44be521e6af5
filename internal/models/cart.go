package models

import "gorm.io/gorm"

// CartLine is one pending selection of product+option+quantity in a
// user's cart. A user holds at most one line per (product, option) pair;
// adding the same pair again bumps the quantity instead.
type CartLine struct {
	ID        string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string  `json:"user_id" gorm:"type:varchar(36);uniqueIndex:idx_cart_user_product_option"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36);uniqueIndex:idx_cart_user_product_option"`
	OptionID  *string `json:"option_id" gorm:"type:varchar(36);uniqueIndex:idx_cart_user_product_option"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`

	Product Product        `json:"product" gorm:"foreignKey:ProductID"`
	Option  *ProductOption `json:"option,omitempty" gorm:"foreignKey:OptionID"`
	gorm.Model
}

// Amount is the line total: (product price + option surcharge) * quantity.
// Product (and Option, when set) must be loaded.
func (c *CartLine) Amount() int64 {
	unit := c.Product.Price
	if c.Option != nil {
		unit += c.Option.AdditionalPrice
	}
	return unit * int64(c.Quantity)
}
