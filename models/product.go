package models

const ProductStatusActive = "active"

// Product is the slice of the catalog this core needs for conversation
// admission and notification titles. Full product CRUD is owned by the
// catalog service.
type Product struct {
	Model
	Title    string `json:"title"`
	SellerID uint   `json:"seller_id" gorm:"index;not null"`
	Seller   User   `gorm:"foreignKey:SellerID" json:"-"`
	Status   string `json:"status" gorm:"default:active"`
}
