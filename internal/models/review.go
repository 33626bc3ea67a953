package models

import "time"

// Review is a product rating left by an authenticated user.
type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProductID uint      `json:"product_id" gorm:"index;not null"`
	Product   *Product  `json:"-" gorm:"constraint:OnDelete:RESTRICT"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	User      *User     `json:"author,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	Rating    int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}
