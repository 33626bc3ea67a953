package models

// User represents a customer or administrator account.
type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Email    string `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password string `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	FullName string `json:"full_name" gorm:"type:varchar(200)"`
	Address  string `json:"address" gorm:"type:text"`
	IsAdmin  bool   `json:"is_admin" gorm:"not null;default:false"`
}
