package models

// Category groups products. Name and slug are unique.
type Category struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Slug string `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
}
