package models

import "time"

// Category represents an item category. Seeded at first boot,
// admins can add more; cannot be deleted while items reference it.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Items []Item `json:"items,omitempty"`
}
