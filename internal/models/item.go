package models

import "time"

// Item 一件挂牌置换的物品。
// 可被预订的条件：IsApproved == true 且不存在 is_active 的预订。
type Item struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	CategoryID  uint      `gorm:"index;not null" json:"category_id"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	Description string    `gorm:"size:500;not null" json:"description"`
	Request     string    `gorm:"size:500;not null" json:"request"` // 希望换到的东西
	IsApproved  bool      `gorm:"index;not null;default:false" json:"is_approved"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"-"`

	User     User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Category Category  `gorm:"constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	Media    []Media   `gorm:"constraint:OnDelete:CASCADE" json:"media,omitempty"`
	Bookings []Booking `gorm:"constraint:OnDelete:CASCADE" json:"bookings,omitempty"`
}
