package models

import "time"

// Booking 对某件物品的一次预订。历史记录不物理删除，取消只置 IsActive=false。
// 同一物品同一时刻最多一条 is_active 记录，由 migration 建立的
// 部分唯一索引 uniq_active_booking_per_item 在存储层保证。
type Booking struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ItemID       uint       `gorm:"index;not null" json:"item_id"`
	BookerUserID uint       `gorm:"index;not null" json:"booker_user_id"`
	BookedAt     time.Time  `gorm:"not null" json:"booked_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`

	Item       Item `json:"-"`
	BookerUser User `gorm:"foreignKey:BookerUserID;constraint:OnDelete:RESTRICT" json:"-"`
}
