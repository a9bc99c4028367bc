package models

import "time"

// Role 用户角色。封闭枚举，鉴权处不要比较裸字符串。
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// IsAdmin reports whether the role grants admin rights.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// User represents a registered trader.
// Points 是发布物品消耗的积分，注册送 2 分，发布一件扣 1 分。
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:20;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:User" json:"role"`
	Email        string    `gorm:"size:50;uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"size:50;not null" json:"name"`
	Address      string    `gorm:"size:50;not null" json:"address"`
	PhoneNumber  string    `gorm:"size:20;uniqueIndex;not null" json:"phone_number"`
	// 不能带 default 标签：GORM 会把零值积分改写成默认值，注册时显式赋初始分
	Points       int       `gorm:"not null" json:"points"`
	RegisteredAt time.Time `json:"registered_at"`

	Items    []Item    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Bookings []Booking `gorm:"foreignKey:BookerUserID" json:"-"`
}
