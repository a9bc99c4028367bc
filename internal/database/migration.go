package database

import (
	"fmt"

	"github.com/Welazure/Item-trade-backend/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models,
// then applies the constraints GORM tags cannot express.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Item{},
		&models.Media{},
		&models.Booking{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// 同一物品最多一条进行中的预订。放在存储层做成部分唯一索引，
	// 并发下单时靠它兜底，应用层的 check-then-act 不足以保证。
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_booking_per_item
		 ON bookings(item_id) WHERE is_active = 1`,
	).Error; err != nil {
		return fmt.Errorf("create active booking index: %w", err)
	}

	return nil
}

// SeedCategories inserts the initial category set on first boot.
func SeedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := []models.Category{
		{Name: "Electronics"},
		{Name: "Furniture"},
		{Name: "Books"},
		{Name: "Clothing"},
		{Name: "Sports & Outdoors"},
		{Name: "Toys & Games"},
		{Name: "Home & Garden"},
		{Name: "Other"},
	}
	if err := db.Create(&seed).Error; err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	return nil
}
