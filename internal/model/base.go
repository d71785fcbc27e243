package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the UUID primary key and timestamps shared by every table.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All lists every model for AutoMigrate, parents before children.
func All() []any {
	return []any{
		&Vendor{},
		&Ingredient{},
		&Product{},
		&ProductVariant{},
		&Recipe{},
		&ProductionBatch{},
		&Order{},
		&OrderItem{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&PackagingMaterial{},
	}
}
