package brand

import (
	"time"
)

type Status string

var (
	Active    Status = "active"
	Suspended Status = "suspended"
	Archived  Status = "archived"
)

// Brand is a tenant of the gamification engine. Creating one provisions the
// default tier ladder and scoring rules so scoring works from the first event.
type Brand struct {
	ID        string    `gorm:"column:id;primaryKey" json:"brand_id"`
	Name      string    `gorm:"column:name" json:"name"`
	Slug      string    `gorm:"column:slug;uniqueIndex" json:"slug"`
	Code      string    `gorm:"column:code" json:"code"`
	Status    Status    `gorm:"column:status" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Brand) TableName() string { return "brands" }
