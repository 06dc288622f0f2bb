package rule

import (
	"time"
)

// BonusRule awards extra points when its CEL expression matches a scoring
// event's facts. Matched rules produce separate bonus ledger entries in the
// same transaction as the triggering event.
type BonusRule struct {
	ID          string    `gorm:"column:id;primaryKey" json:"rule_id"`
	BrandID     string    `gorm:"column:brand_id;index" json:"brand_id"`
	Name        string    `gorm:"column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	EventType   string    `gorm:"column:event_type" json:"event_type,omitempty"`
	Expression  string    `gorm:"column:expression" json:"expression"`
	BonusPoints int64     `gorm:"column:bonus_points" json:"bonus_points"`
	Priority    int       `gorm:"column:priority" json:"priority"`
	IsActive    bool      `gorm:"column:is_active" json:"is_active"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (BonusRule) TableName() string { return "bonus_rules" }
