package campaign

import (
	"time"
)

type Status string

var (
	Draft  Status = "draft"
	Active Status = "active"
	Ended  Status = "ended"
)

// Campaign is the slim record scoring events and leaderboards hang off of.
// Campaign management proper (briefs, applications, deliverable review) lives
// upstream; this service only needs identity, a human code and a time window.
type Campaign struct {
	ID        string     `gorm:"column:id;primaryKey" json:"campaign_id"`
	BrandID   string     `gorm:"column:brand_id;index" json:"brand_id"`
	Name      string     `gorm:"column:name" json:"name"`
	Code      string     `gorm:"column:code" json:"code"`
	Status    Status     `gorm:"column:status" json:"status"`
	StartAt   *time.Time `gorm:"column:start_at" json:"start_at,omitempty"`
	EndAt     *time.Time `gorm:"column:end_at" json:"end_at,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Campaign) TableName() string { return "campaigns" }
