package tier

import (
	"time"
)

// Tier is one level of a brand's reward ladder. Tiers are totally ordered by
// SortOrder and MinPoints is strictly increasing along that order; the tier
// with MinPoints 0 is the implicit base every membership starts at.
type Tier struct {
	ID        string    `gorm:"column:id;primaryKey" json:"tier_id"`
	BrandID   string    `gorm:"column:brand_id;index" json:"brand_id"`
	TierName  string    `gorm:"column:tier_name" json:"tier_name"`
	SortOrder int       `gorm:"column:sort_order" json:"sort_order"`
	MinPoints int64     `gorm:"column:min_points" json:"min_points"`
	Color     string    `gorm:"column:color" json:"color,omitempty"`
	Icon      string    `gorm:"column:icon" json:"icon,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Tier) TableName() string { return "tiers" }
