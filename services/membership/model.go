package membership

import (
	"time"
)

type Status string

var (
	Active    Status = "active"
	Suspended Status = "suspended"
	Archived  Status = "archived"
)

func (s Status) String() string {
	switch s {
	case Active, Suspended, Archived:
		return string(s)
	default:
		return ""
	}
}

// Membership ties a creator to a brand's community. PointsCache mirrors the
// sum of the creator's capped ledger points for the brand and is updated in
// the same transaction as every ledger write; TierID always matches the tier
// resolved from PointsCache. Archived is terminal.
type Membership struct {
	ID          string    `gorm:"column:id;primaryKey" json:"membership_id"`
	CreatorID   string    `gorm:"column:creator_id;uniqueIndex:idx_membership_creator_brand" json:"creator_id"`
	BrandID     string    `gorm:"column:brand_id;uniqueIndex:idx_membership_creator_brand" json:"brand_id"`
	Status      Status    `gorm:"column:status" json:"status"`
	TierID      string    `gorm:"column:tier_id" json:"tier_id,omitempty"`
	PointsCache int64     `gorm:"column:points_cache" json:"points_cache"`
	CouponCode  string    `gorm:"column:coupon_code" json:"coupon_code,omitempty"`
	JoinedAt    time.Time `gorm:"column:joined_at" json:"joined_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Membership) TableName() string { return "memberships" }
