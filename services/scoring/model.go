package scoring

import (
	"time"

	"creatorconnect-gamification/pkg/config"
	"creatorconnect-gamification/pkg/errutil"
)

type EventType string

var (
	EventDeliverable   EventType = "deliverable"
	EventViewMilestone EventType = "view_milestone"
	EventLike          EventType = "like"
	EventComment       EventType = "comment"
	EventSale          EventType = "sale"
	EventBonus         EventType = "bonus"
)

func (t EventType) Valid() bool {
	switch t {
	case EventDeliverable, EventViewMilestone, EventLike, EventComment, EventSale, EventBonus:
		return true
	default:
		return false
	}
}

// PostScoped reports whether maxPointsPerPost applies to this event type.
// Sales and bonus awards are not tied to a single post.
func (t EventType) PostScoped() bool {
	switch t {
	case EventDeliverable, EventViewMilestone, EventLike, EventComment:
		return true
	default:
		return false
	}
}

// ScoringRules holds a brand's point weights. A brand without a row scores
// with the platform defaults from config, never with zeros.
type ScoringRules struct {
	ID                   string    `gorm:"column:id;primaryKey" json:"-"`
	BrandID              string    `gorm:"column:brand_id;uniqueIndex" json:"brand_id"`
	PointsPerDeliverable int64     `gorm:"column:points_per_deliverable" json:"points_per_deliverable"`
	PointsOnTimeBonus    int64     `gorm:"column:points_on_time_bonus" json:"points_on_time_bonus"`
	PointsPer1kViews     float64   `gorm:"column:points_per_1k_views" json:"points_per_1k_views"`
	PointsPerLike        float64   `gorm:"column:points_per_like" json:"points_per_like"`
	PointsPerComment     float64   `gorm:"column:points_per_comment" json:"points_per_comment"`
	PointsPerSale        int64     `gorm:"column:points_per_sale" json:"points_per_sale"`
	QualityMultiplier    float64   `gorm:"column:quality_multiplier" json:"quality_multiplier"`
	CreatedAt            time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ScoringRules) TableName() string { return "scoring_rules" }

func (r *ScoringRules) Validate() []errutil.Detail {
	var details []errutil.Detail
	if r.PointsPerDeliverable < 0 {
		details = append(details, errutil.Detail{Field: "points_per_deliverable", Message: "must be >= 0"})
	}
	if r.PointsOnTimeBonus < 0 {
		details = append(details, errutil.Detail{Field: "points_on_time_bonus", Message: "must be >= 0"})
	}
	if r.PointsPer1kViews < 0 {
		details = append(details, errutil.Detail{Field: "points_per_1k_views", Message: "must be >= 0"})
	}
	if r.PointsPerLike < 0 {
		details = append(details, errutil.Detail{Field: "points_per_like", Message: "must be >= 0"})
	}
	if r.PointsPerComment < 0 {
		details = append(details, errutil.Detail{Field: "points_per_comment", Message: "must be >= 0"})
	}
	if r.PointsPerSale < 0 {
		details = append(details, errutil.Detail{Field: "points_per_sale", Message: "must be >= 0"})
	}
	if r.QualityMultiplier <= 0 {
		details = append(details, errutil.Detail{Field: "quality_multiplier", Message: "must be > 0"})
	}
	return details
}

// DefaultRules builds the platform default rule set from config.
func DefaultRules(cfg *config.Config) *ScoringRules {
	d := cfg.Scoring
	return &ScoringRules{
		PointsPerDeliverable: int64(d.PointsPerDeliverable),
		PointsOnTimeBonus:    int64(d.PointsOnTimeBonus),
		PointsPer1kViews:     d.PointsPer1kViews,
		PointsPerLike:        d.PointsPerLike,
		PointsPerComment:     d.PointsPerComment,
		PointsPerSale:        int64(d.PointsPerSale),
		QualityMultiplier:    d.QualityMultiplier,
	}
}

// ScoringCaps holds a brand's optional ceilings. Nil means unlimited. Caps
// clip the increment as a final step, never scale it.
type ScoringCaps struct {
	ID                     string    `gorm:"column:id;primaryKey" json:"-"`
	BrandID                string    `gorm:"column:brand_id;uniqueIndex" json:"brand_id"`
	MaxPointsPerPost       *int64    `gorm:"column:max_points_per_post" json:"max_points_per_post"`
	MaxPointsPerDay        *int64    `gorm:"column:max_points_per_day" json:"max_points_per_day"`
	MaxPointsTotalCampaign *int64    `gorm:"column:max_points_total_campaign" json:"max_points_total_campaign"`
	CreatedAt              time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ScoringCaps) TableName() string { return "scoring_caps" }

func (c *ScoringCaps) Validate() []errutil.Detail {
	var details []errutil.Detail
	if c.MaxPointsPerPost != nil && *c.MaxPointsPerPost < 0 {
		details = append(details, errutil.Detail{Field: "max_points_per_post", Message: "must be >= 0 or null"})
	}
	if c.MaxPointsPerDay != nil && *c.MaxPointsPerDay < 0 {
		details = append(details, errutil.Detail{Field: "max_points_per_day", Message: "must be >= 0 or null"})
	}
	if c.MaxPointsTotalCampaign != nil && *c.MaxPointsTotalCampaign < 0 {
		details = append(details, errutil.Detail{Field: "max_points_total_campaign", Message: "must be >= 0 or null"})
	}
	return details
}

// EventFacts carries the quantitative facts of a scoring event. Which fields
// matter depends on the event type.
type EventFacts struct {
	OnTime       bool    `json:"on_time,omitempty"`
	ViewCount    int64   `json:"view_count,omitempty"`
	LikeCount    int64   `json:"like_count,omitempty"`
	CommentCount int64   `json:"comment_count,omitempty"`
	SaleCount    int64   `json:"sale_count,omitempty"`
	BonusPoints  int64   `json:"bonus_points,omitempty"`
	QualityScore float64 `json:"quality_score,omitempty"`
}

// ScoreEventRequest is the JSON body for POST /v1/events. EventKey is the
// caller-supplied deduplication key; retries with the same key are rejected
// instead of double-counted.
type ScoreEventRequest struct {
	EventKey   string     `json:"event_key"`
	CreatorID  string     `json:"creator_id"`
	CampaignID string     `json:"campaign_id,omitempty"`
	EventType  EventType  `json:"event_type"`
	Facts      EventFacts `json:"facts"`
}

func (r *ScoreEventRequest) Validate() []errutil.Detail {
	var details []errutil.Detail
	if r.EventKey == "" {
		details = append(details, errutil.Detail{Field: "event_key", Message: "event_key is required"})
	}
	if r.CreatorID == "" {
		details = append(details, errutil.Detail{Field: "creator_id", Message: "creator_id is required"})
	}
	if !r.EventType.Valid() {
		details = append(details, errutil.Detail{Field: "event_type", Message: "unknown event type"})
	}
	if r.Facts.ViewCount < 0 {
		details = append(details, errutil.Detail{Field: "facts.view_count", Message: "must be >= 0"})
	}
	if r.Facts.LikeCount < 0 {
		details = append(details, errutil.Detail{Field: "facts.like_count", Message: "must be >= 0"})
	}
	if r.Facts.CommentCount < 0 {
		details = append(details, errutil.Detail{Field: "facts.comment_count", Message: "must be >= 0"})
	}
	if r.Facts.SaleCount < 0 {
		details = append(details, errutil.Detail{Field: "facts.sale_count", Message: "must be >= 0"})
	}
	if r.Facts.QualityScore < 0 {
		details = append(details, errutil.Detail{Field: "facts.quality_score", Message: "must be >= 0"})
	}
	if r.EventType == EventBonus && r.Facts.BonusPoints < 0 {
		details = append(details, errutil.Detail{Field: "facts.bonus_points", Message: "must be >= 0"})
	}
	return details
}
