package leaderboard

import (
	"time"
)

// ActivityStat accumulates a creator's supporting metrics for one campaign.
// Counters are bumped with atomic increments inside the scoring transaction.
type ActivityStat struct {
	ID                    string    `gorm:"column:id;primaryKey" json:"-"`
	BrandID               string    `gorm:"column:brand_id;uniqueIndex:idx_activity_scope" json:"brand_id"`
	CampaignID            string    `gorm:"column:campaign_id;uniqueIndex:idx_activity_scope" json:"campaign_id"`
	CreatorID             string    `gorm:"column:creator_id;uniqueIndex:idx_activity_scope" json:"creator_id"`
	DeliverablesCompleted int64     `gorm:"column:deliverables_completed" json:"deliverables_completed"`
	DeliverablesOnTime    int64     `gorm:"column:deliverables_on_time" json:"deliverables_on_time"`
	TotalViews            int64     `gorm:"column:total_views" json:"total_views"`
	TotalEngagement       int64     `gorm:"column:total_engagement" json:"total_engagement"`
	TotalSales            int64     `gorm:"column:total_sales" json:"total_sales"`
	QualityScoreSum       float64   `gorm:"column:quality_score_sum" json:"-"`
	QualityScoreCount     int64     `gorm:"column:quality_score_count" json:"-"`
	CreatedAt             time.Time `gorm:"column:created_at" json:"-"`
	UpdatedAt             time.Time `gorm:"column:updated_at" json:"-"`
}

func (ActivityStat) TableName() string { return "activity_stats" }

// QualityScore is the running average of reported quality scores, or 0 when
// none were reported.
func (s *ActivityStat) QualityScore() float64 {
	if s.QualityScoreCount == 0 {
		return 0
	}
	return s.QualityScoreSum / float64(s.QualityScoreCount)
}

// Entry is one ranked leaderboard row. It is computed on read and never
// persisted.
type Entry struct {
	Rank                  int     `json:"rank"`
	CreatorID             string  `json:"creator_id"`
	Points                int64   `json:"points"`
	DeliverablesCompleted int64   `json:"deliverables_completed"`
	DeliverablesOnTime    int64   `json:"deliverables_on_time"`
	TotalViews            int64   `json:"total_views"`
	TotalEngagement       int64   `json:"total_engagement"`
	TotalSales            int64   `json:"total_sales"`
	QualityScore          float64 `json:"quality_score,omitempty"`
}
