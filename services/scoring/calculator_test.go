package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func int64Ptr(v int64) *int64 { return &v }

func testRules() *ScoringRules {
	return &ScoringRules{
		PointsPerDeliverable: 100,
		PointsOnTimeBonus:    25,
		PointsPer1kViews:     1,
		PointsPerLike:        0.1,
		PointsPerComment:     0.5,
		PointsPerSale:        50,
		QualityMultiplier:    1,
	}
}

func TestComputeRawPoints(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		facts     EventFacts
		rules     *ScoringRules
		want      int64
	}{
		{
			name:      "deliverable on time",
			eventType: EventDeliverable,
			facts:     EventFacts{OnTime: true},
			rules:     testRules(),
			want:      125,
		},
		{
			name:      "deliverable late",
			eventType: EventDeliverable,
			facts:     EventFacts{OnTime: false},
			rules:     testRules(),
			want:      100,
		},
		{
			name:      "view milestone counts whole thousands only",
			eventType: EventViewMilestone,
			facts:     EventFacts{ViewCount: 4500},
			rules:     testRules(),
			want:      4,
		},
		{
			name:      "view milestone below one thousand",
			eventType: EventViewMilestone,
			facts:     EventFacts{ViewCount: 999},
			rules:     testRules(),
			want:      0,
		},
		{
			name:      "likes round half up",
			eventType: EventLike,
			facts:     EventFacts{LikeCount: 5},
			rules:     testRules(),
			want:      1, // 5 * 0.1 = 0.5 rounds up
		},
		{
			name:      "comments",
			eventType: EventComment,
			facts:     EventFacts{CommentCount: 3},
			rules:     testRules(),
			want:      2, // 3 * 0.5 = 1.5 rounds up
		},
		{
			name:      "sales",
			eventType: EventSale,
			facts:     EventFacts{SaleCount: 3},
			rules:     testRules(),
			want:      150,
		},
		{
			name:      "bonus passes through",
			eventType: EventBonus,
			facts:     EventFacts{BonusPoints: 42},
			rules:     testRules(),
			want:      42,
		},
		{
			name:      "quality multiplier scales before rounding",
			eventType: EventDeliverable,
			facts:     EventFacts{OnTime: true},
			rules: &ScoringRules{
				PointsPerDeliverable: 100,
				PointsOnTimeBonus:    25,
				QualityMultiplier:    1.5,
			},
			want: 188, // 125 * 1.5 = 187.5 rounds up
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeRawPoints(tt.eventType, tt.facts, tt.rules)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestComputeRawPointsUnknownType(t *testing.T) {
	_, err := ComputeRawPoints(EventType("retweet"), EventFacts{}, testRules())
	require.Error(t, err)
}

func TestApplyCaps(t *testing.T) {
	tests := []struct {
		name string
		raw  int64
		caps *ScoringCaps
		cc   CapContext
		want int64
	}{
		{
			name: "no caps configured",
			raw:  500,
			caps: nil,
			cc:   CapContext{PostScoped: true},
			want: 500,
		},
		{
			name: "per post cap clips post scoped events",
			raw:  125,
			caps: &ScoringCaps{MaxPointsPerPost: int64Ptr(100)},
			cc:   CapContext{PostScoped: true},
			want: 100,
		},
		{
			name: "per post cap ignores sales",
			raw:  150,
			caps: &ScoringCaps{MaxPointsPerPost: int64Ptr(100)},
			cc:   CapContext{PostScoped: false},
			want: 150,
		},
		{
			name: "day cap leaves only remaining room",
			raw:  80,
			caps: &ScoringCaps{MaxPointsPerDay: int64Ptr(100)},
			cc:   CapContext{DayTotal: 70},
			want: 30,
		},
		{
			name: "day cap exhausted",
			raw:  80,
			caps: &ScoringCaps{MaxPointsPerDay: int64Ptr(100)},
			cc:   CapContext{DayTotal: 150},
			want: 0,
		},
		{
			name: "campaign cap only applies inside a campaign",
			raw:  80,
			caps: &ScoringCaps{MaxPointsTotalCampaign: int64Ptr(100)},
			cc:   CapContext{CampaignTotal: 90, InCampaign: false},
			want: 80,
		},
		{
			name: "campaign cap clips inside a campaign",
			raw:  80,
			caps: &ScoringCaps{MaxPointsTotalCampaign: int64Ptr(100)},
			cc:   CapContext{CampaignTotal: 90, InCampaign: true},
			want: 10,
		},
		{
			name: "per post then day cap stack",
			raw:  125,
			caps: &ScoringCaps{MaxPointsPerPost: int64Ptr(100), MaxPointsPerDay: int64Ptr(120)},
			cc:   CapContext{PostScoped: true, DayTotal: 60},
			want: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ApplyCaps(tt.raw, tt.caps, tt.cc))
		})
	}
}
