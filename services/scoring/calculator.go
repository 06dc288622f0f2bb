package scoring

import (
	"math"

	"creatorconnect-gamification/pkg/errutil"
)

// roundHalfUp rounds a non-negative fractional point value to the nearest
// integer, halves up. The rounding policy is fixed platform-wide so scores
// are reproducible.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// ComputeRawPoints applies the brand's weights to the event facts and returns
// the raw (pre-cap) point delta. Facts must already be validated.
func ComputeRawPoints(eventType EventType, facts EventFacts, rules *ScoringRules) (int64, error) {
	var base float64

	switch eventType {
	case EventDeliverable:
		base = float64(rules.PointsPerDeliverable)
		if facts.OnTime {
			base += float64(rules.PointsOnTimeBonus)
		}
	case EventViewMilestone:
		base = math.Floor(float64(facts.ViewCount)/1000) * rules.PointsPer1kViews
	case EventLike:
		base = float64(facts.LikeCount) * rules.PointsPerLike
	case EventComment:
		base = float64(facts.CommentCount) * rules.PointsPerComment
	case EventSale:
		base = float64(facts.SaleCount * rules.PointsPerSale)
	case EventBonus:
		base = float64(facts.BonusPoints)
	default:
		return 0, errutil.BadRequest("unknown event type", nil)
	}

	return roundHalfUp(base * rules.QualityMultiplier), nil
}

// CapContext carries the running totals a cap decision needs. Totals are read
// inside the scoring transaction so the post-increment sum can never exceed
// the ceiling.
type CapContext struct {
	PostScoped    bool
	DayTotal      int64
	CampaignTotal int64
	InCampaign    bool
}

// ApplyCaps clips rawPoints against the brand's ceilings in a fixed order:
// per-post first, then per-day and per-campaign against running totals.
// The result is never negative.
func ApplyCaps(rawPoints int64, caps *ScoringCaps, cc CapContext) int64 {
	capped := rawPoints

	if caps != nil {
		if cc.PostScoped && caps.MaxPointsPerPost != nil && capped > *caps.MaxPointsPerPost {
			capped = *caps.MaxPointsPerPost
		}
		if caps.MaxPointsPerDay != nil {
			if room := *caps.MaxPointsPerDay - cc.DayTotal; capped > room {
				capped = room
			}
		}
		if cc.InCampaign && caps.MaxPointsTotalCampaign != nil {
			if room := *caps.MaxPointsTotalCampaign - cc.CampaignTotal; capped > room {
				capped = room
			}
		}
	}

	if capped < 0 {
		capped = 0
	}

	return capped
}
