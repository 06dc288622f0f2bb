package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"creatorconnect-gamification/pkg/db/option"
	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/middleware"
	"creatorconnect-gamification/services/campaign"
	"creatorconnect-gamification/services/leaderboard"
	"creatorconnect-gamification/services/ledger"
	"creatorconnect-gamification/services/membership"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScoreResult is the outcome of one scoring event: the primary ledger entry,
// any bonus entries awarded by matched rules, and the membership state after
// the transactional cache and tier update.
type ScoreResult struct {
	Entry        *ledger.Entry   `json:"entry"`
	BonusEntries []*ledger.Entry `json:"bonus_entries,omitempty"`
	PointsCache  int64           `json:"points_cache"`
	TierID       string          `json:"tier_id,omitempty"`
}

// ScoreEvent validates, computes and persists one scoring event in a single
// transaction: ledger append, activity stats, pointsCache increment and tier
// re-resolution all commit or roll back together, so the triggering business
// event is never half-applied.
func (s *Service) ScoreEvent(ctx context.Context, brandID string, req ScoreEventRequest) (*ScoreResult, error) {
	zapLog := s.logger(ctx).With(
		zap.String("brand_id", brandID),
		zap.String("creator_id", req.CreatorID),
		zap.String("event_key", req.EventKey),
	)

	if details := req.Validate(); len(details) > 0 {
		return nil, errutil.ValidationFailed("invalid event facts", nil, errutil.WithDetails(details...))
	}

	var result *ScoreResult
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		member, err := s.memberRepo.WithTrx(tx).FindOne(ctx,
			&membership.Membership{CreatorID: req.CreatorID, BrandID: brandID},
			option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if member == nil {
			return errutil.NotFound("membership not found", nil)
		}
		if member.Status == membership.Archived {
			return errutil.UnprocessableEntity("membership is archived", nil)
		}

		if req.CampaignID != "" {
			camp, err := s.campaignRepo.WithTrx(tx).FindOne(ctx, &campaign.Campaign{ID: req.CampaignID, BrandID: brandID})
			if err != nil {
				return err
			}
			if camp == nil {
				return errutil.NotFound("campaign not found", nil)
			}
			if camp.Status == campaign.Ended {
				return errutil.UnprocessableEntity("campaign has ended", nil)
			}
			now := time.Now().UTC()
			if camp.StartAt != nil && now.Before(*camp.StartAt) {
				return errutil.UnprocessableEntity("campaign has not started", nil)
			}
			if camp.EndAt != nil && now.After(*camp.EndAt) {
				return errutil.UnprocessableEntity("campaign window has closed", nil)
			}
		}

		rules, err := s.rulesForBrandTx(ctx, tx, brandID)
		if err != nil {
			return err
		}
		caps, err := s.capsRepo.WithTrx(tx).FindOne(ctx, &ScoringCaps{BrandID: brandID})
		if err != nil {
			return err
		}

		rawPoints, err := ComputeRawPoints(req.EventType, req.Facts, rules)
		if err != nil {
			return err
		}

		dayStart := time.Now().UTC().Truncate(24 * time.Hour)
		dayTotal, err := s.ledger.DayTotalTx(ctx, tx, brandID, req.CreatorID, dayStart)
		if err != nil {
			return err
		}
		var campaignTotal int64
		if req.CampaignID != "" {
			campaignTotal, err = s.ledger.CampaignTotalTx(ctx, tx, brandID, req.CreatorID, req.CampaignID)
			if err != nil {
				return err
			}
		}

		cappedPoints := ApplyCaps(rawPoints, caps, CapContext{
			PostScoped:    req.EventType.PostScoped(),
			DayTotal:      dayTotal,
			CampaignTotal: campaignTotal,
			InCampaign:    req.CampaignID != "",
		})

		factsJSON, _ := json.Marshal(req.Facts)
		entry, err := s.ledger.AppendTx(ctx, tx, ledger.AppendParams{
			BrandID:      brandID,
			CreatorID:    req.CreatorID,
			CampaignID:   req.CampaignID,
			EventType:    string(req.EventType),
			EventKey:     req.EventKey,
			RawPoints:    rawPoints,
			CappedPoints: cappedPoints,
			Metadata:     factsJSON,
		})
		if err != nil {
			return err
		}

		dayTotal += cappedPoints
		campaignTotal += cappedPoints
		delta := cappedPoints

		bonusEntries, err := s.applyBonusRules(ctx, tx, brandID, req, caps, entry, &dayTotal, &campaignTotal)
		if err != nil {
			return err
		}
		for _, b := range bonusEntries {
			delta += b.CappedPoints
		}

		if req.CampaignID != "" {
			if err := s.bumpActivityStats(ctx, tx, brandID, req); err != nil {
				return err
			}
		}

		newTotal := member.PointsCache + delta
		resolved, err := s.tiers.ResolveTx(ctx, tx, brandID, newTotal)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"points_cache": gorm.Expr("points_cache + ?", delta),
			"updated_at":   time.Now(),
		}
		if resolved != nil {
			updates["tier_id"] = resolved.ID
		}
		if err := s.memberRepo.WithTrx(tx).Update(ctx, member.ID, &updates); err != nil {
			return err
		}

		result = &ScoreResult{
			Entry:        entry,
			BonusEntries: bonusEntries,
			PointsCache:  newTotal,
		}
		if resolved != nil {
			result.TierID = resolved.ID
		}
		return nil
	}); err != nil {
		if _, ok := err.(errutil.BaseError); ok {
			return nil, err
		}
		zapLog.Error("failed to score event", zap.Error(err))
		return nil, errutil.Internal("failed to score event", err)
	}

	zapLog.Info("scored event",
		zap.String("event_type", string(req.EventType)),
		zap.Int64("raw_points", result.Entry.RawPoints),
		zap.Int64("capped_points", result.Entry.CappedPoints),
		zap.Int("bonus_entries", len(result.BonusEntries)),
	)

	return result, nil
}

// applyBonusRules appends a bonus ledger entry for every matched rule. Bonus
// awards respect the day and campaign ceilings against the running totals.
func (s *Service) applyBonusRules(ctx context.Context, tx *gorm.DB, brandID string, req ScoreEventRequest, caps *ScoringCaps, entry *ledger.Entry, dayTotal, campaignTotal *int64) ([]*ledger.Entry, error) {
	if req.EventType == EventBonus {
		return nil, nil
	}

	facts := map[string]any{
		"event_type":    string(req.EventType),
		"on_time":       req.Facts.OnTime,
		"view_count":    req.Facts.ViewCount,
		"like_count":    req.Facts.LikeCount,
		"comment_count": req.Facts.CommentCount,
		"sale_count":    req.Facts.SaleCount,
		"quality_score": req.Facts.QualityScore,
		"raw_points":    entry.RawPoints,
		"capped_points": entry.CappedPoints,
	}

	matched, err := s.rules.MatchTx(ctx, tx, brandID, string(req.EventType), facts)
	if err != nil {
		return nil, err
	}

	entries := make([]*ledger.Entry, 0, len(matched))
	for _, r := range matched {
		capped := ApplyCaps(r.BonusPoints, caps, CapContext{
			DayTotal:      *dayTotal,
			CampaignTotal: *campaignTotal,
			InCampaign:    req.CampaignID != "",
		})
		if capped == 0 {
			continue
		}

		bonus, err := s.ledger.AppendTx(ctx, tx, ledger.AppendParams{
			BrandID:      brandID,
			CreatorID:    req.CreatorID,
			CampaignID:   req.CampaignID,
			EventType:    string(EventBonus),
			EventKey:     req.EventKey + ":bonus:" + r.ID,
			RawPoints:    r.BonusPoints,
			CappedPoints: capped,
			Description:  r.Name,
		})
		if err != nil {
			return nil, err
		}

		*dayTotal += capped
		*campaignTotal += capped
		entries = append(entries, bonus)
	}

	return entries, nil
}

func (s *Service) bumpActivityStats(ctx context.Context, tx *gorm.DB, brandID string, req ScoreEventRequest) error {
	statsTx := s.statsRepo.WithTrx(tx)

	stat, err := statsTx.FindOne(ctx, &leaderboard.ActivityStat{
		BrandID:    brandID,
		CampaignID: req.CampaignID,
		CreatorID:  req.CreatorID,
	}, option.WithLockingUpdate())
	if err != nil {
		return err
	}

	if stat == nil {
		stat = &leaderboard.ActivityStat{
			ID:         s.node.Generate().String(),
			BrandID:    brandID,
			CampaignID: req.CampaignID,
			CreatorID:  req.CreatorID,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		applyFactsToStat(stat, req)
		return statsTx.Create(ctx, stat)
	}

	updates := map[string]any{"updated_at": time.Now()}
	switch req.EventType {
	case EventDeliverable:
		updates["deliverables_completed"] = gorm.Expr("deliverables_completed + 1")
		if req.Facts.OnTime {
			updates["deliverables_on_time"] = gorm.Expr("deliverables_on_time + 1")
		}
	case EventViewMilestone:
		updates["total_views"] = gorm.Expr("total_views + ?", req.Facts.ViewCount)
	case EventLike:
		updates["total_engagement"] = gorm.Expr("total_engagement + ?", req.Facts.LikeCount)
	case EventComment:
		updates["total_engagement"] = gorm.Expr("total_engagement + ?", req.Facts.CommentCount)
	case EventSale:
		updates["total_sales"] = gorm.Expr("total_sales + ?", req.Facts.SaleCount)
	}
	if req.Facts.QualityScore > 0 {
		updates["quality_score_sum"] = gorm.Expr("quality_score_sum + ?", req.Facts.QualityScore)
		updates["quality_score_count"] = gorm.Expr("quality_score_count + 1")
	}

	return statsTx.Update(ctx, stat.ID, &updates)
}

func applyFactsToStat(stat *leaderboard.ActivityStat, req ScoreEventRequest) {
	switch req.EventType {
	case EventDeliverable:
		stat.DeliverablesCompleted = 1
		if req.Facts.OnTime {
			stat.DeliverablesOnTime = 1
		}
	case EventViewMilestone:
		stat.TotalViews = req.Facts.ViewCount
	case EventLike:
		stat.TotalEngagement = req.Facts.LikeCount
	case EventComment:
		stat.TotalEngagement = req.Facts.CommentCount
	case EventSale:
		stat.TotalSales = req.Facts.SaleCount
	}
	if req.Facts.QualityScore > 0 {
		stat.QualityScoreSum = req.Facts.QualityScore
		stat.QualityScoreCount = 1
	}
}

func (s *Service) handleScoreEvent(c *gin.Context) {
	var req ScoreEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	result, err := s.ScoreEvent(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
