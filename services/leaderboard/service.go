package leaderboard

import (
	"context"
	"net/http"
	"sort"
	"time"

	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/featureflags"
	"creatorconnect-gamification/pkg/middleware"
	"creatorconnect-gamification/pkg/repository"
	"creatorconnect-gamification/services/ledger"
	"creatorconnect-gamification/services/membership"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// showSuspendedFlag gates a rollout that keeps suspended memberships visible
// on leaderboards. Off (the default) hides them, per the membership
// lifecycle semantics.
const showSuspendedFlag = "leaderboard_show_suspended"

type Service struct {
	db     *gorm.DB
	ledger *ledger.Service
	flags  featureflags.FeatureFlag
	stats  repository.Repository[ActivityStat]
	member repository.Repository[membership.Membership]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Ledger *ledger.Service
	Flags  featureflags.FeatureFlag `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		ledger: p.Ledger,
		flags:  p.Flags,
		stats:  repository.ProvideStore[ActivityStat](p.DB),
		member: repository.ProvideStore[membership.Membership](p.DB),
	}
}

// GetLeaderboard ranks a campaign's participants by capped points descending.
// Ties break by on-time deliveries desc, then join time asc, then creator id,
// so repeated reads always produce the same order. Ranks are ordinal: ties
// still receive distinct sequential numbers.
func (s *Service) GetLeaderboard(ctx context.Context, brandID, campaignID string) ([]*Entry, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	var (
		totals      map[string]int64
		stats       []*ActivityStat
		memberships []*membership.Membership
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.ledger.CampaignCreatorTotals(gctx, brandID, campaignID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.stats.Find(gctx, &ActivityStat{BrandID: brandID, CampaignID: campaignID})
		return err
	})
	g.Go(func() error {
		var err error
		memberships, err = s.member.Find(gctx, &membership.Membership{BrandID: brandID})
		return err
	})
	if err := g.Wait(); err != nil {
		zapLog.Error("failed to load leaderboard aggregates",
			zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, errutil.Internal("failed to load leaderboard", err)
	}

	showSuspended := s.flags != nil && s.flags.IsEnabled(ctx, showSuspendedFlag)

	memberByCreator := make(map[string]*membership.Membership, len(memberships))
	for _, m := range memberships {
		memberByCreator[m.CreatorID] = m
	}
	statByCreator := make(map[string]*ActivityStat, len(stats))
	for _, st := range stats {
		statByCreator[st.CreatorID] = st
	}

	entries := make([]*Entry, 0, len(totals))
	joinedAt := make(map[string]time.Time, len(totals))
	for creatorID, points := range totals {
		m, ok := memberByCreator[creatorID]
		if !ok || m.Status == membership.Archived {
			continue
		}
		if m.Status == membership.Suspended && !showSuspended {
			continue
		}

		e := &Entry{CreatorID: creatorID, Points: points}
		if st, ok := statByCreator[creatorID]; ok {
			e.DeliverablesCompleted = st.DeliverablesCompleted
			e.DeliverablesOnTime = st.DeliverablesOnTime
			e.TotalViews = st.TotalViews
			e.TotalEngagement = st.TotalEngagement
			e.TotalSales = st.TotalSales
			e.QualityScore = st.QualityScore()
		}
		joinedAt[creatorID] = m.JoinedAt
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.DeliverablesOnTime != b.DeliverablesOnTime {
			return a.DeliverablesOnTime > b.DeliverablesOnTime
		}
		ja, jb := joinedAt[a.CreatorID], joinedAt[b.CreatorID]
		if !ja.Equal(jb) {
			return ja.Before(jb)
		}
		return a.CreatorID < b.CreatorID
	})

	for i, e := range entries {
		e.Rank = i + 1
	}

	return entries, nil
}

func (s *Service) handleGetLeaderboard(c *gin.Context) {
	entries, err := s.GetLeaderboard(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), c.Param("campaign_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
