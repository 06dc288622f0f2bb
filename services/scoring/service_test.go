package scoring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"creatorconnect-gamification/pkg/config"
	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/services/campaign"
	"creatorconnect-gamification/services/leaderboard"
	"creatorconnect-gamification/services/ledger"
	"creatorconnect-gamification/services/membership"
	"creatorconnect-gamification/services/rule"
	"creatorconnect-gamification/services/testutil"
	"creatorconnect-gamification/services/tier"
)

type scoringEnv struct {
	svc   *Service
	db    *gorm.DB
	tiers *tier.Service
	rules *rule.Service
	node  *snowflake.Node
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scoring = config.ScoringDefaults{
		PointsPerDeliverable: 100,
		PointsOnTimeBonus:    25,
		PointsPer1kViews:     1,
		PointsPerLike:        0.1,
		PointsPerComment:     0.5,
		PointsPerSale:        50,
		QualityMultiplier:    1,
	}
	return cfg
}

func newScoringEnv(t *testing.T) *scoringEnv {
	t.Helper()

	db := testutil.NewTestDB(t,
		&ScoringRules{}, &ScoringCaps{},
		&ledger.Entry{}, &membership.Membership{}, &campaign.Campaign{},
		&leaderboard.ActivityStat{}, &tier.Tier{}, &rule.BonusRule{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tiers := tier.NewService(tier.ServiceParams{DB: db, Node: node})
	led := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	rules := rule.NewService(rule.ServiceParams{DB: db, Node: node})

	svc := NewService(ServiceParams{
		DB:     db,
		Node:   node,
		Config: testConfig(),
		Ledger: led,
		Tiers:  tiers,
		Rules:  rules,
	})

	return &scoringEnv{svc: svc, db: db, tiers: tiers, rules: rules, node: node}
}

func (e *scoringEnv) seedMember(t *testing.T, brandID, creatorID string, status membership.Status, points int64) *membership.Membership {
	t.Helper()

	now := time.Now()
	m := &membership.Membership{
		ID:          e.node.Generate().String(),
		CreatorID:   creatorID,
		BrandID:     brandID,
		Status:      status,
		PointsCache: points,
		JoinedAt:    now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.db.Create(m).Error)
	return m
}

func (e *scoringEnv) seedCampaign(t *testing.T, brandID, id string, status campaign.Status) {
	t.Helper()

	now := time.Now()
	require.NoError(t, e.db.Create(&campaign.Campaign{
		ID:        id,
		BrandID:   brandID,
		Name:      "Campaign " + id,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func deliverableReq(key string, onTime bool) ScoreEventRequest {
	return ScoreEventRequest{
		EventKey:  key,
		CreatorID: "creator-1",
		EventType: EventDeliverable,
		Facts:     EventFacts{OnTime: onTime},
	}
}

func TestScoreEventDeliverable(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	result, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)
	require.Equal(t, int64(125), result.Entry.RawPoints)
	require.Equal(t, int64(125), result.Entry.CappedPoints)
	require.Equal(t, int64(125), result.PointsCache)
	require.Empty(t, result.BonusEntries)

	var m membership.Membership
	require.NoError(t, env.db.First(&m, "creator_id = ? AND brand_id = ?", "creator-1", "brand-1").Error)
	require.Equal(t, int64(125), m.PointsCache)
}

func TestScoreEventUsesBrandRules(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	_, err := env.svc.PutRules(ctx, "brand-1", PutRulesRequest{
		PointsPerDeliverable: 10,
		PointsOnTimeBonus:    5,
		QualityMultiplier:    1,
	})
	require.NoError(t, err)

	result, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)
	require.Equal(t, int64(15), result.Entry.RawPoints)
}

func TestScoreEventPerPostCap(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	_, err := env.svc.PutCaps(ctx, "brand-1", PutCapsRequest{MaxPointsPerPost: int64Ptr(100)})
	require.NoError(t, err)

	result, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)
	require.Equal(t, int64(125), result.Entry.RawPoints)
	require.Equal(t, int64(100), result.Entry.CappedPoints)
	require.Equal(t, int64(100), result.PointsCache)
}

func TestScoreEventDayCap(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	_, err := env.svc.PutCaps(ctx, "brand-1", PutCapsRequest{MaxPointsPerDay: int64Ptr(200)})
	require.NoError(t, err)

	first, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)
	require.Equal(t, int64(125), first.Entry.CappedPoints)

	// Only 75 points of daily room remain.
	second, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-2", true))
	require.NoError(t, err)
	require.Equal(t, int64(125), second.Entry.RawPoints)
	require.Equal(t, int64(75), second.Entry.CappedPoints)

	// The ceiling is hit; further events score zero but are still recorded.
	third, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-3", true))
	require.NoError(t, err)
	require.Zero(t, third.Entry.CappedPoints)
	require.Equal(t, int64(200), third.PointsCache)
}

func TestScoreEventCampaignCap(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)
	env.seedCampaign(t, "brand-1", "camp-1", campaign.Active)

	_, err := env.svc.PutCaps(ctx, "brand-1", PutCapsRequest{MaxPointsTotalCampaign: int64Ptr(150)})
	require.NoError(t, err)

	req := deliverableReq("evt-1", true)
	req.CampaignID = "camp-1"
	first, err := env.svc.ScoreEvent(ctx, "brand-1", req)
	require.NoError(t, err)
	require.Equal(t, int64(125), first.Entry.CappedPoints)

	req = deliverableReq("evt-2", true)
	req.CampaignID = "camp-1"
	second, err := env.svc.ScoreEvent(ctx, "brand-1", req)
	require.NoError(t, err)
	require.Equal(t, int64(25), second.Entry.CappedPoints)

	// Outside the campaign the ceiling does not apply.
	third, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-3", true))
	require.NoError(t, err)
	require.Equal(t, int64(125), third.Entry.CappedPoints)
}

func TestScoreEventViewMilestone(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	result, err := env.svc.ScoreEvent(ctx, "brand-1", ScoreEventRequest{
		EventKey:  "evt-1",
		CreatorID: "creator-1",
		EventType: EventViewMilestone,
		Facts:     EventFacts{ViewCount: 4500},
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), result.Entry.RawPoints)
}

func TestScoreEventDuplicateEventKey(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	_, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)

	_, err = env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusConflict, be.Status())

	// The rejected retry left no trace: one entry, cache unchanged.
	var count int64
	require.NoError(t, env.db.Model(&ledger.Entry{}).Where("brand_id = ?", "brand-1").Count(&count).Error)
	require.Equal(t, int64(1), count)

	var m membership.Membership
	require.NoError(t, env.db.First(&m, "creator_id = ?", "creator-1").Error)
	require.Equal(t, int64(125), m.PointsCache)
}

func TestScoreEventArchivedMembership(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Archived, 0)

	_, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusUnprocessableEntity, be.Status())

	var count int64
	require.NoError(t, env.db.Model(&ledger.Entry{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestScoreEventSuspendedMembershipStillScores(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Suspended, 0)

	result, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)
	require.Equal(t, int64(125), result.PointsCache)
}

func TestScoreEventUnknownMembership(t *testing.T) {
	env := newScoringEnv(t)

	_, err := env.svc.ScoreEvent(context.Background(), "brand-1", deliverableReq("evt-1", true))
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestScoreEventUnknownCampaign(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	req := deliverableReq("evt-1", true)
	req.CampaignID = "missing"
	_, err := env.svc.ScoreEvent(ctx, "brand-1", req)
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestScoreEventEndedCampaign(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)
	env.seedCampaign(t, "brand-1", "camp-1", campaign.Ended)

	req := deliverableReq("evt-1", true)
	req.CampaignID = "camp-1"
	_, err := env.svc.ScoreEvent(ctx, "brand-1", req)
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusUnprocessableEntity, be.Status())
}

func TestScoreEventOutsideCampaignWindow(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	// A campaign still flagged active but whose window has passed, and one
	// whose window has not opened yet. Both reject scoring.
	closed := time.Now().UTC().Add(-time.Hour)
	notYet := time.Now().UTC().Add(time.Hour)
	require.NoError(t, env.db.Create(&campaign.Campaign{
		ID: "camp-closed", BrandID: "brand-1", Name: "Closed",
		Status: campaign.Active, EndAt: &closed,
	}).Error)
	require.NoError(t, env.db.Create(&campaign.Campaign{
		ID: "camp-early", BrandID: "brand-1", Name: "Early",
		Status: campaign.Active, StartAt: &notYet,
	}).Error)

	for i, campaignID := range []string{"camp-closed", "camp-early"} {
		req := deliverableReq(fmt.Sprintf("evt-%d", i), true)
		req.CampaignID = campaignID
		_, err := env.svc.ScoreEvent(ctx, "brand-1", req)
		require.Error(t, err)

		var be errutil.BaseError
		require.ErrorAs(t, err, &be)
		require.Equal(t, errutil.StatusUnprocessableEntity, be.Status())
	}

	// No ledger entries were written for either attempt.
	var count int64
	require.NoError(t, env.db.Model(&ledger.Entry{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestScoreEventInvalidFacts(t *testing.T) {
	env := newScoringEnv(t)

	_, err := env.svc.ScoreEvent(context.Background(), "brand-1", ScoreEventRequest{
		EventKey:  "evt-1",
		CreatorID: "creator-1",
		EventType: EventViewMilestone,
		Facts:     EventFacts{ViewCount: -5},
	})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusValidationFailed, be.Status())
}

func TestScoreEventTierUpgrade(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()

	_, err := env.tiers.ReplaceTiers(ctx, "brand-1", tier.ReplaceTiersRequest{
		Tiers: []tier.TierInput{
			{TierName: "Bronze", SortOrder: 0, MinPoints: 0},
			{TierName: "Silver", SortOrder: 1, MinPoints: 500},
		},
	})
	require.NoError(t, err)
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 400)

	result, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)
	require.Equal(t, int64(525), result.PointsCache)

	silver, err := env.tiers.ResolveTx(ctx, nil, "brand-1", 525)
	require.NoError(t, err)
	require.Equal(t, silver.ID, result.TierID)

	var m membership.Membership
	require.NoError(t, env.db.First(&m, "creator_id = ?", "creator-1").Error)
	require.Equal(t, silver.ID, m.TierID)
}

func TestScoreEventBonusRule(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	created, err := env.rules.Create(ctx, "brand-1", rule.CreateRuleRequest{
		Name:        "On-time streak",
		EventType:   string(EventDeliverable),
		Expression:  `on_time && event_type == "deliverable"`,
		BonusPoints: 10,
	})
	require.NoError(t, err)

	result, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)
	require.Len(t, result.BonusEntries, 1)
	require.Equal(t, "evt-1:bonus:"+created.ID, result.BonusEntries[0].EventKey)
	require.Equal(t, int64(10), result.BonusEntries[0].CappedPoints)
	require.Equal(t, int64(135), result.PointsCache)

	// A late deliverable does not match the expression.
	late, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-2", false))
	require.NoError(t, err)
	require.Empty(t, late.BonusEntries)
}

func TestScoreEventBonusSharesDayCap(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	_, err := env.svc.PutCaps(ctx, "brand-1", PutCapsRequest{MaxPointsPerDay: int64Ptr(130)})
	require.NoError(t, err)

	_, err = env.rules.Create(ctx, "brand-1", rule.CreateRuleRequest{
		Name:        "On-time bonus",
		Expression:  `on_time`,
		BonusPoints: 10,
	})
	require.NoError(t, err)

	result, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq("evt-1", true))
	require.NoError(t, err)
	require.Equal(t, int64(125), result.Entry.CappedPoints)
	require.Len(t, result.BonusEntries, 1)
	require.Equal(t, int64(5), result.BonusEntries[0].CappedPoints)
	require.Equal(t, int64(130), result.PointsCache)
}

func TestScoreEventBumpsActivityStats(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)
	env.seedCampaign(t, "brand-1", "camp-1", campaign.Active)

	req := deliverableReq("evt-1", true)
	req.CampaignID = "camp-1"
	req.Facts.QualityScore = 4
	_, err := env.svc.ScoreEvent(ctx, "brand-1", req)
	require.NoError(t, err)

	req = deliverableReq("evt-2", false)
	req.CampaignID = "camp-1"
	req.Facts.QualityScore = 2
	_, err = env.svc.ScoreEvent(ctx, "brand-1", req)
	require.NoError(t, err)

	var stat leaderboard.ActivityStat
	require.NoError(t, env.db.First(&stat, "campaign_id = ? AND creator_id = ?", "camp-1", "creator-1").Error)
	require.Equal(t, int64(2), stat.DeliverablesCompleted)
	require.Equal(t, int64(1), stat.DeliverablesOnTime)
	require.Equal(t, float64(3), stat.QualityScore())
}

func TestScoreEventLedgerChainStaysValid(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()
	env.seedMember(t, "brand-1", "creator-1", membership.Active, 0)

	for _, key := range []string{"evt-1", "evt-2", "evt-3"} {
		_, err := env.svc.ScoreEvent(ctx, "brand-1", deliverableReq(key, true))
		require.NoError(t, err)
	}

	valid, err := env.svc.ledger.VerifyChain(ctx, "brand-1", "creator-1")
	require.NoError(t, err)
	require.True(t, valid)
}

func TestPutAndGetRules(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()

	// Without a row the platform defaults apply.
	defaults, err := env.svc.GetRules(ctx, "brand-1")
	require.NoError(t, err)
	require.Equal(t, int64(100), defaults.PointsPerDeliverable)

	_, err = env.svc.PutRules(ctx, "brand-1", PutRulesRequest{
		PointsPerDeliverable: 10,
		QualityMultiplier:    2,
	})
	require.NoError(t, err)

	rules, err := env.svc.GetRules(ctx, "brand-1")
	require.NoError(t, err)
	require.Equal(t, int64(10), rules.PointsPerDeliverable)
	require.Equal(t, float64(2), rules.QualityMultiplier)

	// PUT is a full replace, not a merge.
	_, err = env.svc.PutRules(ctx, "brand-1", PutRulesRequest{
		PointsPerDeliverable: 20,
		QualityMultiplier:    1,
	})
	require.NoError(t, err)

	rules, err = env.svc.GetRules(ctx, "brand-1")
	require.NoError(t, err)
	require.Equal(t, int64(20), rules.PointsPerDeliverable)
	require.Equal(t, float64(1), rules.QualityMultiplier)
}

func TestPutRulesValidation(t *testing.T) {
	env := newScoringEnv(t)

	_, err := env.svc.PutRules(context.Background(), "brand-1", PutRulesRequest{
		PointsPerDeliverable: -1,
		QualityMultiplier:    1,
	})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusValidationFailed, be.Status())
}

func TestPutAndGetCaps(t *testing.T) {
	env := newScoringEnv(t)
	ctx := context.Background()

	// Absent caps read back as unlimited.
	caps, err := env.svc.GetCaps(ctx, "brand-1")
	require.NoError(t, err)
	require.Nil(t, caps.MaxPointsPerPost)

	_, err = env.svc.PutCaps(ctx, "brand-1", PutCapsRequest{MaxPointsPerPost: int64Ptr(100)})
	require.NoError(t, err)

	caps, err = env.svc.GetCaps(ctx, "brand-1")
	require.NoError(t, err)
	require.Equal(t, int64(100), *caps.MaxPointsPerPost)

	// Clearing a ceiling back to null.
	_, err = env.svc.PutCaps(ctx, "brand-1", PutCapsRequest{MaxPointsPerDay: int64Ptr(500)})
	require.NoError(t, err)

	caps, err = env.svc.GetCaps(ctx, "brand-1")
	require.NoError(t, err)
	require.Nil(t, caps.MaxPointsPerPost)
	require.Equal(t, int64(500), *caps.MaxPointsPerDay)
}
