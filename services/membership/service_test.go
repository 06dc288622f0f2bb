package membership

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/services/ledger"
	"creatorconnect-gamification/services/testutil"
	"creatorconnect-gamification/services/tier"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type testEnv struct {
	svc    *Service
	tiers  *tier.Service
	ledger *ledger.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t, &Membership{}, &tier.Tier{}, &ledger.Entry{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tiers := tier.NewService(tier.ServiceParams{DB: db, Node: node})
	led := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	svc := NewService(ServiceParams{DB: db, Node: node, Tiers: tiers, Ledger: led})

	return &testEnv{svc: svc, tiers: tiers, ledger: led}
}

func seedLadder(t *testing.T, env *testEnv, brandID string) {
	t.Helper()

	_, err := env.tiers.ReplaceTiers(context.Background(), brandID, tier.ReplaceTiersRequest{
		Tiers: []tier.TierInput{
			{TierName: "Bronze", SortOrder: 0, MinPoints: 0},
			{TierName: "Silver", SortOrder: 1, MinPoints: 500},
		},
	})
	require.NoError(t, err)
}

func TestJoin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedLadder(t, env, "brand-1")

	m, err := env.svc.Join(ctx, "brand-1", JoinRequest{CreatorID: "creator-1"})
	require.NoError(t, err)
	require.Equal(t, Active, m.Status)
	require.Zero(t, m.PointsCache)
	require.NotEmpty(t, m.TierID)

	base, err := env.tiers.ResolveTx(ctx, nil, "brand-1", 0)
	require.NoError(t, err)
	require.Equal(t, base.ID, m.TierID)
}

func TestJoinTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Join(ctx, "brand-1", JoinRequest{CreatorID: "creator-1"})
	require.NoError(t, err)

	_, err = env.svc.Join(ctx, "brand-1", JoinRequest{CreatorID: "creator-1"})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusConflict, be.Status())

	// Same creator may still join another brand.
	_, err = env.svc.Join(ctx, "brand-2", JoinRequest{CreatorID: "creator-1"})
	require.NoError(t, err)
}

func TestJoinRequiresCreatorID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Join(context.Background(), "brand-1", JoinRequest{})
	require.Error(t, err)
}

func TestLifecycleTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.svc.Join(ctx, "brand-1", JoinRequest{CreatorID: "creator-1"})
	require.NoError(t, err)

	m, err = env.svc.Suspend(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, Suspended, m.Status)

	// A suspended membership cannot be suspended again.
	_, err = env.svc.Suspend(ctx, m.ID)
	require.Error(t, err)
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusUnprocessableEntity, be.Status())

	m, err = env.svc.Reactivate(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, Active, m.Status)

	m, err = env.svc.Archive(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, Archived, m.Status)

	// Archived is terminal.
	for _, fn := range []func(context.Context, string) (*Membership, error){
		env.svc.Reactivate, env.svc.Suspend, env.svc.Archive,
	} {
		_, err = fn(ctx, m.ID)
		require.Error(t, err)
		require.ErrorAs(t, err, &be)
		require.Equal(t, errutil.StatusUnprocessableEntity, be.Status())
	}
}

func TestArchiveFromSuspended(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.svc.Join(ctx, "brand-1", JoinRequest{CreatorID: "creator-1"})
	require.NoError(t, err)

	_, err = env.svc.Suspend(ctx, m.ID)
	require.NoError(t, err)

	m, err = env.svc.Archive(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, Archived, m.Status)
}

func TestTransitionUnknownMembership(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Suspend(context.Background(), "missing")
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestRebuild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedLadder(t, env, "brand-1")

	m, err := env.svc.Join(ctx, "brand-1", JoinRequest{CreatorID: "creator-1"})
	require.NoError(t, err)

	for i, points := range []int64{400, 150} {
		_, err := env.ledger.AppendTx(ctx, env.svc.db, ledger.AppendParams{
			BrandID:      "brand-1",
			CreatorID:    "creator-1",
			EventType:    "deliverable",
			EventKey:     "evt-" + string(rune('a'+i)),
			RawPoints:    points,
			CappedPoints: points,
		})
		require.NoError(t, err)
	}

	// Drift the cache, then rebuild from the ledger.
	require.NoError(t, env.svc.db.Model(&Membership{}).
		Where("id = ?", m.ID).
		Update("points_cache", 9).Error)

	rebuilt, err := env.svc.Rebuild(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, int64(550), rebuilt.PointsCache)

	silver, err := env.tiers.ResolveTx(ctx, nil, "brand-1", 550)
	require.NoError(t, err)
	require.Equal(t, silver.ID, rebuilt.TierID)

	// Rebuilding a consistent membership changes nothing.
	again, err := env.svc.Rebuild(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, rebuilt.PointsCache, again.PointsCache)
	require.Equal(t, rebuilt.TierID, again.TierID)
}

func TestReplaceTiersReassignsMemberships(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedLadder(t, env, "brand-1")

	m, err := env.svc.Join(ctx, "brand-1", JoinRequest{CreatorID: "creator-1"})
	require.NoError(t, err)

	require.NoError(t, env.svc.db.Model(&Membership{}).
		Where("id = ?", m.ID).
		Update("points_cache", 750).Error)

	// Replacing the ladder deletes every old tier row; the membership must
	// land on the new tier its cache resolves to, not a dangling id.
	newTiers, err := env.tiers.ReplaceTiers(ctx, "brand-1", tier.ReplaceTiersRequest{
		Tiers: []tier.TierInput{
			{TierName: "Starter", SortOrder: 0, MinPoints: 0},
			{TierName: "Rising", SortOrder: 1, MinPoints: 300},
			{TierName: "Elite", SortOrder: 2, MinPoints: 1000},
		},
	})
	require.NoError(t, err)

	reloaded, err := env.svc.Get(ctx, m.ID)
	require.NoError(t, err)

	rising := newTiers[1]
	require.Equal(t, "Rising", rising.TierName)
	require.Equal(t, rising.ID, reloaded.TierID)
}

func TestRebuildUnknownMembership(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Rebuild(context.Background(), "missing")
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Status())
}
