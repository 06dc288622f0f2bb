package tier

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/services/testutil"
)

// membershipRow mirrors the columns ReplaceTiers touches when it re-points
// memberships at the new ladder; the full model lives in services/membership.
type membershipRow struct {
	ID          string    `gorm:"column:id;primaryKey"`
	BrandID     string    `gorm:"column:brand_id"`
	TierID      string    `gorm:"column:tier_id"`
	PointsCache int64     `gorm:"column:points_cache"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (membershipRow) TableName() string { return "memberships" }

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Tier{}, &membershipRow{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func validLadder() ReplaceTiersRequest {
	return ReplaceTiersRequest{Tiers: []TierInput{
		{TierName: "Bronze", SortOrder: 0, MinPoints: 0},
		{TierName: "Silver", SortOrder: 1, MinPoints: 500},
		{TierName: "Gold", SortOrder: 2, MinPoints: 2000},
	}}
}

func TestReplaceTiers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tiers, err := svc.ReplaceTiers(ctx, "brand-1", validLadder())
	require.NoError(t, err)
	require.Len(t, tiers, 3)

	// Replacing again swaps the ladder wholesale.
	_, err = svc.ReplaceTiers(ctx, "brand-1", ReplaceTiersRequest{Tiers: []TierInput{
		{TierName: "Member", SortOrder: 0, MinPoints: 0},
		{TierName: "VIP", SortOrder: 1, MinPoints: 1000},
	}})
	require.NoError(t, err)

	listed, err := svc.ListTiers(ctx, "brand-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestReplaceTiersScopedByBrand(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ReplaceTiers(ctx, "brand-1", validLadder())
	require.NoError(t, err)
	_, err = svc.ReplaceTiers(ctx, "brand-2", validLadder())
	require.NoError(t, err)

	// Rewriting brand-2's ladder must not touch brand-1's.
	_, err = svc.ReplaceTiers(ctx, "brand-2", ReplaceTiersRequest{Tiers: []TierInput{
		{TierName: "Only", SortOrder: 0, MinPoints: 0},
	}})
	require.NoError(t, err)

	listed, err := svc.ListTiers(ctx, "brand-1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
}

func TestReplaceTiersRepointsMembershipRows(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	old, err := svc.ReplaceTiers(ctx, "brand-1", validLadder())
	require.NoError(t, err)

	rows := []*membershipRow{
		{ID: "m-low", BrandID: "brand-1", TierID: old[0].ID, PointsCache: 100},
		{ID: "m-mid", BrandID: "brand-1", TierID: old[1].ID, PointsCache: 750},
		{ID: "m-top", BrandID: "brand-1", TierID: old[2].ID, PointsCache: 5000},
		{ID: "m-other", BrandID: "brand-2", TierID: "untouched", PointsCache: 750},
	}
	require.NoError(t, svc.db.Create(&rows).Error)

	replaced, err := svc.ReplaceTiers(ctx, "brand-1", ReplaceTiersRequest{Tiers: []TierInput{
		{TierName: "Base", SortOrder: 0, MinPoints: 0},
		{TierName: "Plus", SortOrder: 1, MinPoints: 200},
	}})
	require.NoError(t, err)

	var got []membershipRow
	require.NoError(t, svc.db.Find(&got).Error)
	byID := make(map[string]membershipRow, len(got))
	for _, r := range got {
		byID[r.ID] = r
	}

	require.Equal(t, replaced[0].ID, byID["m-low"].TierID)
	require.Equal(t, replaced[1].ID, byID["m-mid"].TierID)
	require.Equal(t, replaced[1].ID, byID["m-top"].TierID)
	require.Equal(t, "untouched", byID["m-other"].TierID)
}

func TestReplaceTiersValidation(t *testing.T) {
	tests := []struct {
		name  string
		tiers []TierInput
	}{
		{name: "empty ladder", tiers: nil},
		{
			name:  "missing name",
			tiers: []TierInput{{TierName: "", SortOrder: 0, MinPoints: 0}},
		},
		{
			name: "duplicate sort order",
			tiers: []TierInput{
				{TierName: "Bronze", SortOrder: 0, MinPoints: 0},
				{TierName: "Silver", SortOrder: 0, MinPoints: 500},
			},
		},
		{
			name: "lowest tier not at zero",
			tiers: []TierInput{
				{TierName: "Bronze", SortOrder: 0, MinPoints: 100},
				{TierName: "Silver", SortOrder: 1, MinPoints: 500},
			},
		},
		{
			name: "thresholds not strictly increasing",
			tiers: []TierInput{
				{TierName: "Bronze", SortOrder: 0, MinPoints: 0},
				{TierName: "Silver", SortOrder: 1, MinPoints: 500},
				{TierName: "Gold", SortOrder: 2, MinPoints: 500},
			},
		},
	}

	svc := newTestService(t)
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ReplaceTiers(ctx, "brand-1", ReplaceTiersRequest{Tiers: tt.tiers})
			require.Error(t, err)

			var be errutil.BaseError
			require.ErrorAs(t, err, &be)
			require.Equal(t, errutil.StatusValidationFailed, be.Status())
		})
	}
}

func TestResolveTx(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ReplaceTiers(ctx, "brand-1", validLadder())
	require.NoError(t, err)

	resolved, err := svc.ResolveTx(ctx, nil, "brand-1", 499)
	require.NoError(t, err)
	require.Equal(t, "Bronze", resolved.TierName)

	resolved, err = svc.ResolveTx(ctx, nil, "brand-1", 500)
	require.NoError(t, err)
	require.Equal(t, "Silver", resolved.TierName)

	// A brand without a ladder resolves to no tier.
	resolved, err = svc.ResolveTx(ctx, nil, "brand-2", 500)
	require.NoError(t, err)
	require.Nil(t, resolved)
}
