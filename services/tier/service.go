package tier

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/middleware"
	"creatorconnect-gamification/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[Tier]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		repo: repository.ProvideStore[Tier](p.DB),
	}
}

type TierInput struct {
	TierName  string `json:"tier_name"`
	SortOrder int    `json:"sort_order"`
	MinPoints int64  `json:"min_points"`
	Color     string `json:"color"`
	Icon      string `json:"icon"`
}

type ReplaceTiersRequest struct {
	Tiers []TierInput `json:"tiers"`
}

func validateTierList(tiers []TierInput) []errutil.Detail {
	var details []errutil.Detail

	if len(tiers) == 0 {
		return append(details, errutil.Detail{Field: "tiers", Message: "at least one tier is required"})
	}

	seenOrder := make(map[int]bool, len(tiers))
	for i, t := range tiers {
		field := fmt.Sprintf("tiers[%d]", i)
		if t.TierName == "" {
			details = append(details, errutil.Detail{Field: field + ".tier_name", Message: "tier_name is required"})
		}
		if t.MinPoints < 0 {
			details = append(details, errutil.Detail{Field: field + ".min_points", Message: "min_points must be >= 0"})
		}
		if seenOrder[t.SortOrder] {
			details = append(details, errutil.Detail{Field: field + ".sort_order", Message: "sort_order must be unique"})
		}
		seenOrder[t.SortOrder] = true
	}
	if len(details) > 0 {
		return details
	}

	ordered := make([]TierInput, len(tiers))
	copy(ordered, tiers)
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].SortOrder < ordered[i].SortOrder {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	if ordered[0].MinPoints != 0 {
		details = append(details, errutil.Detail{Field: "tiers", Message: "the lowest tier must have min_points = 0"})
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].MinPoints <= ordered[i-1].MinPoints {
			details = append(details, errutil.Detail{
				Field:   fmt.Sprintf("tiers[%d].min_points", i),
				Message: "min_points must be strictly increasing with sort_order",
			})
		}
	}

	return details
}

// ReplaceTiers swaps a brand's tier ladder in one transaction. Memberships are
// re-pointed at the new ladder in the same transaction so tier_id never
// references a deleted tier.
func (s *Service) ReplaceTiers(ctx context.Context, brandID string, req ReplaceTiersRequest) ([]*Tier, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if details := validateTierList(req.Tiers); len(details) > 0 {
		return nil, errutil.ValidationFailed("invalid tier list", nil, errutil.WithDetails(details...))
	}

	now := time.Now()
	tiers := make([]*Tier, 0, len(req.Tiers))
	for _, in := range req.Tiers {
		tiers = append(tiers, &Tier{
			ID:        s.node.Generate().String(),
			BrandID:   brandID,
			TierName:  in.TierName,
			SortOrder: in.SortOrder,
			MinPoints: in.MinPoints,
			Color:     in.Color,
			Icon:      in.Icon,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("brand_id = ?", brandID).Delete(&Tier{}).Error; err != nil {
			return err
		}
		if err := s.repo.WithTrx(tx).BatchCreate(ctx, tiers); err != nil {
			return err
		}
		return reassignMemberships(tx, brandID, tiers)
	}); err != nil {
		zapLog.Error("failed to replace tiers", zap.String("brand_id", brandID), zap.Error(err))
		return nil, errutil.Internal("failed to replace tiers", err)
	}

	return tiers, nil
}

// reassignMemberships resolves every membership of the brand against the new
// ladder from its points_cache. Raw table access keeps the membership package
// out of this one's import graph.
func reassignMemberships(tx *gorm.DB, brandID string, tiers []*Tier) error {
	ladder := make([]*Tier, len(tiers))
	copy(ladder, tiers)
	sort.Slice(ladder, func(i, j int) bool { return ladder[i].MinPoints < ladder[j].MinPoints })

	now := time.Now()
	for i, t := range ladder {
		q := tx.Table("memberships").
			Where("brand_id = ? AND points_cache >= ?", brandID, t.MinPoints)
		if i+1 < len(ladder) {
			q = q.Where("points_cache < ?", ladder[i+1].MinPoints)
		}
		if err := q.Updates(map[string]any{"tier_id": t.ID, "updated_at": now}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ListTiers(ctx context.Context, brandID string) ([]*Tier, error) {
	return s.ListTiersTx(ctx, nil, brandID)
}

// ListTiersTx reads the brand's ladder inside an existing transaction when tx
// is non-nil. Scoring uses this so tier resolution sees uncommitted writes.
func (s *Service) ListTiersTx(ctx context.Context, tx *gorm.DB, brandID string) ([]*Tier, error) {
	tiers, err := s.repo.WithTrx(tx).Find(ctx, &Tier{BrandID: brandID})
	if err != nil {
		return nil, errutil.Internal("failed to list tiers", err)
	}
	return tiers, nil
}

// ResolveTx resolves the tier for a point total inside an existing transaction.
func (s *Service) ResolveTx(ctx context.Context, tx *gorm.DB, brandID string, total int64) (*Tier, error) {
	tiers, err := s.ListTiersTx(ctx, tx, brandID)
	if err != nil {
		return nil, err
	}
	return Resolve(tiers, total), nil
}

func (s *Service) handleReplaceTiers(c *gin.Context) {
	var req ReplaceTiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	tiers, err := s.ReplaceTiers(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}

func (s *Service) handleListTiers(c *gin.Context) {
	tiers, err := s.ListTiers(c.Request.Context(), middleware.GetBrandID(c.Request.Context()))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}
