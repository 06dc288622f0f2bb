package brand

import (
	"context"
	"net/http"
	"time"

	"creatorconnect-gamification/pkg/config"
	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/repository"
	"creatorconnect-gamification/pkg/sequence"
	"creatorconnect-gamification/services/scoring"
	"creatorconnect-gamification/services/tier"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	seq    sequence.Generator
	config *config.Config
	repo   repository.Repository[Brand]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Seq    sequence.Generator `optional:"true"`
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		seq:    p.Seq,
		config: p.Config,
		repo:   repository.ProvideStore[Brand](p.DB),
	}
}

type CreateBrandRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// defaultTierLadder is provisioned for every new brand. Brands replace it
// via PUT /v1/tiers; the base tier at zero points always exists.
func defaultTierLadder(node *snowflake.Node, brandID string, now time.Time) []*tier.Tier {
	ladder := []struct {
		name      string
		minPoints int64
		color     string
	}{
		{"Bronze", 0, "#CD7F32"},
		{"Silver", 500, "#C0C0C0"},
		{"Gold", 2000, "#FFD700"},
		{"Diamond", 5000, "#B9F2FF"},
	}

	tiers := make([]*tier.Tier, 0, len(ladder))
	for i, l := range ladder {
		tiers = append(tiers, &tier.Tier{
			ID:        node.Generate().String(),
			BrandID:   brandID,
			TierName:  l.name,
			SortOrder: i,
			MinPoints: l.minPoints,
			Color:     l.color,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return tiers
}

func (s *Service) Create(ctx context.Context, req CreateBrandRequest) (*Brand, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if req.Name == "" {
		return nil, errutil.BadRequest("name is required", nil)
	}

	slugName := req.Slug
	if slugName == "" {
		slugName = slug.Make(req.Name)
	}

	exist, err := s.repo.FindOne(ctx, &Brand{Slug: slugName})
	if err != nil {
		zapLog.Error("failed query get brand by slug", zap.Error(err))
		return nil, errutil.Internal("failed to check existing brand", err)
	}
	if exist != nil {
		zapLog.Warn("brand already exists", zap.String("slug", slugName))
		return nil, errutil.Conflict("brand already exists", nil)
	}

	brandID := s.node.Generate().String()

	var brandCode string
	if s.seq != nil {
		brandCode, err = s.seq.NextBrandCode(ctx)
		if err != nil {
			zapLog.Error("failed to generate brand code", zap.Error(err))
			return nil, errutil.Internal("failed to create brand", err)
		}
	}

	now := time.Now()
	b := &Brand{
		ID:        brandID,
		Name:      req.Name,
		Slug:      slugName,
		Code:      brandCode,
		Status:    Active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return err
		}

		if err := tx.Create(defaultTierLadder(s.node, brandID, now)).Error; err != nil {
			return err
		}

		rules := scoring.DefaultRules(s.config)
		rules.ID = s.node.Generate().String()
		rules.BrandID = brandID
		rules.CreatedAt = now
		rules.UpdatedAt = now
		return tx.Create(rules).Error
	}); err != nil {
		zapLog.Error("failed to create brand transaction", zap.Error(err))
		return nil, errutil.Internal("failed to create brand", err)
	}

	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Brand, error) {
	b, err := s.repo.FindOne(ctx, &Brand{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to get brand", err)
	}
	if b == nil {
		return nil, errutil.NotFound("brand not found", nil)
	}
	return b, nil
}

func (s *Service) handleCreate(c *gin.Context) {
	var req CreateBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	b, err := s.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

func (s *Service) handleGet(c *gin.Context) {
	b, err := s.Get(c.Request.Context(), c.Param("brand_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, b)
}
