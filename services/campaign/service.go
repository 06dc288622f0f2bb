package campaign

import (
	"context"
	"net/http"
	"time"

	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/middleware"
	"creatorconnect-gamification/pkg/repository"
	"creatorconnect-gamification/pkg/sequence"

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
	seq  sequence.Generator
	repo repository.Repository[Campaign]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
	Seq  sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		seq:  p.Seq,
		repo: repository.ProvideStore[Campaign](p.DB),
	}
}

type CreateCampaignRequest struct {
	Name    string     `json:"name"`
	StartAt *time.Time `json:"start_at"`
	EndAt   *time.Time `json:"end_at"`
}

func (s *Service) Create(ctx context.Context, brandID string, req CreateCampaignRequest) (*Campaign, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if req.Name == "" {
		return nil, errutil.BadRequest("name is required", nil)
	}
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return nil, errutil.ValidationFailed("invalid campaign window", nil,
			errutil.WithDetails(errutil.Detail{Field: "end_at", Message: "end_at must be after start_at"}))
	}

	var code string
	if s.seq != nil {
		var err error
		code, err = s.seq.NextCampaignCode(ctx, brandID)
		if err != nil {
			zapLog.Error("failed to generate campaign code", zap.Error(err))
			return nil, errutil.Internal("failed to generate campaign code", err)
		}
	}

	now := time.Now()
	c := &Campaign{
		ID:        s.node.Generate().String(),
		BrandID:   brandID,
		Name:      req.Name,
		Code:      code,
		Status:    Active,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		zapLog.Error("failed to create campaign", zap.Error(err))
		return nil, errutil.Internal("failed to create campaign", err)
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, brandID, id string) (*Campaign, error) {
	c, err := s.repo.FindOne(ctx, &Campaign{ID: id, BrandID: brandID})
	if err != nil {
		return nil, errutil.Internal("failed to get campaign", err)
	}
	if c == nil {
		return nil, errutil.NotFound("campaign not found", nil)
	}
	return c, nil
}

func (s *Service) handleCreate(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	campaign, err := s.Create(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

func (s *Service) handleGet(c *gin.Context) {
	campaign, err := s.Get(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), c.Param("campaign_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}
