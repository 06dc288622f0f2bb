package scoring

import (
	"context"
	"net/http"
	"time"

	"creatorconnect-gamification/pkg/config"
	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/middleware"
	"creatorconnect-gamification/pkg/repository"
	"creatorconnect-gamification/pkg/task"
	"creatorconnect-gamification/services/campaign"
	"creatorconnect-gamification/services/leaderboard"
	"creatorconnect-gamification/services/ledger"
	"creatorconnect-gamification/services/membership"
	"creatorconnect-gamification/services/rule"
	"creatorconnect-gamification/services/tier"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	config *config.Config
	asynq  task.Enqueuer

	ledger *ledger.Service
	tiers  *tier.Service
	rules  *rule.Service

	ruleRepo     repository.Repository[ScoringRules]
	capsRepo     repository.Repository[ScoringCaps]
	memberRepo   repository.Repository[membership.Membership]
	campaignRepo repository.Repository[campaign.Campaign]
	statsRepo    repository.Repository[leaderboard.ActivityStat]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Asynq  task.Enqueuer `optional:"true"`

	Ledger *ledger.Service
	Tiers  *tier.Service
	Rules  *rule.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		config: p.Config,
		asynq:  p.Asynq,

		ledger: p.Ledger,
		tiers:  p.Tiers,
		rules:  p.Rules,

		ruleRepo:     repository.ProvideStore[ScoringRules](p.DB),
		capsRepo:     repository.ProvideStore[ScoringCaps](p.DB),
		memberRepo:   repository.ProvideStore[membership.Membership](p.DB),
		campaignRepo: repository.ProvideStore[campaign.Campaign](p.DB),
		statsRepo:    repository.ProvideStore[leaderboard.ActivityStat](p.DB),
	}
}

type PutRulesRequest struct {
	PointsPerDeliverable int64   `json:"points_per_deliverable"`
	PointsOnTimeBonus    int64   `json:"points_on_time_bonus"`
	PointsPer1kViews     float64 `json:"points_per_1k_views"`
	PointsPerLike        float64 `json:"points_per_like"`
	PointsPerComment     float64 `json:"points_per_comment"`
	PointsPerSale        int64   `json:"points_per_sale"`
	QualityMultiplier    float64 `json:"quality_multiplier"`
}

// PutRules replaces a brand's scoring rules wholesale. Partial updates are
// not supported; the weights are either all valid and applied, or rejected.
func (s *Service) PutRules(ctx context.Context, brandID string, req PutRulesRequest) (*ScoringRules, error) {
	rules := &ScoringRules{
		BrandID:              brandID,
		PointsPerDeliverable: req.PointsPerDeliverable,
		PointsOnTimeBonus:    req.PointsOnTimeBonus,
		PointsPer1kViews:     req.PointsPer1kViews,
		PointsPerLike:        req.PointsPerLike,
		PointsPerComment:     req.PointsPerComment,
		PointsPerSale:        req.PointsPerSale,
		QualityMultiplier:    req.QualityMultiplier,
	}

	if details := rules.Validate(); len(details) > 0 {
		return nil, errutil.ValidationFailed("invalid scoring rules", nil, errutil.WithDetails(details...))
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		exist, err := s.ruleRepo.WithTrx(tx).FindOne(ctx, &ScoringRules{BrandID: brandID})
		if err != nil {
			return err
		}

		now := time.Now()
		if exist == nil {
			rules.ID = s.node.Generate().String()
			rules.CreatedAt = now
			rules.UpdatedAt = now
			return s.ruleRepo.WithTrx(tx).Create(ctx, rules)
		}

		rules.ID = exist.ID
		rules.CreatedAt = exist.CreatedAt
		rules.UpdatedAt = now
		return tx.Save(rules).Error
	}); err != nil {
		return nil, errutil.Internal("failed to save scoring rules", err)
	}

	return rules, nil
}

// GetRules returns the brand's rules, or the platform defaults when the
// brand never configured any. Creators are never silently unscored.
func (s *Service) GetRules(ctx context.Context, brandID string) (*ScoringRules, error) {
	return s.rulesForBrandTx(ctx, nil, brandID)
}

func (s *Service) rulesForBrandTx(ctx context.Context, tx *gorm.DB, brandID string) (*ScoringRules, error) {
	rules, err := s.ruleRepo.WithTrx(tx).FindOne(ctx, &ScoringRules{BrandID: brandID})
	if err != nil {
		return nil, errutil.Internal("failed to load scoring rules", err)
	}
	if rules == nil {
		defaults := DefaultRules(s.config)
		defaults.BrandID = brandID
		return defaults, nil
	}
	return rules, nil
}

type PutCapsRequest struct {
	MaxPointsPerPost       *int64 `json:"max_points_per_post"`
	MaxPointsPerDay        *int64 `json:"max_points_per_day"`
	MaxPointsTotalCampaign *int64 `json:"max_points_total_campaign"`
}

func (s *Service) PutCaps(ctx context.Context, brandID string, req PutCapsRequest) (*ScoringCaps, error) {
	caps := &ScoringCaps{
		BrandID:                brandID,
		MaxPointsPerPost:       req.MaxPointsPerPost,
		MaxPointsPerDay:        req.MaxPointsPerDay,
		MaxPointsTotalCampaign: req.MaxPointsTotalCampaign,
	}

	if details := caps.Validate(); len(details) > 0 {
		return nil, errutil.ValidationFailed("invalid scoring caps", nil, errutil.WithDetails(details...))
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		exist, err := s.capsRepo.WithTrx(tx).FindOne(ctx, &ScoringCaps{BrandID: brandID})
		if err != nil {
			return err
		}

		now := time.Now()
		if exist == nil {
			caps.ID = s.node.Generate().String()
			caps.CreatedAt = now
			caps.UpdatedAt = now
			return s.capsRepo.WithTrx(tx).Create(ctx, caps)
		}

		caps.ID = exist.ID
		caps.CreatedAt = exist.CreatedAt
		caps.UpdatedAt = now
		return tx.Save(caps).Error
	}); err != nil {
		return nil, errutil.Internal("failed to save scoring caps", err)
	}

	return caps, nil
}

// GetCaps returns the brand's caps; nil fields mean unlimited and a brand
// without a row has no caps at all.
func (s *Service) GetCaps(ctx context.Context, brandID string) (*ScoringCaps, error) {
	caps, err := s.capsRepo.FindOne(ctx, &ScoringCaps{BrandID: brandID})
	if err != nil {
		return nil, errutil.Internal("failed to load scoring caps", err)
	}
	if caps == nil {
		return &ScoringCaps{BrandID: brandID}, nil
	}
	return caps, nil
}

func (s *Service) handlePutRules(c *gin.Context) {
	var req PutRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	rules, err := s.PutRules(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rules)
}

func (s *Service) handleGetRules(c *gin.Context) {
	rules, err := s.GetRules(c.Request.Context(), middleware.GetBrandID(c.Request.Context()))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rules)
}

func (s *Service) handlePutCaps(c *gin.Context) {
	var req PutCapsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	caps, err := s.PutCaps(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, caps)
}

func (s *Service) handleGetCaps(c *gin.Context) {
	caps, err := s.GetCaps(c.Request.Context(), middleware.GetBrandID(c.Request.Context()))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, caps)
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}
