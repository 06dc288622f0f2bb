package rule

import (
	"context"
	"errors"
	"net/http"
	"time"

	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/middleware"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	node      *snowflake.Node
	repo      Repository
	evaluator *Evaluator
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:      p.Node,
		repo:      NewRepository(p.DB),
		evaluator: NewEvaluator(),
	}
}

type CreateRuleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	EventType   string `json:"event_type"`
	Expression  string `json:"expression"`
	BonusPoints int64  `json:"bonus_points"`
	Priority    int    `json:"priority"`
}

// sampleFacts is the representative variable set bonus expressions compile
// against at write time. It must stay in sync with the scoring event facts.
var sampleFacts = map[string]any{
	"event_type":    "",
	"on_time":       false,
	"view_count":    int64(0),
	"like_count":    int64(0),
	"comment_count": int64(0),
	"sale_count":    int64(0),
	"quality_score": float64(0),
	"raw_points":    int64(0),
	"capped_points": int64(0),
}

func (s *Service) Create(ctx context.Context, brandID string, req CreateRuleRequest) (*BonusRule, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	var details []errutil.Detail
	if req.Name == "" {
		details = append(details, errutil.Detail{Field: "name", Message: "name is required"})
	}
	if req.BonusPoints <= 0 {
		details = append(details, errutil.Detail{Field: "bonus_points", Message: "must be > 0"})
	}
	if err := s.evaluator.Validate(req.Expression, sampleFacts); err != nil {
		details = append(details, errutil.Detail{Field: "expression", Message: err.Error()})
	}
	if len(details) > 0 {
		return nil, errutil.ValidationFailed("invalid bonus rule", nil, errutil.WithDetails(details...))
	}

	now := time.Now()
	r := &BonusRule{
		ID:          s.node.Generate().String(),
		BrandID:     brandID,
		Name:        req.Name,
		Description: req.Description,
		EventType:   req.EventType,
		Expression:  req.Expression,
		BonusPoints: req.BonusPoints,
		Priority:    req.Priority,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		zapLog.Error("failed to create bonus rule", zap.Error(err))
		return nil, errutil.Internal("failed to create bonus rule", err)
	}

	return r, nil
}

func (s *Service) List(ctx context.Context, brandID string, includeInactive bool) ([]BonusRule, error) {
	rules, err := s.repo.List(ctx, brandID, includeInactive)
	if err != nil {
		return nil, errutil.Internal("failed to list bonus rules", err)
	}
	return rules, nil
}

func (s *Service) Delete(ctx context.Context, brandID, ruleID string) error {
	if err := s.repo.Delete(ctx, brandID, ruleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.NotFound("bonus rule not found", nil)
		}
		return errutil.Internal("failed to delete bonus rule", err)
	}
	return nil
}

// MatchTx returns the active rules whose expression matches the event facts,
// read inside the caller's transaction. A rule that fails to evaluate is
// skipped and logged rather than failing the scoring event.
func (s *Service) MatchTx(ctx context.Context, tx *gorm.DB, brandID, eventType string, facts map[string]any) ([]BonusRule, error) {
	rules, err := s.repo.ListActiveByEventType(ctx, tx, brandID, eventType)
	if err != nil {
		return nil, err
	}

	matched := make([]BonusRule, 0, len(rules))
	for _, r := range rules {
		ok, err := s.evaluator.Evaluate(r.Expression, facts)
		if err != nil {
			zap.L().Warn("bonus rule evaluation failed",
				zap.String("rule_id", r.ID),
				zap.String("brand_id", brandID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			matched = append(matched, r)
		}
	}

	return matched, nil
}

func (s *Service) handleCreate(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	r, err := s.Create(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, r)
}

func (s *Service) handleList(c *gin.Context) {
	rules, err := s.List(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), c.Query("include_inactive") == "true")
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Service) handleDelete(c *gin.Context) {
	if err := s.Delete(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), c.Param("rule_id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
