package membership

import (
	"context"
	"net/http"
	"time"

	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/middleware"
	"creatorconnect-gamification/pkg/repository"
	"creatorconnect-gamification/pkg/sequence"
	"creatorconnect-gamification/services/ledger"
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
	seq    sequence.Generator
	tiers  *tier.Service
	ledger *ledger.Service
	repo   repository.Repository[Membership]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Seq    sequence.Generator `optional:"true"`
	Tiers  *tier.Service
	Ledger *ledger.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		seq:    p.Seq,
		tiers:  p.Tiers,
		ledger: p.Ledger,
		repo:   repository.ProvideStore[Membership](p.DB),
	}
}

type JoinRequest struct {
	CreatorID string `json:"creator_id"`
}

// Join creates an active membership at zero points on the brand's base tier.
// Joining twice is a conflict, not an upsert.
func (s *Service) Join(ctx context.Context, brandID string, req JoinRequest) (*Membership, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if req.CreatorID == "" {
		return nil, errutil.BadRequest("creator_id is required", nil)
	}

	exist, err := s.repo.FindOne(ctx, &Membership{CreatorID: req.CreatorID, BrandID: brandID})
	if err != nil {
		zapLog.Error("failed query membership", zap.Error(err))
		return nil, errutil.Internal("failed to check existing membership", err)
	}
	if exist != nil {
		return nil, errutil.Conflict("membership already exists", nil)
	}

	baseTier, err := s.tiers.ResolveTx(ctx, nil, brandID, 0)
	if err != nil {
		return nil, err
	}

	var couponCode string
	if s.seq != nil {
		couponCode, err = s.seq.NextCouponCode(ctx, brandID)
		if err != nil {
			zapLog.Error("failed to generate coupon code", zap.Error(err))
			return nil, errutil.Internal("failed to generate coupon code", err)
		}
	}

	now := time.Now()
	m := &Membership{
		ID:          s.node.Generate().String(),
		CreatorID:   req.CreatorID,
		BrandID:     brandID,
		Status:      Active,
		PointsCache: 0,
		CouponCode:  couponCode,
		JoinedAt:    now,
		UpdatedAt:   now,
	}
	if baseTier != nil {
		m.TierID = baseTier.ID
	}

	if err := s.repo.Create(ctx, m); err != nil {
		zapLog.Error("failed to create membership", zap.Error(err))
		return nil, errutil.Internal("failed to create membership", err)
	}

	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Membership, error) {
	m, err := s.repo.FindOne(ctx, &Membership{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to get membership", err)
	}
	if m == nil {
		return nil, errutil.NotFound("membership not found", nil)
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, brandID, creatorID string) ([]*Membership, error) {
	memberships, err := s.repo.Find(ctx, &Membership{BrandID: brandID, CreatorID: creatorID})
	if err != nil {
		return nil, errutil.Internal("failed to list memberships", err)
	}
	return memberships, nil
}

// transition applies a lifecycle change. Archived is terminal in every
// direction; suspension and reactivation are brand-initiated toggles.
func (s *Service) transition(ctx context.Context, id string, to Status) (*Membership, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	switch to {
	case Suspended:
		allowed = m.Status == Active
	case Active:
		allowed = m.Status == Suspended
	case Archived:
		allowed = m.Status == Active || m.Status == Suspended
	}
	if !allowed {
		return nil, errutil.UnprocessableEntity("invalid membership transition", nil,
			errutil.WithDetails(errutil.Detail{
				Field:   "status",
				Message: string(m.Status) + " -> " + string(to) + " is not allowed",
			}))
	}

	if err := s.repo.Update(ctx, m.ID, &Membership{Status: to, UpdatedAt: time.Now()}); err != nil {
		return nil, errutil.Internal("failed to update membership", err)
	}

	m.Status = to
	return m, nil
}

func (s *Service) Suspend(ctx context.Context, id string) (*Membership, error) {
	return s.transition(ctx, id, Suspended)
}

func (s *Service) Reactivate(ctx context.Context, id string) (*Membership, error) {
	return s.transition(ctx, id, Active)
}

func (s *Service) Archive(ctx context.Context, id string) (*Membership, error) {
	return s.transition(ctx, id, Archived)
}

// Rebuild recomputes PointsCache from the ledger and re-resolves the tier.
// It is idempotent: running it on a consistent membership changes nothing.
func (s *Service) Rebuild(ctx context.Context, id string) (*Membership, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	var rebuilt *Membership
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.WithTrx(tx).FindOne(ctx, &Membership{ID: id})
		if err != nil {
			return err
		}
		if m == nil {
			return errutil.NotFound("membership not found", nil)
		}

		total, err := s.ledger.SumCappedTx(ctx, tx, m.BrandID, m.CreatorID)
		if err != nil {
			return err
		}

		resolved, err := s.tiers.ResolveTx(ctx, tx, m.BrandID, total)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"points_cache": total,
			"updated_at":   time.Now(),
		}
		if resolved != nil {
			updates["tier_id"] = resolved.ID
		}
		if err := s.repo.WithTrx(tx).Update(ctx, m.ID, &updates); err != nil {
			return err
		}

		m.PointsCache = total
		if resolved != nil {
			m.TierID = resolved.ID
		}
		rebuilt = m
		return nil
	}); err != nil {
		if _, ok := err.(errutil.BaseError); ok {
			return nil, err
		}
		zapLog.Error("failed to rebuild membership cache", zap.String("membership_id", id), zap.Error(err))
		return nil, errutil.Internal("failed to rebuild membership cache", err)
	}

	return rebuilt, nil
}

func (s *Service) handleJoin(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	m, err := s.Join(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

func (s *Service) handleList(c *gin.Context) {
	memberships, err := s.List(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), c.Query("creator_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"memberships": memberships})
}

func (s *Service) handleTransition(fn func(context.Context, string) (*Membership, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := fn(c.Request.Context(), c.Param("membership_id"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
