package reconcile

import (
	"context"
	"encoding/json"

	"creatorconnect-gamification/pkg/repository"
	"creatorconnect-gamification/pkg/task"
	"creatorconnect-gamification/pkg/taskname"
	"creatorconnect-gamification/services/brand"
	"creatorconnect-gamification/services/membership"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Service audits the denormalized pointsCache against the ledger. Rebuild is
// idempotent, so re-running a brand's audit after a partial failure is safe.
type Service struct {
	asynq       task.Enqueuer
	memberships *membership.Service

	brands  repository.Repository[brand.Brand]
	members repository.Repository[membership.Membership]
}

type Params struct {
	fx.In
	DB          *gorm.DB
	Asynq       task.Enqueuer `optional:"true"`
	Memberships *membership.Service
}

func NewService(p Params) *Service {
	return &Service{
		asynq:       p.Asynq,
		memberships: p.Memberships,
		brands:      repository.ProvideStore[brand.Brand](p.DB),
		members:     repository.ProvideStore[membership.Membership](p.DB),
	}
}

type reconcilePayload struct {
	BrandID string `json:"brand_id"`
}

// EnqueueBrandReconcileJob queues one brand's pointsCache audit.
func (s *Service) EnqueueBrandReconcileJob(ctx context.Context, brandID string) error {
	payload, _ := json.Marshal(reconcilePayload{BrandID: brandID})

	_, err := s.asynq.Enqueue(asynq.NewTask(taskname.ReconcileBrand, payload), asynq.Queue("reconcile"))
	if err != nil {
		return err
	}

	zap.L().Info("enqueued reconcile job", zap.String("brand_id", brandID))
	return nil
}

// EnqueueAllBrandReconcileJobs fans the nightly audit out across every
// active brand. A brand that fails to enqueue is logged and skipped so one
// bad brand cannot starve the rest.
func (s *Service) EnqueueAllBrandReconcileJobs(ctx context.Context) error {
	brands, err := s.brands.Find(ctx, &brand.Brand{Status: brand.Active})
	if err != nil {
		return err
	}

	for _, b := range brands {
		if err := s.EnqueueBrandReconcileJob(ctx, b.ID); err != nil {
			zap.L().Error("failed enqueue reconcile job", zap.String("brand_id", b.ID), zap.Error(err))
		}
	}

	zap.L().Info("finished enqueue reconcile jobs", zap.Int("total_brands", len(brands)))
	return nil
}

// HandleReconcileBrandTask rebuilds every membership of one brand from the
// ledger, a few at a time.
func (s *Service) HandleReconcileBrandTask(ctx context.Context, t *asynq.Task) error {
	var payload reconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid reconcile payload", zap.Error(err))
		return err
	}

	zap.L().Info("reconciling brand", zap.String("brand_id", payload.BrandID))

	members, err := s.members.Find(ctx, &membership.Membership{BrandID: payload.BrandID})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, m := range members {
		m := m
		g.Go(func() error {
			if _, err := s.memberships.Rebuild(gctx, m.ID); err != nil {
				zap.L().Error("failed to rebuild membership",
					zap.String("membership_id", m.ID),
					zap.String("brand_id", payload.BrandID),
					zap.Error(err),
				)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("finished reconciling brand",
		zap.String("brand_id", payload.BrandID),
		zap.Int("memberships", len(members)),
	)
	return nil
}

// RegisterTaskHandlers wires reconciliation tasks into the worker mux.
func RegisterTaskHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.ReconcileBrand, s.HandleReconcileBrandTask)
}
