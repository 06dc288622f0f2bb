package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"creatorconnect-gamification/pkg/errutil"
	"creatorconnect-gamification/pkg/middleware"
	"creatorconnect-gamification/pkg/taskname"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// scoreEventPayload is the asynq task body for background scoring. The brand
// scope travels with the payload since there is no request header to read.
type scoreEventPayload struct {
	BrandID string            `json:"brand_id"`
	Request ScoreEventRequest `json:"request"`
}

// EnqueueScoreEvent defers a scoring event to the worker. Callers use this
// when the triggering business action must not block on (or fail with) the
// points write; the event key keeps redelivery idempotent.
func (s *Service) EnqueueScoreEvent(ctx context.Context, brandID string, req ScoreEventRequest) error {
	if s.asynq == nil {
		return errutil.Internal("task queue is not configured", nil)
	}

	if details := req.Validate(); len(details) > 0 {
		return errutil.ValidationFailed("invalid event facts", nil, errutil.WithDetails(details...))
	}

	payload, err := json.Marshal(scoreEventPayload{BrandID: brandID, Request: req})
	if err != nil {
		return errutil.Internal("failed to encode event", err)
	}

	if _, err := s.asynq.Enqueue(asynq.NewTask(taskname.ScoringEvent, payload), asynq.Queue("scoring")); err != nil {
		s.logger(ctx).Error("failed to enqueue scoring event",
			zap.String("brand_id", brandID),
			zap.String("event_key", req.EventKey),
			zap.Error(err),
		)
		return errutil.Internal("failed to enqueue scoring event", err)
	}

	return nil
}

// HandleScoreEventTask is the asynq worker entry point. A duplicate event key
// means an earlier delivery already scored the event, so the task succeeds.
func (s *Service) HandleScoreEventTask(ctx context.Context, t *asynq.Task) error {
	var payload scoreEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid scoring task payload", zap.Error(err))
		return err
	}

	_, err := s.ScoreEvent(ctx, payload.BrandID, payload.Request)
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) && be.Code == errutil.StatusConflict {
			zap.L().Info("scoring event already applied",
				zap.String("brand_id", payload.BrandID),
				zap.String("event_key", payload.Request.EventKey),
			)
			return nil
		}
		return err
	}

	return nil
}

// RegisterTaskHandlers wires scoring tasks into the worker mux.
func RegisterTaskHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.ScoringEvent, s.HandleScoreEventTask)
}

func (s *Service) handleScoreEventAsync(c *gin.Context) {
	var req ScoreEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	if err := s.EnqueueScoreEvent(c.Request.Context(), middleware.GetBrandID(c.Request.Context()), req); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "event_key": req.EventKey})
}
