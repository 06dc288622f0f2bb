package ledger

import (
	"context"
	"net/http"
	"time"

	"creatorconnect-gamification/pkg/db/option"
	"creatorconnect-gamification/pkg/db/pagination"
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

const genesisHash = "GENESIS"

// chainOrder sorts entries in chain order: created_at first, snowflake id as
// the tie-break so equal timestamps stay deterministic across dialects.
func chainOrder(direction string) option.QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		db = option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: direction,
			Allow:   map[string]bool{"created_at": true},
		})(db)
		return option.WithSortBy(option.QuerySortBy{
			SortBy:  "id",
			OrderBy: direction,
			Allow:   map[string]bool{"id": true},
		})(db)
	}
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[Entry]
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
		repo: repository.ProvideStore[Entry](p.DB),
	}
}

// AppendParams describes one delta to append. ID, hashes and CreatedAt are
// assigned here.
type AppendParams struct {
	BrandID      string
	CreatorID    string
	CampaignID   string
	EventType    string
	EventKey     string
	RawPoints    int64
	CappedPoints int64
	Description  string
	Metadata     []byte
}

// AppendTx writes a new chained entry inside the caller's transaction. The
// caller is expected to hold row locks for the creator's scoring scope; the
// previous entry is still re-read FOR UPDATE as the chain tip.
func (s *Service) AppendTx(ctx context.Context, tx *gorm.DB, p AppendParams) (*Entry, error) {
	repo := s.repo.WithTrx(tx)

	// Pre-check gives a clean conflict before the unique index fires.
	if exist, err := repo.FindOne(ctx, &Entry{BrandID: p.BrandID, EventKey: p.EventKey}); err != nil {
		return nil, err
	} else if exist != nil {
		return nil, errutil.Conflict("event_key already scored", nil)
	}

	// Snowflake ids break created_at ties: mysql's datetime(3) can stamp a
	// primary entry and its bonus entries identically within one transaction.
	lastEntry, err := repo.FindOne(ctx, &Entry{
		BrandID:   p.BrandID,
		CreatorID: p.CreatorID,
	}, chainOrder("desc"), option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}

	previousHash := genesisHash
	if lastEntry != nil {
		previousHash = lastEntry.Hash
	}

	entry := &Entry{
		ID:           s.node.Generate().String(),
		CreatedAt:    time.Now().UTC(),
		BrandID:      p.BrandID,
		CreatorID:    p.CreatorID,
		CampaignID:   p.CampaignID,
		EventType:    p.EventType,
		EventKey:     p.EventKey,
		RawPoints:    p.RawPoints,
		CappedPoints: p.CappedPoints,
		Description:  p.Description,
		PreviousHash: previousHash,
		Metadata:     p.Metadata,
	}
	entry.Hash = entry.GenerateHash()

	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// SumCappedTx returns the creator's total capped points for a brand.
func (s *Service) SumCappedTx(ctx context.Context, tx *gorm.DB, brandID, creatorID string) (int64, error) {
	db := s.db
	if tx != nil {
		db = tx
	}

	var total int64
	err := db.WithContext(ctx).Model(&Entry{}).
		Select("COALESCE(SUM(capped_points), 0)").
		Where("brand_id = ? AND creator_id = ?", brandID, creatorID).
		Scan(&total).Error
	return total, err
}

// DayTotalTx sums the creator's capped points since the given start of day.
func (s *Service) DayTotalTx(ctx context.Context, tx *gorm.DB, brandID, creatorID string, dayStart time.Time) (int64, error) {
	db := s.db
	if tx != nil {
		db = tx
	}

	var total int64
	err := db.WithContext(ctx).Model(&Entry{}).
		Select("COALESCE(SUM(capped_points), 0)").
		Where("brand_id = ? AND creator_id = ? AND created_at >= ?", brandID, creatorID, dayStart).
		Scan(&total).Error
	return total, err
}

// CampaignTotalTx sums the creator's capped points within one campaign.
func (s *Service) CampaignTotalTx(ctx context.Context, tx *gorm.DB, brandID, creatorID, campaignID string) (int64, error) {
	db := s.db
	if tx != nil {
		db = tx
	}

	var total int64
	err := db.WithContext(ctx).Model(&Entry{}).
		Select("COALESCE(SUM(capped_points), 0)").
		Where("brand_id = ? AND creator_id = ? AND campaign_id = ?", brandID, creatorID, campaignID).
		Scan(&total).Error
	return total, err
}

// CampaignCreatorTotals returns capped point sums per creator for a campaign.
func (s *Service) CampaignCreatorTotals(ctx context.Context, brandID, campaignID string) (map[string]int64, error) {
	type row struct {
		CreatorID string
		Total     int64
	}

	var rows []row
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Select("creator_id, COALESCE(SUM(capped_points), 0) AS total").
		Where("brand_id = ? AND campaign_id = ?", brandID, campaignID).
		Group("creator_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, len(rows))
	for _, r := range rows {
		totals[r.CreatorID] = r.Total
	}
	return totals, nil
}

func (s *Service) ListEntries(ctx context.Context, brandID, creatorID, campaignID string, page pagination.Pagination) ([]*Entry, *pagination.PageInfo, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if page.Limit <= 0 {
		page.Limit = 50
	}

	opts := []option.QueryOption{chainOrder("asc")}
	if page.Cursor != "" {
		cursor, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		after, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		afterID := cursor.ID
		opts = append(opts, func(db *gorm.DB) *gorm.DB {
			return db.Where("(created_at > ? OR (created_at = ? AND id > ?))", after, after, afterID)
		})
	}

	// Fetch one extra row so HasMore reflects the page after this one.
	fetch := page
	fetch.Limit = page.Limit + 1
	opts = append(opts, option.ApplyPagination(fetch))

	entries, err := s.repo.Find(ctx, &Entry{
		BrandID:    brandID,
		CreatorID:  creatorID,
		CampaignID: campaignID,
	}, opts...)
	if err != nil {
		zapLog.Error("failed to list ledger entries", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list ledger entries", err)
	}

	pageInfo := pagination.BuildCursorPageInfo(entries, int32(page.Limit), entryCursor)
	if len(entries) > page.Limit {
		entries = entries[:page.Limit]
	}
	return entries, pageInfo, nil
}

func entryCursor(e *Entry) string {
	cursor, _ := pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID:        e.ID,
	})
	return cursor
}

// VerifyChain replays a creator's entries oldest-first and checks both the
// stored hash and the previous-hash link of every entry.
func (s *Service) VerifyChain(ctx context.Context, brandID, creatorID string) (bool, error) {
	entries, err := s.repo.Find(ctx, &Entry{
		BrandID:   brandID,
		CreatorID: creatorID,
	}, chainOrder("asc"))
	if err != nil {
		return false, errutil.Internal("failed to load ledger entries", err)
	}

	lastHash := genesisHash
	for _, entry := range entries {
		if entry.Hash != entry.GenerateHash() || entry.PreviousHash != lastHash {
			return false, nil
		}
		lastHash = entry.Hash
	}

	return true, nil
}

func (s *Service) handleListEntries(c *gin.Context) {
	brandID := middleware.GetBrandID(c.Request.Context())

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination params", err))
		return
	}

	entries, pageInfo, err := s.ListEntries(c.Request.Context(), brandID, c.Query("creator_id"), c.Query("campaign_id"), page)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "page": pageInfo})
}

func (s *Service) handleVerifyChain(c *gin.Context) {
	brandID := middleware.GetBrandID(c.Request.Context())
	creatorID := c.Query("creator_id")
	if creatorID == "" {
		c.Error(errutil.BadRequest("creator_id is required", nil))
		return
	}

	valid, err := s.VerifyChain(c.Request.Context(), brandID, creatorID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
