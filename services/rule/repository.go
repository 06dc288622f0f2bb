package rule

import (
	"context"

	"gorm.io/gorm"
)

// Repository describes database operations available for bonus rules.
type Repository interface {
	Create(ctx context.Context, rule *BonusRule) error
	GetByID(ctx context.Context, brandID, ruleID string) (*BonusRule, error)
	List(ctx context.Context, brandID string, includeInactive bool) ([]BonusRule, error)
	Delete(ctx context.Context, brandID, ruleID string) error
	ListActiveByEventType(ctx context.Context, tx *gorm.DB, brandID, eventType string) ([]BonusRule, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, rule *BonusRule) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *gormRepository) GetByID(ctx context.Context, brandID, ruleID string) (*BonusRule, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var rule BonusRule
	err := r.db.WithContext(ctx).
		Where("brand_id = ? AND id = ?", brandID, ruleID).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *gormRepository) List(ctx context.Context, brandID string, includeInactive bool) ([]BonusRule, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	query := r.db.WithContext(ctx).Model(&BonusRule{}).
		Where("brand_id = ?", brandID)

	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	query = query.Order("priority DESC").Order("id ASC")

	var rules []BonusRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *gormRepository) Delete(ctx context.Context, brandID, ruleID string) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Where("brand_id = ? AND id = ?", brandID, ruleID).
		Delete(&BonusRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListActiveByEventType loads matching active rules inside an optional
// transaction. Rules with an empty event_type apply to every event.
func (r *gormRepository) ListActiveByEventType(ctx context.Context, tx *gorm.DB, brandID, eventType string) ([]BonusRule, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	if db == nil {
		return nil, gorm.ErrInvalidDB
	}

	query := db.WithContext(ctx).Model(&BonusRule{}).
		Where("brand_id = ? AND is_active = ?", brandID, true).
		Where("event_type = ? OR event_type = ''", eventType).
		Order("priority DESC").Order("id ASC")

	var rules []BonusRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
