package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Entry is one immutable point delta in the ledger. Corrections are new
// entries, never edits. EventKey is the caller's deduplication key and is
// unique per brand. Each entry carries the previous entry's hash so the
// chain for a creator can be audited end to end.
type Entry struct {
	ID           string         `gorm:"column:id;primaryKey" json:"entry_id"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	BrandID      string         `gorm:"column:brand_id;index:idx_ledger_brand_creator;uniqueIndex:idx_ledger_event_key" json:"brand_id"`
	CreatorID    string         `gorm:"column:creator_id;index:idx_ledger_brand_creator" json:"creator_id"`
	CampaignID   string         `gorm:"column:campaign_id;index" json:"campaign_id,omitempty"`
	EventType    string         `gorm:"column:event_type" json:"event_type"`
	EventKey     string         `gorm:"column:event_key;uniqueIndex:idx_ledger_event_key" json:"event_key"`
	RawPoints    int64          `gorm:"column:raw_points" json:"raw_points"`
	CappedPoints int64          `gorm:"column:capped_points" json:"capped_points"`
	Description  string         `gorm:"column:description" json:"description,omitempty"`
	PreviousHash string         `gorm:"column:previous_hash" json:"previous_hash"`
	Hash         string         `gorm:"column:hash" json:"hash"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
}

func (Entry) TableName() string { return "points_ledger_entries" }

func (m *Entry) HashFields() map[string]string {
	return map[string]string{
		"id":            m.ID,
		"brand_id":      m.BrandID,
		"creator_id":    m.CreatorID,
		"campaign_id":   m.CampaignID,
		"event_type":    m.EventType,
		"event_key":     m.EventKey,
		"raw_points":    fmt.Sprintf("%d", m.RawPoints),
		"capped_points": fmt.Sprintf("%d", m.CappedPoints),
		"description":   m.Description,
		"created_at":    m.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash": m.PreviousHash,
	}
}

func (m *Entry) GenerateHash() string {
	fields := m.HashFields()
	var keys []string
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(hash[:])
}
