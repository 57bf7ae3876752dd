package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

// TickerSnapshotRecord is the latest published snapshot of one stream.
// There is exactly one row per stream; it is overwritten on every update.
type TickerSnapshotRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Stream string `gorm:"type:text;not null;uniqueIndex:idx_ticker_snapshot_stream"`

	Price      decimal.NullDecimal `gorm:"type:numeric"` // null while a placeholder is shown
	Formatted  string              `gorm:"type:text;not null"`
	State      string              `gorm:"type:varchar(32);not null"`
	Status     string              `gorm:"type:text;not null"`
	Severity   string              `gorm:"type:varchar(16);not null"`
	Session    uint64              `gorm:"not null"`
	RetryInMs  int64               `gorm:"not null"`
	ObservedAt time.Time           `gorm:"not null"`

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (TickerSnapshotRecord) TableName() string {
	return "ticker_snapshot"
}
