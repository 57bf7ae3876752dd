package postgres

import (
	"context"
	"time"

	"tickerfeed/internal/binance/ticker"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// UpsertSnapshot overwrites the row of record.Stream.
func (p *PostgresClient) UpsertSnapshot(ctx context.Context, record *TickerSnapshotRecord) error {
	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stream"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price",
			"formatted",
			"state",
			"status",
			"severity",
			"session",
			"retry_in_ms",
			"observed_at",
			"updated_at",
		}),
	}).Create(record).Error
}

func (p *PostgresClient) GetSnapshot(ctx context.Context, stream string) (*TickerSnapshotRecord, error) {
	var record TickerSnapshotRecord
	err := p.DB.WithContext(ctx).
		Where("stream = ?", stream).
		First(&record).Error

	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ToSnapshotRecord converts a published snapshot into its row.
func ToSnapshotRecord(stream string, s ticker.Snapshot, observedAt time.Time) *TickerSnapshotRecord {
	return &TickerSnapshotRecord{
		Stream:     stream,
		Price:      decimal.NullDecimal{Decimal: s.Price.Raw, Valid: s.Price.Valid},
		Formatted:  s.Value(),
		State:      s.State.String(),
		Status:     s.Status.Label,
		Severity:   s.Status.Severity.String(),
		Session:    s.Session,
		RetryInMs:  s.RetryIn.Milliseconds(),
		ObservedAt: observedAt.UTC(),
	}
}
