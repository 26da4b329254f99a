package postgres

import (
	"time"

	"dollartracker/internal/history"
	"dollartracker/internal/provider"
)

// TickRecord is one stored per-source observation.
type TickRecord struct {
	ID uint64 `gorm:"primaryKey"`

	BatchID  string `gorm:"type:uuid;not null;index:idx_tick_batch;uniqueIndex:idx_tick_batch_exchange"`
	Exchange string `gorm:"type:varchar(64);not null;index:idx_tick_exchange_ts,priority:1;uniqueIndex:idx_tick_batch_exchange"`

	Bid  float64 `gorm:"type:numeric;not null"`
	Ask  float64 `gorm:"type:numeric;not null"`
	Last float64 `gorm:"type:numeric;not null"`

	Origin string `gorm:"type:text"`

	Timestamp time.Time `gorm:"not null;index:idx_tick_exchange_ts,priority:2;index:idx_tick_timestamp"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TickRecord) TableName() string {
	return "price_tick"
}

func toRecord(t history.Tick) TickRecord {
	return TickRecord{
		BatchID:   t.BatchID,
		Exchange:  string(t.Exchange),
		Bid:       t.Bid,
		Ask:       t.Ask,
		Last:      t.Last,
		Origin:    t.Origin,
		Timestamp: t.Timestamp.UTC(),
	}
}

func (r TickRecord) tick() history.Tick {
	return history.Tick{
		ID:        r.ID,
		BatchID:   r.BatchID,
		Exchange:  provider.SourceID(r.Exchange),
		Bid:       r.Bid,
		Ask:       r.Ask,
		Last:      r.Last,
		Origin:    r.Origin,
		Timestamp: r.Timestamp.UTC(),
	}
}
