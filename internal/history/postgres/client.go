package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"dollartracker/internal/config"
	"dollartracker/internal/history"
)

// Client is a history.Store on PostgreSQL.
type Client struct {
	DB *gorm.DB
}

var _ history.Store = (*Client)(nil)

func NewClient(dsn string) (*Client, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Client{DB: db}, nil
}

// Open connects with the pool settings of cfg, optionally creating the
// database first, and migrates the tick table.
func Open(cfg config.Postgres, createDB bool) (*Client, error) {
	if createDB {
		if err := CreateDatabase(cfg); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if sqlDB, err := client.DB.DB(); err == nil {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if err := client.AutoMigrate(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return client, nil
}

func (c *Client) AutoMigrate() error {
	if err := c.DB.AutoMigrate(&TickRecord{}); err != nil {
		return fmt.Errorf("auto-migrate price_tick table: %w", err)
	}
	return nil
}

// Append inserts ticks, skipping any (batch, exchange) pair already stored.
func (c *Client) Append(ctx context.Context, ticks []history.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	records := make([]TickRecord, 0, len(ticks))
	for _, t := range ticks {
		records = append(records, toRecord(t))
	}
	err := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&records, 500).Error
	if err != nil {
		return fmt.Errorf("insert ticks: %w", err)
	}
	return nil
}

func (c *Client) Range(ctx context.Context, exchange string, since time.Time) ([]history.Tick, error) {
	q := c.DB.WithContext(ctx).Where("timestamp >= ?", since.UTC())
	if !history.AllExchanges(exchange) {
		q = q.Where("exchange = ?", exchange)
	}
	var records []TickRecord
	if err := q.Order("timestamp DESC").Limit(history.MaxRange).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	out := make([]history.Tick, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r.tick()
	}
	return out, nil
}

func (c *Client) Near(ctx context.Context, exchange string, at time.Time, tolerance time.Duration) (history.Tick, bool, error) {
	at = at.UTC()
	var r TickRecord
	err := c.DB.WithContext(ctx).
		Where("exchange = ? AND timestamp BETWEEN ? AND ?", exchange, at.Add(-tolerance), at.Add(tolerance)).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "ABS(EXTRACT(EPOCH FROM (timestamp - ?)))",
			Vars: []any{at},
		}}).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return history.Tick{}, false, nil
	}
	if err != nil {
		return history.Tick{}, false, fmt.Errorf("query nearest tick: %w", err)
	}
	return r.tick(), true, nil
}

func (c *Client) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := c.DB.WithContext(ctx).Where("timestamp < ?", before.UTC()).Delete(&TickRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old ticks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	db, err := c.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (c *Client) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
