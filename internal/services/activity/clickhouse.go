package activity

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection configuration
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	UseTLS   bool
}

// NewClickHouseConn creates a new ClickHouse connection using HTTP protocol
func NewClickHouseConn(cfg *ClickHouseConfig) (driver.Conn, error) {
	opts := &clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Protocol: clickhouse.HTTP,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	}

	if cfg.UseTLS {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// ClickHouseExporter appends published activity rows to a ReplacingMergeTree
// keyed by id, so redelivered rows collapse on merge.
type ClickHouseExporter struct {
	conn driver.Conn
}

func NewClickHouseExporter(ctx context.Context, conn driver.Conn) (*ClickHouseExporter, error) {
	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS activity_logs (
			id UUID,
			user_id UUID,
			action LowCardinality(String),
			entity_type LowCardinality(String),
			entity_id Nullable(String),
			details String,
			created_at DateTime64(3, 'UTC')
		)
		ENGINE = ReplacingMergeTree
		ORDER BY (created_at, id)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create clickhouse activity table: %w", err)
	}

	return &ClickHouseExporter{conn: conn}, nil
}

func (e *ClickHouseExporter) Export(ctx context.Context, logs []*Log) error {
	batch, err := e.conn.PrepareBatch(ctx, "INSERT INTO activity_logs")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, l := range logs {
		details, err := l.Details.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode details: %w", err)
		}
		if err := batch.Append(l.ID, l.UserID, l.Action, string(l.EntityType), l.EntityID, string(details), l.CreatedAt); err != nil {
			return fmt.Errorf("failed to append activity log: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}
