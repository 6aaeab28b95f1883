package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

const defaultPoolSize = 4

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
// A poolSize of zero uses the default.
func NewPostgresStore(ctx context.Context, connString string, poolSize int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	cfg.MaxConns = int32(poolSize) //nolint:gosec // small configured value

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// RecordNotification inserts one history record. A missing id is generated.
func (s *PostgresStore) RecordNotification(ctx context.Context, r *domain.NotificationRecord) error {
	if r == nil {
		return errors.New("nil notification record")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	query, args, err := insertNotificationSQL(
		r.ID, string(r.Vendor), r.ShowID, r.Target, string(r.Kind), r.Subject, r.OfferCount, r.SentAt,
	)
	if err != nil {
		return fmt.Errorf("building notification insert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// ListNotifications returns one page of history, newest first, and the
// total number of matching records.
func (s *PostgresStore) ListNotifications(
	ctx context.Context,
	q *NotificationQuery,
) ([]domain.NotificationRecord, int, error) {
	if q == nil {
		q = &NotificationQuery{}
	}

	dataSQL, countSQL, args, err := q.ToSQL()
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying notifications: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.NotificationRecord])
	if err != nil {
		return nil, 0, fmt.Errorf("scanning notifications: %w", err)
	}

	return records, total, nil
}
