package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

const uniqueViolation = "23505"

func NewPool(ctx context.Context, dsn string, maxConns, minConns int32, maxConnLife time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = maxConnLife
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// PostgresStore keeps one table per entity collection plus a settings table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func tableFor(kind interfaces.EntityKind) string {
	return pgx.Identifier{kind.Collection()}.Sanitize()
}

// SaveEntity inserts the mirror row; an existing row for the address yields ErrEntityExists.
func (s *PostgresStore) SaveEntity(ctx context.Context, kind interfaces.EntityKind, record *interfaces.EntityRecord) error {
	if err := checkRecord(kind, record); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+tableFor(kind)+` (address, name, physical_address, content_hash, created_by, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.Address.Hex(), record.Name, record.PhysicalAddress, string(record.ContentHash), record.CreatedBy.Hex(), record.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s %s", interfaces.ErrEntityExists, kind, record.Address.Hex())
		}
		return fmt.Errorf("failed to insert %s: %w", kind, err)
	}
	return nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, kind interfaces.EntityKind, address common.Address) (*interfaces.EntityRecord, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		SELECT address, name, physical_address, content_hash, created_by, timestamp
		FROM `+tableFor(kind)+`
		WHERE address = $1
	`, address.Hex())

	record, err := scanEntity(kind, row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s", interfaces.ErrEntityNotFound, kind, address.Hex())
		}
		return nil, err
	}
	return record, nil
}

func (s *PostgresStore) ListEntities(ctx context.Context, kind interfaces.EntityKind) ([]*interfaces.EntityRecord, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT address, name, physical_address, content_hash, created_by, timestamp
		FROM `+tableFor(kind)+`
		ORDER BY timestamp, address
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Collection(), err)
	}
	defer rows.Close()

	records := []*interfaces.EntityRecord{}
	for rows.Next() {
		record, err := scanEntity(kind, rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanEntity(kind interfaces.EntityKind, row pgx.Row) (*interfaces.EntityRecord, error) {
	var address, contentHash, createdBy string
	record := &interfaces.EntityRecord{Kind: kind}
	if err := row.Scan(&address, &record.Name, &record.PhysicalAddress, &contentHash, &createdBy, &record.Timestamp); err != nil {
		return nil, err
	}
	record.Address = common.HexToAddress(address)
	record.CreatedBy = common.HexToAddress(createdBy)
	record.ContentHash = interfaces.ContentHash(contentHash)
	return record, nil
}

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (*interfaces.Setting, error) {
	setting := &interfaces.Setting{}
	err := s.pool.QueryRow(ctx, `
		SELECT key, value, updated_at FROM settings WHERE key = $1
	`, key).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrSettingNotFound, key)
		}
		return nil, err
	}
	return setting, nil
}

func (s *PostgresStore) ListSettings(ctx context.Context) ([]*interfaces.Setting, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	settings := []*interfaces.Setting{}
	for rows.Next() {
		setting := &interfaces.Setting{}
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

// PutSetting creates or replaces a setting. A zero UpdatedAt is set to the current time.
func (s *PostgresStore) PutSetting(ctx context.Context, setting *interfaces.Setting) error {
	if setting.UpdatedAt == 0 {
		setting.UpdatedAt = nowMillis()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, setting.Key, setting.Value, setting.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", setting.Key, err)
	}
	return nil
}

func (s *PostgresStore) DeleteSetting(ctx context.Context, key string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", interfaces.ErrSettingNotFound, key)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

var _ Store = (*PostgresStore)(nil)
