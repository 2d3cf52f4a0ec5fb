package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

// Store is the persistence surface used by the backend API.
type Store interface {
	interfaces.EntityRepository
	interfaces.SettingsRepository

	// Ping checks that the store can serve requests.
	Ping(ctx context.Context) error
	Close()
}

// Schema is the DDL operators apply before starting the service.
var Schema = buildSchema()

func buildSchema() string {
	var b strings.Builder
	for _, kind := range interfaces.AllEntityKinds {
		fmt.Fprintf(&b, `CREATE TABLE IF NOT EXISTS %s (
    address          TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    physical_address TEXT NOT NULL,
    content_hash     TEXT NOT NULL,
    created_by       TEXT NOT NULL,
    timestamp        BIGINT NOT NULL
);
`, kind.Collection())
	}
	b.WriteString(`CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at BIGINT NOT NULL
);
`)
	return b.String()
}

// Open connects to the store named by url.
func Open(ctx context.Context, url string, log *slog.Logger) (Store, error) {
	switch {
	case strings.HasPrefix(url, "memory://"):
		log.Info("Using in-memory database")
		return NewMemoryStore()
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		pool, err := NewPool(ctx, url, 10, 1, time.Hour)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info("Connected to postgres", slog.Int("max_conns", int(pool.Config().MaxConns)))
		return NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", url)
	}
}

func checkKind(kind interfaces.EntityKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", interfaces.ErrUnknownEntityKind, kind)
	}
	return nil
}

func checkRecord(kind interfaces.EntityKind, record *interfaces.EntityRecord) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("nil %s record", kind)
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
