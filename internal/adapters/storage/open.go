package storage

import (
	"context"
	"strings"

	"github.com/alejandrodnm/oddbot/internal/ports"
)

// Open elige el backend según el DSN:
//
//	redis://… | rediss://…       → RedisStore
//	postgres://… | postgresql://… → Postgres
//	cualquier otro valor          → ruta de archivo SQLite (o ":memory:")
func Open(ctx context.Context, dsn string) (ports.SeenStore, error) {
	switch {
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return NewRedisStore(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(dsn)
	default:
		return NewSQLiteStore(dsn)
	}
}

// Backend devuelve el nombre del backend que Open usaría para el DSN.
func Backend(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return "redis"
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	default:
		return "sqlite"
	}
}
