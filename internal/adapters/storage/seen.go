package storage

// seen.go: set durable de eventos ya apostados sobre database/sql.
//
// Una fila por evento: event_id + created_at (ISO-8601 UTC). La primera
// escritura gana; reescribir un ID no cambia su timestamp. Mismo schema para
// SQLite (pure Go, sin CGo) y Postgres.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

const seenSchema = `
CREATE TABLE IF NOT EXISTS seen_events (
    event_id   TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);
`

// dialect agrupa lo que cambia entre drivers.
type dialect struct {
	name   string
	driver string
	insert string
}

var (
	sqliteDialect = dialect{
		name:   "sqlite",
		driver: "sqlite",
		insert: `INSERT INTO seen_events (event_id, created_at) VALUES (?, ?) ON CONFLICT(event_id) DO NOTHING`,
	}
	postgresDialect = dialect{
		name:   "postgres",
		driver: "postgres",
		insert: `INSERT INTO seen_events (event_id, created_at) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING`,
	}
)

// SQLStore implementa ports.SeenStore sobre SQLite o Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLiteStore abre (o crea) la base SQLite en la ruta dada y aplica el schema.
func NewSQLiteStore(path string) (*SQLStore, error) {
	s, err := openSQL(sqliteDialect, path)
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(1) // SQLite es single-writer
	s.db.SetMaxIdleConns(1)
	return s, nil
}

// NewPostgresStore conecta a Postgres con el DSN dado y aplica el schema.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	return openSQL(postgresDialect, dsn)
}

func openSQL(d dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.open %s: %w", d.name, err)
	}
	if _, err := db.Exec(seenSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.open %s: apply schema: %w", d.name, err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// MarkSeen inserta el evento si no existía.
func (s *SQLStore) MarkSeen(ctx context.Context, eventID string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.insert, eventID, formatCreatedAt(at)); err != nil {
		return fmt.Errorf("storage.MarkSeen %s: %w", eventID, err)
	}
	return nil
}

// SeenIDs devuelve todos los event IDs guardados.
func (s *SQLStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_id FROM seen_events`)
	if err != nil {
		return nil, fmt.Errorf("storage.SeenIDs: query: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage.SeenIDs: scan row: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.SeenIDs: %w", err)
	}
	return ids, nil
}

// SeenEvents devuelve los eventos con su timestamp, más recientes primero.
func (s *SQLStore) SeenEvents(ctx context.Context) ([]domain.SeenEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, created_at FROM seen_events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage.SeenEvents: query: %w", err)
	}
	defer rows.Close()

	var out []domain.SeenEvent
	for rows.Next() {
		var id, createdAt string
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, fmt.Errorf("storage.SeenEvents: scan row: %w", err)
		}
		out = append(out, domain.SeenEvent{EventID: id, CreatedAt: parseCreatedAt(createdAt)})
	}
	return out, rows.Err()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close cierra la conexión a la base de datos.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// createdAtLayout es ISO-8601 de ancho fijo, así el orden lexicográfico
// coincide con el cronológico.
const createdAtLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatCreatedAt(t time.Time) string {
	return t.UTC().Format(createdAtLayout)
}

// parseCreatedAt acepta también timestamps naive (sin zona), que se toman como UTC.
// Si no parsea devuelve zero time.
func parseCreatedAt(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
