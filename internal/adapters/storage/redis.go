package storage

// redis.go: set de eventos vistos en un hash de Redis.
//
// Layout: hash "events", field = event ID, value = {"created_at": ISO-8601}.
// Un export de un árbol {id: {created_at}} se carga con HSET sin transformar.

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultSeenHash = "events"

type seenValue struct {
	CreatedAt string `json:"created_at"`
}

// RedisStore implementa ports.SeenStore sobre un hash de Redis.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore conecta a la URL redis:// dada y verifica la conexión.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("storage.NewRedisStore: parse url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("storage.NewRedisStore: ping: %w", err)
	}
	return &RedisStore{client: client, key: defaultSeenHash}, nil
}

// MarkSeen escribe el evento solo si no existía (HSETNX).
func (s *RedisStore) MarkSeen(ctx context.Context, eventID string, at time.Time) error {
	b, err := json.Marshal(seenValue{CreatedAt: formatCreatedAt(at)})
	if err != nil {
		return fmt.Errorf("storage.MarkSeen %s: marshal: %w", eventID, err)
	}
	if err := s.client.HSetNX(ctx, s.key, eventID, b).Err(); err != nil {
		return fmt.Errorf("storage.MarkSeen %s: %w", eventID, err)
	}
	return nil
}

// SeenIDs devuelve los fields del hash.
func (s *RedisStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	keys, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("storage.SeenIDs: %w", err)
	}
	ids := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		ids[k] = struct{}{}
	}
	return ids, nil
}

// SeenEvents devuelve los eventos con su timestamp, más recientes primero.
// Valores que no son JSON válido quedan con CreatedAt zero.
func (s *RedisStore) SeenEvents(ctx context.Context) ([]domain.SeenEvent, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("storage.SeenEvents: %w", err)
	}

	out := make([]domain.SeenEvent, 0, len(all))
	for id, raw := range all {
		var v seenValue
		_ = json.Unmarshal([]byte(raw), &v)
		out = append(out, domain.SeenEvent{EventID: id, CreatedAt: parseCreatedAt(v.CreatedAt)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
