package redisprefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okulov/classify-console/internal/core/domain"
)

const (
	selectionKeyPrefix = "classify:model:"
	handoffKey         = "classify:handoff"

	// Hand-off batches older than this are stale and treated as absent.
	handoffTTL = 24 * time.Hour
)

// Store keeps operator preferences in Redis: the per-provider model
// selection and the crawler hand-off batch with its freshness window.
type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wires an existing client, used by tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func selectionKey(provider domain.ProviderKey) string {
	return selectionKeyPrefix + string(provider)
}

// ModelSelection returns the stored selection for a provider, or "" when
// none is stored.
func (s *Store) ModelSelection(ctx context.Context, provider domain.ProviderKey) (string, error) {
	value, err := s.client.Get(ctx, selectionKey(provider)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read model selection for %s: %w", provider, err)
	}
	return value, nil
}

func (s *Store) SetModelSelection(ctx context.Context, provider domain.ProviderKey, model string) error {
	if err := s.client.Set(ctx, selectionKey(provider), model, 0).Err(); err != nil {
		return fmt.Errorf("store model selection for %s: %w", provider, err)
	}
	return nil
}

func (s *Store) ClearModelSelection(ctx context.Context, provider domain.ProviderKey) error {
	if err := s.client.Del(ctx, selectionKey(provider)).Err(); err != nil {
		return fmt.Errorf("clear model selection for %s: %w", provider, err)
	}
	return nil
}

type handoffPayload struct {
	StoredAt time.Time        `json:"stored_at"`
	Rows     []domain.Product `json:"rows"`
}

// StoreHandoff saves a crawler-sourced batch. The key carries the freshness
// TTL so an abandoned hand-off expires on its own.
func (s *Store) StoreHandoff(ctx context.Context, rows []domain.Product) error {
	data, err := json.Marshal(handoffPayload{StoredAt: time.Now().UTC(), Rows: rows})
	if err != nil {
		return fmt.Errorf("marshal handoff: %w", err)
	}
	if err := s.client.Set(ctx, handoffKey, data, handoffTTL).Err(); err != nil {
		return fmt.Errorf("store handoff: %w", err)
	}
	return nil
}

// TakeHandoff consumes the hand-off batch: at most one caller gets it. The
// stored-at stamp is checked on top of the TTL so a payload written by an
// older writer without an expiry still goes stale.
func (s *Store) TakeHandoff(ctx context.Context) ([]domain.Product, error) {
	data, err := s.client.GetDel(ctx, handoffKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take handoff: %w", err)
	}

	var payload handoffPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode handoff: %w", err)
	}
	if time.Since(payload.StoredAt) > handoffTTL {
		return nil, domain.WrapError(domain.ErrStaleHandoff, "take handoff",
			fmt.Errorf("stored at %s", payload.StoredAt.Format(time.RFC3339)))
	}
	return payload.Rows, nil
}
