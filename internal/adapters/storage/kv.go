package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

// Scoped namespaces every key of the underlying store with prefix.
type Scoped struct {
	store  domain.KVStore
	prefix string
}

func NewScoped(store domain.KVStore, prefix string) *Scoped {
	return &Scoped{store: store, prefix: prefix}
}

// VisitorPrefix and SessionPrefix build the two per-visitor scopes.
func VisitorPrefix(visitorID string) string { return "v:" + visitorID + ":" }
func SessionPrefix(sessionID string) string { return "s:" + sessionID + ":" }

func (s *Scoped) Prefix() string { return s.prefix }

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, s.prefix+key)
}

func (s *Scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, s.prefix+key, value)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.prefix+key)
}

// Watched publishes a KeyChanged after every successful write or delete.
type Watched struct {
	domain.KVStore
	scope string
	bus   *events.Bus[domain.KeyChanged]
}

func NewWatched(store domain.KVStore, scope string, bus *events.Bus[domain.KeyChanged]) *Watched {
	return &Watched{KVStore: store, scope: scope, bus: bus}
}

func (w *Watched) Set(ctx context.Context, key string, value []byte) error {
	if err := w.KVStore.Set(ctx, key, value); err != nil {
		return err
	}
	w.bus.Publish(domain.KeyChanged{Scope: w.scope, Key: key})
	return nil
}

func (w *Watched) Delete(ctx context.Context, key string) error {
	if err := w.KVStore.Delete(ctx, key); err != nil {
		return err
	}
	w.bus.Publish(domain.KeyChanged{Scope: w.scope, Key: key})
	return nil
}

// GetJSON decodes key into out. A missing key leaves out untouched and
// returns false; an undecodable value is logged and read as missing.
func GetJSON(ctx context.Context, s domain.KVStore, key string, out any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding undecodable stored value")
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, s domain.KVStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}

// GetString reads a raw string value; missing keys read as "".
func GetString(ctx context.Context, s domain.KVStore, key string) (string, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
