// Package redis keeps the settings record in a Redis key, so several
// processes can share one collection.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// KeyPrefix namespaces every key written by the store.
const KeyPrefix = "sidecards:settings:"

// Settings implements core.SettingsStore on a single Redis string key.
type Settings struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSettings creates a settings store for the named vault. A zero ttl keeps
// the record forever.
func NewSettings(client *redis.Client, vault string, ttl time.Duration) *Settings {
	if client == nil {
		panic("redis.NewSettings: client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Settings{client: client, key: settingsKey(vault), ttl: ttl}
}

// Dial connects to the Redis server at addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}

func settingsKey(vault string) string {
	return KeyPrefix + vault
}

// Load returns the stored record, or the default record when the key is
// absent. An undecodable value is dropped and treated as absent.
func (s *Settings) Load(ctx context.Context) (core.Record, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.DefaultRecord(), nil
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var r core.Record
	if err := json.Unmarshal(data, &r); err != nil {
		_ = s.client.Del(ctx, s.key).Err()
		return core.DefaultRecord(), nil
	}
	r.Normalize()
	return r, nil
}

// Save replaces the stored record.
func (s *Settings) Save(ctx context.Context, r core.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

var _ core.SettingsStore = (*Settings)(nil)
