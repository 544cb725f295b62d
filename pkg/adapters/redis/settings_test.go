package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "start miniredis")
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSettingsMissThenRoundTrip(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()
	s := NewSettings(client, "vault-1", 0)

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rec.Cards)
	assert.Equal(t, core.SortManual, rec.SortMode)

	rec.Cards = []core.Card{{ID: "c1", Content: "remember milk"}}
	rec.ManualOrder = []string{"c1"}
	require.NoError(t, s.Save(ctx, rec))

	got, err := NewSettings(client, "vault-1", 0).Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Cards, 1)
	assert.Equal(t, "remember milk", got.Cards[0].Content)

	other, err := NewSettings(client, "vault-2", 0).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, other.Cards, "vaults are isolated")
}

func TestSettingsCorruptedValue(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(settingsKey("v"), "{broken"))

	rec, err := NewSettings(client, "v", 0).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rec.Cards)
	assert.False(t, mr.Exists(settingsKey("v")), "corrupted value is dropped")
}

func TestSettingsTTL(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()
	s := NewSettings(client, "v", time.Minute)
	require.NoError(t, s.Save(ctx, core.DefaultRecord()))

	assert.Equal(t, time.Minute, mr.TTL(settingsKey("v")))
	mr.FastForward(2 * time.Minute)

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.RecordVersion, rec.Version)
	assert.False(t, mr.Exists(settingsKey("v")))
}

func TestDial(t *testing.T) {
	mr, _ := newClient(t)
	client, err := Dial(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	_ = client.Close()

	_, err = Dial(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
