package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/config"
	"github.com/cory-johannsen/parlor/internal/game/ruleset"
)

func testRoomsConfig() config.RoomsConfig {
	return config.RoomsConfig{
		MinPlayers:    2,
		MaxPlayersCap: 8,
		EmptyGrace:    time.Minute,
		TTL:           24 * time.Hour,
		SweepInterval: 30 * time.Second,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	providers := ruleset.NewRegistry()
	require.NoError(t, providers.Register("append", &appendProvider{}))
	return NewRegistry(testRoomsConfig(), providers, zap.NewNop())
}

func TestRegistryCreate(t *testing.T) {
	g := newTestRegistry(t)

	rm, err := g.Create("T", "h", 2, "append")
	require.NoError(t, err)
	assert.NotEmpty(t, rm.ID())
	assert.Equal(t, "T", rm.Name())
	assert.Equal(t, "h", rm.HostID())
	assert.Equal(t, StatusWaiting, rm.Status())
	assert.Equal(t, []string{"h"}, rm.Players(), "host is auto-joined")

	got, err := g.Get(rm.ID())
	require.NoError(t, err)
	assert.Same(t, rm, got)
}

func TestRegistryCreateInvalidCapacity(t *testing.T) {
	g := newTestRegistry(t)

	_, err := g.Create("T", "h", 0, "append")
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = g.Create("T", "h", 9, "append")
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestRegistryCreateUnknownGameType(t *testing.T) {
	g := newTestRegistry(t)
	_, err := g.Create("T", "h", 2, "canasta")
	assert.ErrorIs(t, err, ErrUnknownGameType)
}

func TestRegistryGetMissing(t *testing.T) {
	g := newTestRegistry(t)
	_, err := g.Get("Missing-Room-Id")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistryListCreationOrderAndFilter(t *testing.T) {
	g := newTestRegistry(t)

	r1, err := g.Create("one", "h1", 2, "append")
	require.NoError(t, err)
	r2, err := g.Create("two", "h2", 2, "append")
	require.NoError(t, err)
	r3, err := g.Create("three", "h3", 2, "append")
	require.NoError(t, err)

	all := g.List("")
	require.Len(t, all, 3)
	assert.Equal(t, r1.ID(), all[0].ID)
	assert.Equal(t, r2.ID(), all[1].ID)
	assert.Equal(t, r3.ID(), all[2].ID)

	require.NoError(t, r2.Join("p2"))
	require.NoError(t, r2.Start())

	waiting := g.List("waiting")
	require.Len(t, waiting, 2)
	assert.Equal(t, r1.ID(), waiting[0].ID)

	inProgress := g.List("in_progress")
	require.Len(t, inProgress, 1)
	assert.Equal(t, r2.ID(), inProgress[0].ID)
	assert.Equal(t, 2, inProgress[0].PlayerCount)

	assert.Empty(t, g.List("finished"))
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	g := newTestRegistry(t)
	rm, err := g.Create("T", "h", 2, "append")
	require.NoError(t, err)

	var removed []string
	var mu sync.Mutex
	g.SetOnRemove(func(roomID string) {
		mu.Lock()
		defer mu.Unlock()
		removed = append(removed, roomID)
	})

	g.Remove(rm.ID())
	g.Remove(rm.ID())

	_, err = g.Get(rm.ID())
	assert.ErrorIs(t, err, ErrRoomNotFound)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{rm.ID()}, removed, "hook fires once per actual removal")
}

func TestRegistrySweepEmptyRooms(t *testing.T) {
	g := newTestRegistry(t)
	rm, err := g.Create("T", "h", 2, "append")
	require.NoError(t, err)
	keeper, err := g.Create("K", "h2", 2, "append")
	require.NoError(t, err)

	require.NoError(t, rm.Leave("h"))

	// Within the grace period nothing is evicted.
	assert.Equal(t, 0, g.Sweep(time.Now()))
	assert.Equal(t, 2, g.Len())

	assert.Equal(t, 1, g.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 1, g.Len())

	_, err = g.Get(keeper.ID())
	assert.NoError(t, err)
}

func TestRegistrySweepTTL(t *testing.T) {
	g := newTestRegistry(t)
	_, err := g.Create("T", "h", 2, "append")
	require.NoError(t, err)

	assert.Equal(t, 0, g.Sweep(time.Now()))
	assert.Equal(t, 1, g.Sweep(time.Now().Add(25*time.Hour)))
	assert.Equal(t, 0, g.Len())
}

func TestRegistryConcurrentCreates(t *testing.T) {
	g := newTestRegistry(t)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Create("T", "h", 2, "append")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, g.Len())
	seen := make(map[string]bool)
	for _, s := range g.List("") {
		assert.False(t, seen[s.ID], "room IDs must be unique")
		seen[s.ID] = true
	}
}
