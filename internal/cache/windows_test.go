package cache

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic/internal/events"
)

type entry struct {
	Dates []civil.Date `json:"dates"`
	Total int          `json:"total"`
}

func setupCache(t *testing.T, ttl time.Duration) (*WindowCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWindowCache(client, ttl, nil), mr
}

func TestWindowCache_GetSet(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()
	from := civil.Date{Year: 2025, Month: time.March, Day: 3}
	key := Key(uuid.New(), 3, "UTC", from, from.AddDays(6))

	var got entry
	assert.False(t, c.Get(ctx, key, &got))

	want := entry{Dates: []civil.Date{from, from.AddDays(2)}, Total: 2}
	c.Set(ctx, key, want)
	require.True(t, c.Get(ctx, key, &got))
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.Get(ctx, key, &got))
}

func TestWindowCache_CorruptEntry(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	key := Key(uuid.New(), 1, "UTC", civil.Date{Year: 2025, Month: 1, Day: 1}, civil.Date{Year: 2025, Month: 1, Day: 2})
	require.NoError(t, mr.Set(key, "{not json"))

	var got entry
	assert.False(t, c.Get(context.Background(), key, &got))
}

func TestWindowCache_Invalidate(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	d := civil.Date{Year: 2025, Month: time.March, Day: 3}

	c.Set(ctx, Key(a, 1, "UTC", d, d), entry{Total: 1})
	c.Set(ctx, Key(a, 2, "UTC", d, d.AddDays(1)), entry{Total: 2})
	c.Set(ctx, Key(b, 1, "UTC", d, d), entry{Total: 3})

	n, err := c.Invalidate(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists(Key(a, 1, "UTC", d, d)))
	assert.True(t, mr.Exists(Key(b, 1, "UTC", d, d)))
}

func TestWindowCache_InvalidatesOnScheduleUpdated(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	d := civil.Date{Year: 2025, Month: time.March, Day: 3}

	c.Set(ctx, Key(a, 4, "UTC", d, d.AddDays(6)), entry{Total: 1})
	c.Set(ctx, Key(b, 1, "UTC", d, d), entry{Total: 2})

	bus := events.NewEventBus()
	bus.Subscribe(events.TypeScheduleUpdated, c.OnScheduleUpdated)

	e, err := events.NewScheduleUpdated(events.ScheduleUpdated{ProfessionalID: a, Revision: 5, ActorID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(e))

	assert.False(t, mr.Exists(Key(a, 4, "UTC", d, d.AddDays(6))))
	assert.True(t, mr.Exists(Key(b, 1, "UTC", d, d)))

	err = c.OnScheduleUpdated(events.Event{Type: events.TypeScheduleUpdated, Payload: []byte("{bad")})
	assert.Error(t, err)
}

func TestWindowCache_Disabled(t *testing.T) {
	ctx := context.Background()
	var nilCache *WindowCache
	var got entry
	assert.False(t, nilCache.Get(ctx, "k", &got))
	nilCache.Set(ctx, "k", entry{})
	n, err := nilCache.Invalidate(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, nilCache.Ping(ctx))

	c, mr := setupCache(t, 0)
	c.Set(ctx, "k", entry{Total: 1})
	assert.False(t, mr.Exists("k"))
}
