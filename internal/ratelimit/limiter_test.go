package ratelimit

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"donodopedaco/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(store Store) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	l := New(store, Config{MaxAttempts: 3, Window: 5 * time.Minute}, nil).WithClock(clock.Now)
	return l, clock
}

// failingStore simulates storage being disabled or over quota.
type failingStore struct{}

var errStorage = errors.New("storage disabled")

func (failingStore) Get(context.Context, string) (string, error) { return "", errStorage }
func (failingStore) Set(context.Context, string, string) error { return errStorage }
func (failingStore) Delete(context.Context, string) error { return errStorage }
func (failingStore) Keys(context.Context, string) ([]string, error) { return nil, errStorage }

func TestRegisterAttempt_BlocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(NewInMemoryStore())
	key := l.Key("order", "browser-1")

	for i := 1; i <= 3; i++ {
		st := l.RegisterAttempt(ctx, key)
		assert.True(t, st.Allowed, "attempt %d", i)
		assert.Equal(t, i, st.Attempts)
		assert.Equal(t, 3-i, st.Remaining)
		clock.Advance(30 * time.Second)
	}

	st := l.Status(ctx, key)
	assert.True(t, st.Blocked)
	assert.Equal(t, 0, st.Remaining)
	assert.Equal(t, 4*time.Minute+30*time.Second, st.TimeRemaining)
	assert.Equal(t, 5, st.MinutesRemaining())

	st = l.RegisterAttempt(ctx, key)
	assert.False(t, st.Allowed, "fourth attempt inside the window")
	assert.True(t, st.Blocked)
	assert.Equal(t, 4, st.Attempts)
}

func TestRegisterAttempt_ThirdAttemptSetsBlocked(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(NewInMemoryStore())
	key := l.Key("order", "b")

	l.RegisterAttempt(ctx, key)
	l.RegisterAttempt(ctx, key)
	st := l.RegisterAttempt(ctx, key)

	assert.True(t, st.Allowed, "allowance is decided before the increment")
	assert.True(t, st.Blocked)
	assert.Equal(t, 5*time.Minute, st.TimeRemaining)
}

func TestRegisterAttempt_WindowRestart(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(NewInMemoryStore())
	key := l.Key("order", "b")

	for i := 0; i < 3; i++ {
		l.RegisterAttempt(ctx, key)
	}
	require.True(t, l.Status(ctx, key).Blocked)

	clock.Advance(5*time.Minute + time.Second)
	st := l.RegisterAttempt(ctx, key)

	assert.True(t, st.Allowed)
	assert.False(t, st.Blocked)
	assert.Equal(t, 1, st.Attempts)
	assert.Equal(t, 2, st.Remaining)
}

func TestRegisterAttempt_AttemptsExtendTheWindow(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(NewInMemoryStore())
	key := l.Key("order", "b")

	for i := 0; i < 3; i++ {
		l.RegisterAttempt(ctx, key)
	}
	clock.Advance(4 * time.Minute)
	l.RegisterAttempt(ctx, key)

	clock.Advance(2 * time.Minute)
	assert.True(t, l.Status(ctx, key).Blocked, "last attempt restarted the window")
}

func TestKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(NewInMemoryStore())

	for i := 0; i < 3; i++ {
		l.RegisterAttempt(ctx, l.Key("order", "a"))
	}
	assert.True(t, l.Status(ctx, l.Key("order", "a")).Blocked)
	assert.False(t, l.Status(ctx, l.Key("order", "b")).Blocked)
	assert.False(t, l.Status(ctx, l.Key("contact", "a")).Blocked)
}

func TestStatus_ClearsLapsedRecord(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	l, clock := newTestLimiter(store)
	key := l.Key("order", "b")

	l.RegisterAttempt(ctx, key)
	clock.Advance(5 * time.Minute)

	st := l.Status(ctx, key)
	assert.False(t, st.Blocked)
	assert.Equal(t, 3, st.Remaining)

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMalformedRecordMeansNoPriorAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	l, _ := newTestLimiter(store)
	key := l.Key("order", "b")

	require.NoError(t, store.Set(ctx, key, "{not json"))
	assert.False(t, l.Status(ctx, key).Blocked)

	st := l.RegisterAttempt(ctx, key)
	assert.True(t, st.Allowed)
	assert.Equal(t, 1, st.Attempts)

	raw, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"attempts":1,"lastAttempt":1792404000000}`, raw)
}

func TestStorageFailureDegradesToAllowed(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(failingStore{})
	key := l.Key("order", "b")

	for i := 0; i < 10; i++ {
		st := l.RegisterAttempt(ctx, key)
		assert.True(t, st.Allowed)
		assert.False(t, st.Blocked)
	}
	assert.False(t, l.Status(ctx, key).Blocked)

	_, err := l.Refresh(ctx)
	assert.ErrorIs(t, err, errStorage)
}

func TestRefresh_ClearsOnlyLapsedKeys(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	l, clock := newTestLimiter(store)

	l.RegisterAttempt(ctx, l.Key("order", "old"))
	clock.Advance(6 * time.Minute)
	l.RegisterAttempt(ctx, l.Key("order", "new"))
	require.NoError(t, store.Set(ctx, "unrelated", "x"))

	cleared, err := l.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{l.Key("order", "new"), "unrelated"}, keys)
}

func TestRun_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewInMemoryStore()
	l, clock := newTestLimiter(store)
	ctx, cancel := context.WithCancel(context.Background())

	l.RegisterAttempt(ctx, l.Key("order", "b"))
	clock.Advance(10 * time.Minute)

	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		keys, _ := store.Keys(context.Background(), DefaultPrefix)
		return len(keys) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

// --------------------------------------------------
// Integration stores (skipped without a backend)
// --------------------------------------------------

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	key := DefaultPrefix + "test:" + t.Name()
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, key, "one"))
	require.NoError(t, store.Set(ctx, key, "two"))
	v, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	keys, err := store.Keys(ctx, DefaultPrefix+"test:")
	require.NoError(t, err)
	assert.Contains(t, keys, key)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}
	store := NewRedisStore(addr, os.Getenv("REDIS_PASSWORD"), time.Hour)
	defer store.Close()
	require.NoError(t, store.Ping(context.Background()))

	exerciseStore(t, store)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	require.NoError(t, err)

	exerciseStore(t, NewPostgresStore(pool))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := OpenStore(ctx, config.Env{RateLimitBackend: "memory"}, time.Minute, nil)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &InMemoryStore{}, s)

	_, _, err = OpenStore(ctx, config.Env{RateLimitBackend: "etcd"}, time.Minute, nil)
	assert.Error(t, err)

	_, _, err = OpenStore(ctx, config.Env{RateLimitBackend: "postgres"}, time.Minute, nil)
	assert.Error(t, err, "postgres needs DATABASE_URL")
}
