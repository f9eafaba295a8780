package gate

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"donodopedaco/internal/ratelimit"

	"go.uber.org/zap"
)

// SpentPrefix namespaces used ticket ids in the key-value store.
const SpentPrefix = "ticket:spent:"

var ErrTicketSpent = errors.New("confirmation ticket already used")

// Spent remembers confirmed tickets until they expire, so one ticket hands
// off at most one order.
type Spent struct {
	store  ratelimit.Store
	logger *zap.Logger
	now    func() time.Time

	// serializes Claim within one process; the store has no compare-and-set
	mu sync.Mutex
}

func NewSpent(store ratelimit.Store, logger *zap.Logger) *Spent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Spent{store: store, logger: logger, now: time.Now}
}

func (s *Spent) WithClock(now func() time.Time) *Spent {
	s.now = now
	return s
}

// Claim marks id as used until expires. Claiming a live id again fails with
// ErrTicketSpent.
func (s *Spent) Claim(ctx context.Context, id string, expires time.Time) error {
	if id == "" {
		return ErrInvalidTicket
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := SpentPrefix + id
	raw, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		if until, ok := parseMillis(raw); !ok || s.now().Before(until) {
			return ErrTicketSpent
		}
	case !errors.Is(err, ratelimit.ErrNotFound):
		return err
	}
	return s.store.Set(ctx, key, strconv.FormatInt(expires.UnixMilli(), 10))
}

// Release forgets a claim whose hand-off did not happen.
func (s *Spent) Release(ctx context.Context, id string) error {
	return s.store.Delete(ctx, SpentPrefix+id)
}

// Sweep deletes the entries of expired tickets.
func (s *Spent) Sweep(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, SpentPrefix)
	if err != nil {
		return 0, err
	}

	cleared := 0
	now := s.now()
	for _, key := range keys {
		if ctx.Err() != nil {
			return cleared, ctx.Err()
		}
		raw, err := s.store.Get(ctx, key)
		if err != nil {
			continue
		}
		if until, ok := parseMillis(raw); ok && now.Before(until) {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("spent ticket not cleared", zap.String("key", key), zap.Error(err))
			continue
		}
		cleared++
	}
	return cleared, nil
}

// Run calls Sweep every interval until ctx is cancelled.
func (s *Spent) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("spent ticket sweep failed", zap.Error(err))
			}
		}
	}
}

func parseMillis(raw string) (time.Time, bool) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
