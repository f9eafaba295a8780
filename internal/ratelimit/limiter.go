// Package ratelimit counts attempts per named action inside a time window.
//
// Each key holds one JSON record {attempts, lastAttempt}. The window restarts
// once it has fully elapsed since the last attempt; until then every attempt,
// allowed or not, bumps the counter and refreshes the timestamp.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

const DefaultPrefix = "ratelimit:"

type Config struct {
	MaxAttempts int
	Window      time.Duration
	Prefix      string
}

// Record is the persisted state of one key. LastAttempt is in Unix milliseconds.
type Record struct {
	Attempts    int   `json:"attempts"`
	LastAttempt int64 `json:"lastAttempt"`
}

func (r Record) last() time.Time {
	return time.UnixMilli(r.LastAttempt)
}

// Status is what callers observe about a key.
// Allowed is only meaningful for the result of RegisterAttempt.
type Status struct {
	Allowed       bool          `json:"allowed"`
	Blocked       bool          `json:"blocked"`
	Attempts      int           `json:"attempts"`
	Remaining     int           `json:"remaining_attempts"`
	TimeRemaining time.Duration `json:"time_remaining"`
}

// MinutesRemaining rounds TimeRemaining up to whole minutes.
func (s Status) MinutesRemaining() int {
	if s.TimeRemaining <= 0 {
		return 0
	}
	return int((s.TimeRemaining + time.Minute - 1) / time.Minute)
}

type Limiter struct {
	store  Store
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

func New(store Store, cfg Config, logger *zap.Logger) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock swaps the time source, for tests and the sweeper.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Key scopes an action to one browser.
func (l *Limiter) Key(action, client string) string {
	return l.cfg.Prefix + action + ":" + client
}

// RegisterAttempt records one attempt and reports whether it was allowed.
// Allowance is decided on the record as it was before this attempt: the
// attempt passes when fewer than MaxAttempts were already made in the window.
// Storage failures never block the user.
func (l *Limiter) RegisterAttempt(ctx context.Context, key string) Status {
	now := l.now()

	rec, found, err := l.load(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing attempt", zap.String("key", key), zap.Error(err))
		return l.unlimited()
	}

	prior := 0
	if found && now.Sub(rec.last()) < l.cfg.Window {
		prior = rec.Attempts
		rec.Attempts++
	} else {
		rec = Record{Attempts: 1}
	}
	rec.LastAttempt = now.UnixMilli()

	if err := l.save(ctx, key, rec); err != nil {
		l.logger.Warn("rate limit record not saved, allowing attempt", zap.String("key", key), zap.Error(err))
		return l.unlimited()
	}

	st := l.statusOf(rec, now)
	st.Allowed = prior < l.cfg.MaxAttempts
	return st
}

// Status reports the current state of key and clears it once the window lapsed.
func (l *Limiter) Status(ctx context.Context, key string) Status {
	now := l.now()

	rec, found, err := l.load(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit store unavailable", zap.String("key", key), zap.Error(err))
		return l.unlimited()
	}
	if !found {
		return l.unlimited()
	}

	if now.Sub(rec.last()) >= l.cfg.Window {
		if err := l.store.Delete(ctx, key); err != nil {
			l.logger.Warn("rate limit record not cleared", zap.String("key", key), zap.Error(err))
		}
		return l.unlimited()
	}

	st := l.statusOf(rec, now)
	st.Allowed = !st.Blocked
	return st
}

// Refresh re-evaluates every stored key and clears the lapsed ones.
func (l *Limiter) Refresh(ctx context.Context) (int, error) {
	keys, err := l.store.Keys(ctx, l.cfg.Prefix)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, key := range keys {
		if ctx.Err() != nil {
			return cleared, ctx.Err()
		}
		before, found, err := l.load(ctx, key)
		if err != nil || !found {
			continue
		}
		if l.now().Sub(before.last()) >= l.cfg.Window {
			if err := l.store.Delete(ctx, key); err != nil {
				l.logger.Warn("rate limit record not cleared", zap.String("key", key), zap.Error(err))
				continue
			}
			cleared++
		}
	}
	return cleared, nil
}

// Run calls Refresh every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("rate limit refresh started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("rate limit refresh stopped")
			return
		case <-ticker.C:
			cleared, err := l.Refresh(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Warn("rate limit refresh failed", zap.Error(err))
				continue
			}
			if cleared > 0 {
				l.logger.Debug("rate limit records cleared", zap.Int("count", cleared))
			}
		}
	}
}

// load treats an absent or malformed record as "no prior attempts".
func (l *Limiter) load(ctx context.Context, key string) (Record, bool, error) {
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Attempts < 0 {
		l.logger.Debug("ignoring malformed rate limit record", zap.String("key", key))
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (l *Limiter) save(ctx context.Context, key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, key, string(raw))
}

func (l *Limiter) statusOf(rec Record, now time.Time) Status {
	st := Status{
		Attempts:  rec.Attempts,
		Blocked:   rec.Attempts >= l.cfg.MaxAttempts,
		Remaining: max(0, l.cfg.MaxAttempts-rec.Attempts),
	}
	if st.Blocked {
		st.TimeRemaining = max(0, l.cfg.Window-now.Sub(rec.last()))
	}
	return st
}

func (l *Limiter) unlimited() Status {
	return Status{
		Allowed:   true,
		Remaining: l.cfg.MaxAttempts,
	}
}
