package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/ezivnuska/pokertable/pkg/poker"
	"github.com/ezivnuska/pokertable/pkg/store"
)

// Config holds the engine's tunables.
type Config struct {
	SingletonCode   string        // table that always exists and only resets
	StartingChips   int64         // chips granted on join
	SmallBlind      int64
	BigBlind        int64
	MaxPlayers      int
	TurnDuration    time.Duration // action-timer window
	TimerTolerance  time.Duration // expiry slack for clock skew
	ThinkDelay      time.Duration // artificial AI delay
	DisconnectAfter time.Duration // heartbeat staleness before auto-fold
	NextHandDelay   time.Duration // pause after a hand ends before reset
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	Seed            int64 // deterministic deck seed (0 = random)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SingletonCode:   "lobby",
		StartingChips:   100,
		SmallBlind:      1,
		BigBlind:        2,
		MaxPlayers:      10,
		TurnDuration:    30 * time.Second,
		TimerTolerance:  250 * time.Millisecond,
		ThinkDelay:      1500 * time.Millisecond,
		DisconnectAfter: 30 * time.Second,
		NextHandDelay:   5 * time.Second,
		RetryAttempts:   8,
		RetryBaseDelay:  50 * time.Millisecond,
	}
}

// Engine executes all game mutations through the exclusive-access protocol
// against the persisted record. It holds no authoritative state in memory, so
// any number of engine instances (in any number of processes) can serve the
// same table.
type Engine struct {
	log      slog.Logger
	store    *store.Store
	notifier Notifier
	policy   DecisionPolicy
	cfg      Config

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates an engine. A nil notifier discards events; a nil logger logs
// nothing.
func New(st *store.Store, notifier Notifier, log slog.Logger, cfg Config) *Engine {
	if log == nil {
		log = slog.Disabled
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		log:      log,
		store:    st,
		notifier: notifier,
		policy:   DefaultPolicy,
		cfg:      cfg,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// SetPolicy replaces the automated-player decision policy.
func (e *Engine) SetPolicy(policy DecisionPolicy) {
	e.policy = policy
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// shuffledDeck draws a fresh deck from the engine's rng.
func (e *Engine) shuffledDeck() []poker.Card {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return poker.NewShuffledCards(e.rng)
}

// jitter returns a random delay in [0, max).
func (e *Engine) jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return time.Duration(e.rng.Int63n(int64(max)))
}

// GetGame returns the current record without acquiring exclusive access.
// Read-only queries bypass the concurrency controller.
func (e *Engine) GetGame(code string) (*poker.Game, error) {
	return e.store.Get(code)
}

// EnsureGame returns the record for code, creating an empty table on first
// access. Creation races resolve in favor of the existing record.
func (e *Engine) EnsureGame(code string) (*poker.Game, error) {
	g, err := e.store.Get(code)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	g = poker.NewGame(code, nil)
	g.Deck = e.shuffledDeck()
	if err := e.store.Create(g); err != nil {
		if errors.Is(err, store.ErrExists) {
			return e.store.Get(code)
		}
		return nil, err
	}
	e.log.Infof("created game %s", code)
	return g, nil
}

// withExclusiveAccess serializes op against the record for code. It acquires
// the processing flag with a compare-and-set, re-fetches the latest committed
// state, runs op, saves with a version check and clears the flag on every
// exit path. Conflicts are retried with exponential backoff plus jitter up to
// the configured bound; rule rejections and not-found propagate immediately.
func (e *Engine) withExclusiveAccess(ctx context.Context, code string, op func(*poker.Game) error) (*poker.Game, error) {
	attempts := e.cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := e.cfg.RetryBaseDelay<<uint(attempt-1) + e.jitter(e.cfg.RetryBaseDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := e.store.Acquire(code); err != nil {
			if errors.Is(err, store.ErrProcessing) {
				e.log.Debugf("game %s mid-mutation, retrying (attempt %d)", code, attempt+1)
				continue
			}
			return nil, err
		}

		// Re-fetch inside the critical section to observe the latest
		// committed fields.
		g, err := e.store.Get(code)
		if err != nil {
			e.release(code)
			return nil, err
		}

		if err := op(g); err != nil {
			e.release(code)
			if errors.Is(err, errNoEffect) {
				return g, nil
			}
			return nil, err
		}

		g.UpdatedAt = e.now().UTC()
		if err := e.store.Save(g); err != nil {
			e.release(code)
			if retryable(err) {
				e.log.Debugf("version conflict saving game %s, retrying (attempt %d)", code, attempt+1)
				continue
			}
			return nil, err
		}

		e.release(code)
		return g, nil
	}

	return nil, ErrContended
}

// release clears the processing flag unconditionally. Failures are logged,
// not propagated: the caller's own error (if any) matters more, and a stuck
// flag would block the table.
func (e *Engine) release(code string) {
	if err := e.store.Release(code); err != nil {
		e.log.Errorf("failed to release processing flag for game %s: %v", code, err)
	}
}
