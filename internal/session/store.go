package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/claimguard/internal/cache"
	"github.com/opensource-finance/claimguard/internal/domain"
)

// ErrNotFound is returned when a session has expired or never existed.
var ErrNotFound = errors.New("session not found")

const (
	stateKey = "state"
	busyKey  = cache.LockPrefix + "busy"
)

// Store persists session state in a domain.Cache.
type Store struct {
	cache    domain.Cache
	ttl      time.Duration
	latchTTL time.Duration
	now      func() time.Time
}

// NewStore creates a store. Every save extends the session by cfg.TTL.
func NewStore(c domain.Cache, cfg domain.SessionConfig) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	latchTTL := cfg.LatchTTL
	if latchTTL <= 0 {
		latchTTL = 5 * time.Minute
	}
	return &Store{
		cache:    c,
		ttl:      ttl,
		latchTTL: latchTTL,
		now:      time.Now,
	}
}

// Load fetches an existing session.
func (s *Store) Load(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	data, err := s.cache.Get(ctx, id, stateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	busy, err := s.Busy(ctx, id)
	if err != nil {
		return nil, err
	}
	st.Busy = busy
	return &st, nil
}

// LoadOrCreate returns the session for id, creating it when missing.
// An empty id gets a fresh identifier. created reports a new session.
func (s *Store) LoadOrCreate(ctx context.Context, id string) (st *State, created bool, err error) {
	if id != "" {
		st, err = s.Load(ctx, id)
		if err == nil {
			return st, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	} else {
		id = uuid.New().String()
	}

	st = NewState(id, s.now().UTC())
	if err := s.Save(ctx, st); err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// Save writes the state and slides its expiry.
func (s *Store) Save(ctx context.Context, st *State) error {
	st.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.cache.Set(ctx, st.ID, stateKey, data, s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Update loads, mutates and saves a session in one step.
func (s *Store) Update(ctx context.Context, id string, fn func(*State) error) (*State, error) {
	st, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Busy reports whether a submission is in flight for the session.
func (s *Store) Busy(ctx context.Context, id string) (bool, error) {
	v, err := s.cache.Get(ctx, id, busyKey)
	if err != nil {
		return false, fmt.Errorf("failed to read session latch: %w", err)
	}
	return v != nil, nil
}

// Latch returns the submission latch for a session.
func (s *Store) Latch(id string) *Latch {
	return &Latch{cache: s.cache, id: id, ttl: s.latchTTL}
}

// Latch is a cache-backed busy flag shared by every node using the cache.
type Latch struct {
	cache domain.Cache
	id    string
	ttl   time.Duration
}

// TryAcquire sets the flag if it is clear.
func (l *Latch) TryAcquire(ctx context.Context) (bool, error) {
	return l.cache.Acquire(ctx, l.id, busyKey, l.ttl)
}

// Release clears the flag.
func (l *Latch) Release(ctx context.Context) error {
	return l.cache.Delete(ctx, l.id, busyKey)
}
