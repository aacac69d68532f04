package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/domain"
)

// ErrNotFound is returned by a Persister that holds no record.
var ErrNotFound = errors.New("session record not found")

// Persister keeps the serialized token pair between process runs. Each
// implementation owns exactly one namespaced record.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

// record is the persisted form. Identity is always re-derived from Access.
type record struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Store is the single owner of the current credentials. Mutations are
// all-or-nothing: memory only changes after the persister accepted the write.
type Store struct {
	writeMu sync.Mutex

	mu         sync.RWMutex
	tokens     *domain.TokenPair
	identity   *domain.Identity
	generation uint64

	persister Persister
	logger    *zap.Logger
}

// NewStore restores the persisted session. A missing, unreadable or
// undecodable record yields an empty store.
func NewStore(ctx context.Context, persister Persister, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if persister == nil {
		persister = NewMemoryPersister()
	}
	s := &Store{persister: persister, logger: logger}
	s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) {
	data, err := s.persister.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("session restore failed; starting anonymous", zap.Error(err))
		return
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("session record unreadable; starting anonymous", zap.Error(err))
		return
	}
	identity, err := auth.Decode(rec.Access)
	if err != nil || rec.Refresh == "" {
		s.logger.Warn("persisted access token rejected; starting anonymous")
		return
	}

	s.tokens = &domain.TokenPair{Access: rec.Access, Refresh: rec.Refresh}
	s.identity = &identity
	s.logger.Debug("session restored", zap.String("username", identity.Username))
}

// Get returns a copy of the current state.
func (s *Store) Get() domain.SessionState {
	state, _ := s.snapshot()
	return state
}

func (s *Store) snapshot() (domain.SessionState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return domain.SessionState{}, s.generation
	}
	tokens := *s.tokens
	identity := *s.identity
	return domain.SessionState{Tokens: &tokens, Identity: &identity}, s.generation
}

// SetTokens decodes access, persists the pair and then replaces the in-memory
// state. If decoding or persisting fails nothing changes.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	_, err := s.commit(ctx, nil, access, refresh)
	return err
}

// setTokensIf behaves like SetTokens but only commits while the store is
// still at generation gen. It reports whether the commit happened.
func (s *Store) setTokensIf(ctx context.Context, gen uint64, access, refresh string) (bool, error) {
	return s.commit(ctx, &gen, access, refresh)
}

func (s *Store) commit(ctx context.Context, gen *uint64, access, refresh string) (bool, error) {
	identity, err := auth.Decode(access)
	if err != nil {
		return false, err
	}
	if refresh == "" {
		return false, errors.New("refresh token missing")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if gen != nil && s.currentGeneration() != *gen {
		return false, nil
	}

	data, err := json.Marshal(record{Access: access, Refresh: refresh})
	if err != nil {
		return false, err
	}
	if err := s.persister.Save(ctx, data); err != nil {
		return false, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.tokens = &domain.TokenPair{Access: access, Refresh: refresh}
	s.identity = &identity
	s.generation++
	s.mu.Unlock()
	return true, nil
}

// Clear empties the store. Memory is always cleared; the returned error only
// reports a failure to remove the persisted record.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.clear(ctx, nil)
	return err
}

func (s *Store) clearIf(ctx context.Context, gen uint64) (bool, error) {
	return s.clear(ctx, &gen)
}

func (s *Store) clear(ctx context.Context, gen *uint64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if gen != nil && s.currentGeneration() != *gen {
		return false, nil
	}

	s.mu.Lock()
	s.tokens = nil
	s.identity = nil
	s.generation++
	s.mu.Unlock()

	if err := s.persister.Delete(ctx); err != nil {
		return true, fmt.Errorf("delete persisted session: %w", err)
	}
	return true, nil
}

func (s *Store) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
