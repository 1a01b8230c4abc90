package identity

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps users in process memory with sequential numeric ids.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[string]User
	byEmail map[string]string
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// Create assigns the next id and stores u. It returns ErrEmailTaken for a duplicate email.
func (s *MemoryStore) Create(_ context.Context, u User) (User, error) {
	key := NormalizeEmail(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return User{}, ErrEmailTaken
	}
	s.nextID++
	u.ID = strconv.FormatInt(s.nextID, 10)
	u.Email = key
	s.byID[u.ID] = u
	s.byEmail[key] = u.ID
	return u, nil
}

// ByEmail looks a user up by normalized email.
func (s *MemoryStore) ByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.byID[id], nil
}

// ByID returns ErrNotFound when no user has id.
func (s *MemoryStore) ByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Delete removes a user. Tokens already issued to it stay valid until they expire or are
// revoked.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.byID[id]; ok {
		delete(s.byEmail, u.Email)
		delete(s.byID, id)
	}
}
