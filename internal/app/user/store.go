package user

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"chatcast/internal/pkg/logx"
)

// Store is the in-memory credential store.
// Every mutation goes through its lock; callers never touch the map directly.
type Store struct {
	// users maps username to its registered record.
	users map[string]User

	// hasher produces and checks secret hashes.
	hasher Hasher

	// mu serializes inserts against lookups.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewStore constructs an empty Store backed by the given Hasher.
func NewStore(hasher Hasher) *Store {
	return &Store{
		users:  make(map[string]User),
		hasher: hasher,
		logger: logx.Component("CredentialStore"),
	}
}

// Register inserts a new user. It fails with ErrAlreadyExists if the username is taken.
// The secret is hashed before the lock is taken; the existence check and the insert
// happen under one exclusive lock, so concurrent registrations of the same name have
// exactly one winner.
func (s *Store) Register(username, secret string) error {
	if s.exists(username) {
		return fmt.Errorf("register %q: %w", username, ErrAlreadyExists)
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("register %q: %w", username, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return fmt.Errorf("register %q: %w", username, ErrAlreadyExists)
	}

	s.users[username] = User{Username: username, SecretHash: hash}

	s.logger.Info().Str("username", username).Int("total_users", len(s.users)).Msg("User registered.")
	return nil
}

// Verify checks a username/secret pair.
// It returns ErrNotFound for an unknown username and ErrWrongSecret for a mismatch.
func (s *Store) Verify(username, secret string) error {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("verify %q: %w", username, ErrNotFound)
	}

	match, err := s.hasher.Compare(u.SecretHash, secret)
	if err != nil {
		return fmt.Errorf("verify %q: %w", username, err)
	}
	if !match {
		return fmt.Errorf("verify %q: %w", username, ErrWrongSecret)
	}

	return nil
}

// Count returns the number of registered users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users)
}

func (s *Store) exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[username]
	return ok
}
