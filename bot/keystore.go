package bot

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// KeyStore persists Square Cloud API keys per Discord user. The
// in-memory cache is write-through: saves and removals hit the
// database and the cache together, so a read after a write always
// observes the write.
type KeyStore struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string]string
}

// NewKeyStore creates a store over an already-initialized database.
func NewKeyStore(db *sql.DB) *KeyStore {
	return &KeyStore{db: db, cache: make(map[string]string)}
}

// Cached returns the user's API key if it is in the cache. Keys enter
// the cache on save or after a validated lookup.
func (s *KeyStore) Cached(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.cache[userID]
	return key, ok
}

// Cache marks a key as validated so later reads skip the database.
func (s *KeyStore) Cache(userID, apiKey string) {
	s.mu.Lock()
	s.cache[userID] = apiKey
	s.mu.Unlock()
}

// Lookup fetches the user's API key from the database, returning ""
// when none is stored.
func (s *KeyStore) Lookup(ctx context.Context, userID string) (string, error) {
	var apiKey string
	err := s.db.QueryRowContext(ctx,
		"SELECT api_key FROM api_keys WHERE user_id = ?", userID,
	).Scan(&apiKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return apiKey, nil
}

// Save stores or overwrites the user's API key.
func (s *KeyStore) Save(ctx context.Context, userID, apiKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (user_id, api_key) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET api_key = excluded.api_key`,
		userID, apiKey,
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[userID] = apiKey
	s.mu.Unlock()
	return nil
}

// Remove deletes the user's API key, typically after the host reported
// it invalid.
func (s *KeyStore) Remove(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE user_id = ?", userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
	return nil
}
