// Package fallback keeps registrant profiles locally while the remote store
// refuses writes. All profiles live in one JSON object under StorageKey, the same
// layout the browser client used in its local storage.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/normalize"
)

// StorageKey is the local storage entry holding the usn -> profile object
const StorageKey = "local_registers"

// Store is the local fallback store. It is safe for concurrent use.
type Store struct {
	storage domain.LocalStorage
	mu      sync.Mutex
}

// NewStore creates a new Store over storage
func NewStore(storage domain.LocalStorage) *Store {
	return &Store{storage: storage}
}

// All returns every locally held profile keyed by usn
func (s *Store) All(ctx context.Context) (map[string]domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the local profile for usn
func (s *Store) Get(ctx context.Context, usn string) (domain.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load(ctx)
	if err != nil {
		return domain.Profile{}, false, err
	}
	p, ok := profiles[usn]
	return p, ok, nil
}

// Put stores p under usn, replacing any previous entry
func (s *Store) Put(ctx context.Context, usn string, p domain.Profile) error {
	return s.mutate(ctx, func(profiles map[string]domain.Profile) {
		profiles[usn] = p.Clone()
	})
}

// Merge applies update to the entry for usn, creating {usn} first when absent,
// and returns the merged profile
func (s *Store) Merge(ctx context.Context, usn string, update domain.ProfileUpdate, modifiedAt int64) (domain.Profile, error) {
	var merged domain.Profile
	err := s.mutate(ctx, func(profiles map[string]domain.Profile) {
		p := entry(profiles, usn)
		update.Apply(&p, modifiedAt)
		profiles[usn] = p
		merged = p.Clone()
	})
	return merged, err
}

// AddRepository inserts repo under id in the entry for usn, creating the entry
// and its repos mapping when absent
func (s *Store) AddRepository(ctx context.Context, usn, id string, repo domain.Repository) error {
	return s.mutate(ctx, func(profiles map[string]domain.Profile) {
		p := entry(profiles, usn)
		p.Repos[id] = repo
		profiles[usn] = p
	})
}

// Remove drops the entries for the given usns
func (s *Store) Remove(ctx context.Context, usns ...string) error {
	if len(usns) == 0 {
		return nil
	}
	return s.mutate(ctx, func(profiles map[string]domain.Profile) {
		for _, usn := range usns {
			delete(profiles, usn)
		}
	})
}

func entry(profiles map[string]domain.Profile, usn string) domain.Profile {
	p, ok := profiles[usn]
	if !ok {
		p = domain.Profile{USN: usn}
	}
	if p.Repos == nil {
		p.Repos = map[string]domain.Repository{}
	}
	return p
}

func (s *Store) mutate(ctx context.Context, fn func(map[string]domain.Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load(ctx)
	if err != nil {
		return err
	}
	fn(profiles)
	return s.save(ctx, profiles)
}

func (s *Store) load(ctx context.Context) (map[string]domain.Profile, error) {
	profiles := make(map[string]domain.Profile)

	raw, ok, err := s.storage.GetItem(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("fallback: reading %s: %w", StorageKey, err)
	}
	if !ok || raw == "" {
		return profiles, nil
	}

	var entries map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("fallback: decoding %s: %w", StorageKey, err)
	}
	for usn, v := range entries {
		profiles[usn] = normalize.Profile(v)
	}
	return profiles, nil
}

func (s *Store) save(ctx context.Context, profiles map[string]domain.Profile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("fallback: encoding %s: %w", StorageKey, err)
	}
	if err := s.storage.SetItem(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("fallback: writing %s: %w", StorageKey, err)
	}
	return nil
}
