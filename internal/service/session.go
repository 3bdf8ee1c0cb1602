package service

import (
	"sync"
	"time"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/google/uuid"
)

// Session is one logged-in client. It lives only in process memory.
type Session struct {
	ID         string
	USN        string
	Profile    domain.Profile
	Credential string // password supplied at login, used for later edits
	CreatedAt  time.Time
}

// SessionStore holds the active sessions keyed by token
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionStore creates an empty SessionStore
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create starts a session for profile and returns it
func (s *SessionStore) Create(usn string, profile domain.Profile, credential string) *Session {
	sess := &Session{
		ID:         uuid.New().String(),
		USN:        usn,
		Profile:    profile.Clone(),
		Credential: credential,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess.snapshot()
}

// Get returns a copy of the session for token
func (s *SessionStore) Get(token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrNoSession
	}
	return sess.snapshot(), nil
}

// UpdateProfile applies fn to the session profile in place
func (s *SessionStore) UpdateProfile(token string, fn func(p *domain.Profile)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrNoSession
	}
	fn(&sess.Profile)
	return sess.snapshot(), nil
}

// SessionUSN returns the identifier the session for token belongs to
func (s *SessionStore) SessionUSN(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", false
	}
	return sess.USN, true
}

// Delete ends the session for token. Unknown tokens are ignored.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Count returns the number of active sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (sess *Session) snapshot() *Session {
	c := *sess
	c.Profile = sess.Profile.Clone()
	return &c
}
