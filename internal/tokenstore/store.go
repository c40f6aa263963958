// Package tokenstore keeps the access token issued at sign-in where later requests can find it.
package tokenstore

import (
	"context"
	"errors"
	"sync"

	"finitefield.org/signin/internal/session"
)

// AccessTokenKey is the key under which the access token is persisted.
const AccessTokenKey = "access-token"

// ErrNotFound is returned by GetItem when the key holds no value.
var ErrNotFound = errors.New("tokenstore: item not found")

// Store is a string key/value store scoped to one browser session.
type Store interface {
	SetItem(ctx context.Context, key, value string) error
	GetItem(ctx context.Context, key string) (string, error)
	RemoveItem(ctx context.Context, key string) error
}

// Provider hands out the Store bound to a session.
type Provider interface {
	For(sess *session.Session) Store
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(sess *session.Session) Store

// For implements Provider.
func (f ProviderFunc) For(sess *session.Session) Store {
	return f(sess)
}

// SessionProvider stores items inside the signed session cookie.
type SessionProvider struct{}

// For implements Provider.
func (SessionProvider) For(sess *session.Session) Store {
	return NewSessionStore(sess)
}

// SessionStore persists items in a session. Values reach the browser when the session is saved.
type SessionStore struct {
	sess *session.Session
}

// NewSessionStore wraps sess.
func NewSessionStore(sess *session.Session) *SessionStore {
	return &SessionStore{sess: sess}
}

func (s *SessionStore) SetItem(_ context.Context, key, value string) error {
	if s.sess == nil {
		return errors.New("tokenstore: no session")
	}
	s.sess.SetItem(key, value)
	return nil
}

func (s *SessionStore) GetItem(_ context.Context, key string) (string, error) {
	if s.sess == nil {
		return "", ErrNotFound
	}
	v, ok := s.sess.Item(key)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *SessionStore) RemoveItem(_ context.Context, key string) error {
	if s.sess != nil {
		s.sess.RemoveItem(key)
	}
	return nil
}

// Memory keeps items in process memory, partitioned by scope.
type Memory struct {
	mu     sync.RWMutex
	scopes map[string]map[string]string
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{scopes: make(map[string]map[string]string)}
}

// For implements Provider, scoping by session id.
func (m *Memory) For(sess *session.Session) Store {
	return m.Scope(sess.ID())
}

// Scope returns the Store for one scope.
func (m *Memory) Scope(scope string) Store {
	return &memoryStore{parent: m, scope: scope}
}

type memoryStore struct {
	parent *Memory
	scope  string
}

func (s *memoryStore) SetItem(_ context.Context, key, value string) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	items, ok := s.parent.scopes[s.scope]
	if !ok {
		items = make(map[string]string)
		s.parent.scopes[s.scope] = items
	}
	items[key] = value
	return nil
}

func (s *memoryStore) GetItem(_ context.Context, key string) (string, error) {
	s.parent.mu.RLock()
	defer s.parent.mu.RUnlock()
	v, ok := s.parent.scopes[s.scope][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memoryStore) RemoveItem(_ context.Context, key string) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	items, ok := s.parent.scopes[s.scope]
	if !ok {
		return nil
	}
	delete(items, key)
	if len(items) == 0 {
		delete(s.parent.scopes, s.scope)
	}
	return nil
}
