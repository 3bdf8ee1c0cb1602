package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/tree"
)

// MockRemoteStore is an in-memory implementation of domain.RemoteStore backed by
// a real tree. Subscribers are notified synchronously after every write.
type MockRemoteStore struct {
	// DenyReads and DenyWrites make the matching operations fail with
	// domain.ErrPermissionDenied
	DenyReads  bool
	DenyWrites bool
	// FailPaths makes any operation on the exact path fail with the given error
	FailPaths map[string]error
	// SubscribeErr is delivered to onError instead of attaching a subscriber
	SubscribeErr error

	GetFn    func(ctx context.Context, path string) (domain.Snapshot, error)
	SetFn    func(ctx context.Context, path string, value any) error
	UpdateFn func(ctx context.Context, path string, fields map[string]any) error
	PushFn   func(ctx context.Context, path string, value any) (string, error)

	mu          sync.Mutex
	root        any
	nextKey     int
	nextSub     int
	subscribers map[int]*mockSubscriber
	calls       []string
}

type mockSubscriber struct {
	path    string
	onValue func(domain.Snapshot)
}

// NewMockRemoteStore creates a new MockRemoteStore
func NewMockRemoteStore() *MockRemoteStore {
	return &MockRemoteStore{
		FailPaths:   make(map[string]error),
		subscribers: make(map[int]*mockSubscriber),
	}
}

// Seed writes value at path without permission checks (helper for tests)
func (m *MockRemoteStore) Seed(path string, value any) {
	decoded, err := tree.Decode(value)
	if err != nil {
		panic(fmt.Sprintf("testutil: seeding %s: %v", path, err))
	}
	m.mu.Lock()
	m.root = tree.Set(m.root, path, decoded)
	m.mu.Unlock()
	m.notify()
}

// Value returns a copy of the value at path (helper for tests)
func (m *MockRemoteStore) Value(path string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := tree.Get(m.root, path)
	return tree.Clone(v), ok
}

// Calls returns the operations performed so far as "METHOD path" strings
func (m *MockRemoteStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// SubscriberCount returns the number of live subscriptions
func (m *MockRemoteStore) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Get reads the value at path
func (m *MockRemoteStore) Get(ctx context.Context, path string) (domain.Snapshot, error) {
	if err := m.check("GET", path, m.DenyReads); err != nil {
		return domain.Snapshot{}, err
	}
	if m.GetFn != nil {
		return m.GetFn(ctx, path)
	}
	v, ok := m.Value(path)
	return domain.Snapshot{Exists: ok, Value: v}, nil
}

// Subscribe attaches onValue to path and delivers the current value immediately
func (m *MockRemoteStore) Subscribe(ctx context.Context, path string, onValue func(domain.Snapshot), onError func(error)) func() {
	if err := m.check("SUBSCRIBE", path, m.DenyReads); err != nil {
		onError(err)
		return func() {}
	}
	if m.SubscribeErr != nil {
		onError(m.SubscribeErr)
		return func() {}
	}

	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subscribers[id] = &mockSubscriber{path: path, onValue: onValue}
	v, ok := tree.Get(m.root, path)
	snap := domain.Snapshot{Exists: ok, Value: tree.Clone(v)}
	m.mu.Unlock()

	onValue(snap)

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Set overwrites the value at path
func (m *MockRemoteStore) Set(ctx context.Context, path string, value any) error {
	if err := m.check("SET", path, m.DenyWrites); err != nil {
		return err
	}
	if m.SetFn != nil {
		return m.SetFn(ctx, path, value)
	}
	decoded, err := tree.Decode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.root = tree.Set(m.root, path, decoded)
	m.mu.Unlock()
	m.notify()
	return nil
}

// Update merges fields into the value at path
func (m *MockRemoteStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := m.check("UPDATE", path, m.DenyWrites); err != nil {
		return err
	}
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, path, fields)
	}
	decoded, err := tree.Decode(fields)
	if err != nil {
		return err
	}
	obj, _ := decoded.(map[string]any)
	m.mu.Lock()
	m.root = tree.Merge(m.root, path, obj)
	m.mu.Unlock()
	m.notify()
	return nil
}

// Push appends value under path with a generated key
func (m *MockRemoteStore) Push(ctx context.Context, path string, value any) (string, error) {
	if err := m.check("PUSH", path, m.DenyWrites); err != nil {
		return "", err
	}
	if m.PushFn != nil {
		return m.PushFn(ctx, path, value)
	}
	decoded, err := tree.Decode(value)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.nextKey++
	key := fmt.Sprintf("-Nmock%04d", m.nextKey)
	m.root = tree.Set(m.root, tree.Join(path, key), decoded)
	m.mu.Unlock()
	m.notify()
	return key, nil
}

func (m *MockRemoteStore) check(method, path string, denied bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, method+" "+tree.Join(path))
	if err, ok := m.FailPaths[tree.Join(path)]; ok {
		return err
	}
	if denied {
		return fmt.Errorf("%w: %s %s", domain.ErrPermissionDenied, method, path)
	}
	return nil
}

func (m *MockRemoteStore) notify() {
	m.mu.Lock()
	type delivery struct {
		fn   func(domain.Snapshot)
		snap domain.Snapshot
	}
	deliveries := make([]delivery, 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		v, ok := tree.Get(m.root, sub.path)
		deliveries = append(deliveries, delivery{fn: sub.onValue, snap: domain.Snapshot{Exists: ok, Value: tree.Clone(v)}})
	}
	m.mu.Unlock()

	for _, d := range deliveries {
		d.fn(d.snap)
	}
}

// MockLocalStorage is an in-memory implementation of domain.LocalStorage
type MockLocalStorage struct {
	Items map[string]string
	// Err makes every operation fail
	Err error
	mu  sync.Mutex
}

// NewMockLocalStorage creates a new MockLocalStorage
func NewMockLocalStorage() *MockLocalStorage {
	return &MockLocalStorage{Items: make(map[string]string)}
}

// GetItem returns the value stored under key
func (m *MockLocalStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", false, m.Err
	}
	v, ok := m.Items[key]
	return v, ok, nil
}

// SetItem stores value under key
func (m *MockLocalStorage) SetItem(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Items[key] = value
	return nil
}

// RemoveItem deletes key
func (m *MockLocalStorage) RemoveItem(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Items, key)
	return nil
}
