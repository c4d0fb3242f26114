package services

import (
	"context"
	"sync"
)

// MockCompleter returns canned responses in order and records the
// requests it received.
type MockCompleter struct {
	Responses []string
	Err       error
	FailAt    int // 1-based call number that returns Err; 0 fails every call when Err is set

	mu       sync.Mutex
	Requests []CompletionRequest
}

func (m *MockCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	n := len(m.Requests)
	if m.Err != nil && (m.FailAt == 0 || m.FailAt == n) {
		return "", m.Err
	}
	if n > len(m.Responses) {
		return "", ErrEmptyCompletion
	}
	return m.Responses[n-1], nil
}

func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// recordingStore wraps a ContentStore, remembers every write and can run a
// hook right before a write reaches the wrapped store.
type recordingStore struct {
	ContentStore
	BeforePut func(w FileWrite)

	mu     sync.Mutex
	Writes []FileWrite
	Reads  []string
}

func (s *recordingStore) GetFile(ctx context.Context, path string) (*RemoteFile, error) {
	s.mu.Lock()
	s.Reads = append(s.Reads, path)
	s.mu.Unlock()
	return s.ContentStore.GetFile(ctx, path)
}

func (s *recordingStore) PutFile(ctx context.Context, w FileWrite) WriteResult {
	s.mu.Lock()
	s.Writes = append(s.Writes, w)
	hook := s.BeforePut
	s.mu.Unlock()
	if hook != nil {
		hook(w)
	}
	return s.ContentStore.PutFile(ctx, w)
}

func (s *recordingStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Writes) + len(s.Reads)
}
