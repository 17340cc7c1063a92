package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Memory is an in-process Storage implementation.
// Intended for tests and local development; contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	body         []byte
	contentType  string
	cacheControl string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, opts ...PutOption) error {
	o := &putOptions{}
	for _, opt := range opts {
		opt(o)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{
		body:         data,
		contentType:  o.contentType,
		cacheControl: o.cacheControl,
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// ContentType returns the stored content type for a key, for test assertions.
func (m *Memory) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

// CacheControl returns the stored cache directive for a key, for test assertions.
func (m *Memory) CacheControl(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].cacheControl
}

var _ Storage = (*Memory)(nil)
