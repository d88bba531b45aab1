// Package kv is the durable string key-value store game state is saved to.
package kv

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var ErrClosed = errors.New("kv: store closed")

type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Open selects a backend by name: "memory", "sqlite" or "file".
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		return OpenSQLite(path)
	case "file", "zstd":
		return OpenZstdFile(path)
	case "memory", "mem":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", backend)
	}
}

// DefaultPath is where a backend keeps its data under dataDir.
func DefaultPath(dataDir, backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "file", "zstd":
		return filepath.Join(dataDir, "save.json.zst")
	default:
		return filepath.Join(dataDir, "save.db")
	}
}

// Memory is a process-local Store.
type Memory struct {
	mu     sync.Mutex
	m      map[string]string
	closed bool
}

func NewMemory() *Memory { return &Memory{m: map[string]string{}} }

func (s *Memory) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.m[key] = value
	return nil
}

func (s *Memory) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.m, key)
	return nil
}

func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Memory) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.m)
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
