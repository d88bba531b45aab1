package kv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdFile keeps the whole store in memory and rewrites one compressed JSON
// file on every mutation.
type ZstdFile struct {
	path string

	mu     sync.Mutex
	m      map[string]string
	closed bool
}

func OpenZstdFile(path string) (*ZstdFile, error) {
	if path == "" {
		return nil, fmt.Errorf("empty save path")
	}
	s := &ZstdFile{path: path, m: map[string]string{}}
	m, err := readZstdJSON(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if m != nil {
		s.m = m
	}
	return s, nil
}

func (s *ZstdFile) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *ZstdFile) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.m[key] = value
	return writeZstdJSON(s.path, s.m)
}

func (s *ZstdFile) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.m[key]; !ok {
		return nil
	}
	delete(s.m, key)
	return writeZstdJSON(s.path, s.m)
}

func (s *ZstdFile) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.m)
}

func (s *ZstdFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func writeZstdJSON(path string, m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}
	bw := bufio.NewWriter(enc)
	if err := json.NewEncoder(bw).Encode(m); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("encode save: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readZstdJSON(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	var m map[string]string
	if err := json.NewDecoder(bufio.NewReader(dec)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode save %s: %w", filepath.Base(path), err)
	}
	return m, nil
}
