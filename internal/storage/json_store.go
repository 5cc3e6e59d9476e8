package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// JSONStore keeps every submission in one JSON array file, newest first.
// Each mutation rewrites the whole file through a temp file and rename.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	s := &JSONStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save(nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (*types.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(list, id); i >= 0 {
		return list[i], nil
	}
	return nil, ErrNotFound
}

func (s *JSONStore) List(ctx context.Context) ([]*types.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *JSONStore) Upsert(ctx context.Context, sub *types.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}
	if i := indexOf(list, sub.ID); i >= 0 {
		list[i] = sub
	} else {
		list = append([]*types.Submission{sub}, list...)
	}
	return s.save(list)
}

func (s *JSONStore) Update(ctx context.Context, id string, fn func(*types.Submission) error) (*types.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	if err := fn(list[i]); err != nil {
		return nil, err
	}
	if err := s.save(list); err != nil {
		return nil, err
	}
	return list[i], nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) load() ([]*types.Submission, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []*types.Submission{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	list := []*types.Submission{}
	if len(data) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse store %s: %w", s.path, err)
	}
	return list, nil
}

func (s *JSONStore) save(list []*types.Submission) error {
	if list == nil {
		list = []*types.Submission{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".submissions-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

func indexOf(list []*types.Submission, id string) int {
	for i, s := range list {
		if s != nil && s.ID == id {
			return i
		}
	}
	return -1
}
