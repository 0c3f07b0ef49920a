// Package memory provides in-memory implementations for testing.
package memory

import (
	"sort"
	"sync"

	"github.com/artpar/ctrlgen/ports"
)

// Sink is an in-memory implementation of ports.Sink.
type Sink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewSink creates an empty in-memory sink.
func NewSink() *Sink {
	return &Sink{files: make(map[string][]byte)}
}

// Write stores a copy of src under path.
func (s *Sink) Write(path string, src []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[path] = append([]byte(nil), src...)
	return nil
}

// Get returns the source written to path.
func (s *Sink) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.files[path]
	return src, ok
}

// Paths returns every written path, sorted.
func (s *Sink) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of written files.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

var _ ports.Sink = (*Sink)(nil)
