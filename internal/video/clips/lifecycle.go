// Package clips tracks the temporary clip files created for one extraction
// call and guarantees their removal.
package clips

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

// Lifecycle owns every clip path registered for a single extraction call.
// Cleanup must run on both the success and the failure path; a failed
// delete is logged, never fatal.
type Lifecycle struct {
	mu     sync.Mutex
	paths  []string
	logger *zap.Logger
}

func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Track registers a clip path for removal.
func (l *Lifecycle) Track(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

// Paths returns the tracked clip paths in registration order.
func (l *Lifecycle) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.paths))
	copy(out, l.paths)
	return out
}

// Cleanup removes every tracked clip from disk and resets the tracker.
// Safe to call more than once.
func (l *Lifecycle) Cleanup() {
	l.mu.Lock()
	paths := l.paths
	l.paths = nil
	l.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			l.logger.Warn("failed to remove clip", zap.String("clip", p), zap.Error(err))
		}
	}
}
