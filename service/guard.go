package service

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// LocalGuard is an in-process Guard. It only protects against overlap within
// one process; use a distributed guard when several instances share a database.
type LocalGuard struct {
	mu      sync.Mutex
	running map[string]bool
}

// NewLocalGuard creates a new in-process guard
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{running: make(map[string]bool)}
}

// TryRun runs fn unless another run of name is in flight
func (g *LocalGuard) TryRun(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	g.mu.Lock()
	if g.running[name] {
		g.mu.Unlock()
		log.WithField("operation", name).Debug("Operation already running, skipping")
		return false, nil
	}
	g.running[name] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.running, name)
		g.mu.Unlock()
	}()

	return true, fn(ctx)
}
