package service

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"wingo/models"
)

// DemoUserCache is a concurrency-safe in-memory set of demo user ids
type DemoUserCache struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewDemoUserCache creates an empty cache
func NewDemoUserCache() *DemoUserCache {
	return &DemoUserCache{ids: make(map[int64]struct{})}
}

func (c *DemoUserCache) IsDemoUser(userID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[userID]
	return ok
}

// Replace swaps the whole set
func (c *DemoUserCache) Replace(userIDs []int64) {
	ids := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		ids[id] = struct{}{}
	}

	c.mu.Lock()
	c.ids = ids
	c.mu.Unlock()
}

func (c *DemoUserCache) Add(userID int64) {
	c.mu.Lock()
	c.ids[userID] = struct{}{}
	c.mu.Unlock()
}

func (c *DemoUserCache) Remove(userID int64) {
	c.mu.Lock()
	delete(c.ids, userID)
	c.mu.Unlock()
}

func (c *DemoUserCache) Clear() {
	c.Replace(nil)
}

func (c *DemoUserCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

type demoUserService struct {
	repo  DemoUserRepository
	cache *DemoUserCache
}

// NewDemoUserService creates a demo user service backed by repo and cache
func NewDemoUserService(repo DemoUserRepository, cache *DemoUserCache) DemoUserService {
	return &demoUserService{
		repo:  repo,
		cache: cache,
	}
}

func (s *demoUserService) IsDemoUser(userID int64) bool {
	return s.cache.IsDemoUser(userID)
}

// Refresh reloads the cache from the store. On failure the cache is cleared so
// settlement falls back to standard rules.
func (s *demoUserService) Refresh(ctx context.Context) error {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.cache.Clear()
		return fmt.Errorf("failed to refresh demo users: %w", err)
	}

	ids := make([]int64, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.UserID)
	}
	s.cache.Replace(ids)

	log.WithField("demoUserCount", len(ids)).Debug("Refreshed demo user cache")
	return nil
}

func (s *demoUserService) Add(ctx context.Context, userID int64) error {
	if err := s.repo.Add(ctx, userID); err != nil {
		return err
	}
	s.cache.Add(userID)

	log.WithField("userID", userID).Info("Added demo user")
	return nil
}

func (s *demoUserService) Remove(ctx context.Context, userID int64) error {
	removed, err := s.repo.Remove(ctx, userID)
	if err != nil {
		return err
	}
	s.cache.Remove(userID)

	if !removed {
		return fmt.Errorf("user %d is not a demo user", userID)
	}

	log.WithField("userID", userID).Info("Removed demo user")
	return nil
}

func (s *demoUserService) List(ctx context.Context) ([]*models.DemoUser, error) {
	return s.repo.List(ctx)
}

func (s *demoUserService) Count() int {
	return s.cache.Len()
}
