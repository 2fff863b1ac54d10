package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo/models"
)

func TestDemoUserService_RefreshReplacesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDemoUserRepository)
	cache := NewDemoUserCache()
	cache.Add(99)
	svc := NewDemoUserService(repo, cache)

	repo.On("List", ctx).Return([]*models.DemoUser{{UserID: 1}, {UserID: 2}}, nil)

	require.NoError(t, svc.Refresh(ctx))
	assert.True(t, svc.IsDemoUser(1))
	assert.True(t, svc.IsDemoUser(2))
	assert.False(t, svc.IsDemoUser(99))
	assert.Equal(t, 2, cache.Len())
}

func TestDemoUserService_RefreshFailureClearsCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDemoUserRepository)
	cache := NewDemoUserCache()
	cache.Add(1)
	svc := NewDemoUserService(repo, cache)

	repo.On("List", ctx).Return(nil, errors.New("connection refused"))

	assert.Error(t, svc.Refresh(ctx))
	assert.False(t, svc.IsDemoUser(1))
	assert.Equal(t, 0, cache.Len())
}

func TestDemoUserService_AddAndRemove(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDemoUserRepository)
	svc := NewDemoUserService(repo, NewDemoUserCache())

	repo.On("Add", ctx, int64(5)).Return(nil)
	repo.On("Remove", ctx, int64(5)).Return(true, nil).Once()
	repo.On("Remove", ctx, int64(5)).Return(false, nil).Once()

	require.NoError(t, svc.Add(ctx, 5))
	assert.True(t, svc.IsDemoUser(5))

	require.NoError(t, svc.Remove(ctx, 5))
	assert.False(t, svc.IsDemoUser(5))

	assert.Error(t, svc.Remove(ctx, 5))
	repo.AssertExpectations(t)
}

func TestDemoUserService_AddFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDemoUserRepository)
	svc := NewDemoUserService(repo, NewDemoUserCache())

	repo.On("Add", ctx, int64(8)).Return(errors.New("foreign key violation"))

	assert.Error(t, svc.Add(ctx, 8))
	assert.False(t, svc.IsDemoUser(8))
}
