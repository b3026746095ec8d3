package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockRepo) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockRepo) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.Called(ctx, key, data, ttl).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func TestFailoverStateRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()
	ttl := 10 * time.Second

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Acquire", ctx, "k", ttl).Return(true, nil).Once()

		ok, err := repo.Acquire(ctx, "k", ttl)
		require.NoError(t, err)
		assert.True(t, ok)
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "Acquire", ctx, "k", ttl)
	})

	t.Run("PrimaryFailsFallbackServes", func(t *testing.T) {
		primary.On("Get", ctx, "week").Return(nil, errors.New("connection refused")).Once()
		fallback.On("Get", ctx, "week").Return([]byte("cached"), nil).Once()

		got, err := repo.Get(ctx, "week")
		require.NoError(t, err)
		assert.Equal(t, []byte("cached"), got)
		assert.True(t, repo.isDown.Load())
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		now = now.Add(30 * time.Second)
		fallback.On("Acquire", ctx, "k2", ttl).Return(true, nil).Once()

		ok, err := repo.Acquire(ctx, "k2", ttl)
		require.NoError(t, err)
		assert.True(t, ok)
		primary.AssertNotCalled(t, "Acquire", ctx, "k2", ttl)
	})

	t.Run("DeleteClearsFallbackToo", func(t *testing.T) {
		fallback.On("Delete", ctx, []string{"week"}).Return(nil).Twice()

		require.NoError(t, repo.Delete(ctx, "week"))
		fallback.AssertNumberOfCalls(t, "Delete", 2)
	})

	t.Run("ReleaseClearsFallbackToo", func(t *testing.T) {
		fallback.On("Release", ctx, "k2").Return(nil).Twice()

		require.NoError(t, repo.Release(ctx, "k2"))
		fallback.AssertNumberOfCalls(t, "Release", 2)
		primary.AssertNotCalled(t, "Release", ctx, "k2")
	})

	t.Run("RecoversAfterInterval", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		primary.On("Set", ctx, "week", []byte("v"), time.Minute).Return(nil).Once()

		require.NoError(t, repo.Set(ctx, "week", []byte("v"), time.Minute))
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})
}
