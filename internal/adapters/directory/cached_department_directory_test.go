package directory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/orderdesk/backend/internal/adapters/directory"
	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
)

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockDepartmentDirectory struct {
	mock.Mock
}

func (m *MockDepartmentDirectory) DepartmentName(ctx context.Context, departmentID string) (string, error) {
	args := m.Called(ctx, departmentID)
	return args.String(0), args.Error(1)
}

func TestCachedDepartmentDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips the backend", func(t *testing.T) {
		cache := new(MockCacheProvider)
		inner := new(MockDepartmentDirectory)
		cache.On("Get", mock.Anything, "department:dep-1").Return([]byte(`{"name":"Cardiology"}`), nil)

		name, err := directory.NewCachedDepartmentDirectory(inner, cache, 60).DepartmentName(ctx, "dep-1")

		require.NoError(t, err)
		assert.Equal(t, "Cardiology", name)
		inner.AssertNotCalled(t, "DepartmentName", mock.Anything, mock.Anything)
	})

	t.Run("miss fetches and stores with ttl", func(t *testing.T) {
		cache := new(MockCacheProvider)
		inner := new(MockDepartmentDirectory)
		cache.On("Get", mock.Anything, "department:dep-2").Return(nil, providers.ErrCacheMiss)
		inner.On("DepartmentName", mock.Anything, "dep-2").Return(" Oncology ", nil)
		cache.On("Set", mock.Anything, "department:dep-2", []byte(`{"name":"Oncology"}`), 60).Return(nil).Once()

		name, err := directory.NewCachedDepartmentDirectory(inner, cache, 60).DepartmentName(ctx, "dep-2")

		require.NoError(t, err)
		assert.Equal(t, "Oncology", name)
		cache.AssertExpectations(t)
	})

	t.Run("broken cache still resolves", func(t *testing.T) {
		cache := new(MockCacheProvider)
		inner := new(MockDepartmentDirectory)
		cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
		cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))
		inner.On("DepartmentName", mock.Anything, "dep-3").Return("Radiology", nil)

		name, err := directory.NewCachedDepartmentDirectory(inner, cache, 0).DepartmentName(ctx, "dep-3")

		require.NoError(t, err)
		assert.Equal(t, "Radiology", name)
	})

	t.Run("backend errors are not cached", func(t *testing.T) {
		cache := new(MockCacheProvider)
		inner := new(MockDepartmentDirectory)
		cache.On("Get", mock.Anything, mock.Anything).Return(nil, providers.ErrCacheMiss)
		inner.On("DepartmentName", mock.Anything, "dep-4").Return("", errors.New("503"))

		_, err := directory.NewCachedDepartmentDirectory(inner, cache, 60).DepartmentName(ctx, "dep-4")

		assert.Error(t, err)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unreadable entry is refetched", func(t *testing.T) {
		cache := new(MockCacheProvider)
		inner := new(MockDepartmentDirectory)
		cache.On("Get", mock.Anything, mock.Anything).Return([]byte(`not json`), nil)
		cache.On("Delete", mock.Anything, "department:dep-5").Return(nil).Once()
		cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		inner.On("DepartmentName", mock.Anything, "dep-5").Return("ENT", nil)

		name, err := directory.NewCachedDepartmentDirectory(inner, cache, 60).DepartmentName(ctx, "dep-5")

		require.NoError(t, err)
		assert.Equal(t, "ENT", name)
		cache.AssertExpectations(t)
	})

	t.Run("blank cached name is evicted", func(t *testing.T) {
		cache := new(MockCacheProvider)
		inner := new(MockDepartmentDirectory)
		cache.On("Get", mock.Anything, "department:dep-6").Return([]byte(`{"name":"  "}`), nil)
		cache.On("Delete", mock.Anything, "department:dep-6").Return(errors.New("connection reset")).Once()
		inner.On("DepartmentName", mock.Anything, "dep-6").Return("", nil)

		name, err := directory.NewCachedDepartmentDirectory(inner, cache, 60).DepartmentName(ctx, "dep-6")

		require.NoError(t, err)
		assert.Empty(t, name)
		cache.AssertExpectations(t)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
