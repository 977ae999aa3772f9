package mocks

import (
	"context"
	"time"

	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/infrastructure"
	"threadberry/product-service/internal/app/product/query"

	"github.com/stretchr/testify/mock"
)

// MockProductRepository мок для ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Find(ctx context.Context, plan *query.Plan) ([]entity.Product, int64, error) {
	args := m.Called(ctx, plan)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *entity.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Replace(ctx context.Context, product *entity.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOrphanedMediaRepository мок для OrphanedMediaRepository
type MockOrphanedMediaRepository struct {
	mock.Mock
}

func (m *MockOrphanedMediaRepository) Add(ctx context.Context, storageIDs []string) error {
	args := m.Called(ctx, storageIDs)
	return args.Error(0)
}

func (m *MockOrphanedMediaRepository) List(ctx context.Context, limit int64) ([]entity.OrphanedMedia, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.OrphanedMedia), args.Error(1)
}

func (m *MockOrphanedMediaRepository) Remove(ctx context.Context, storageIDs []string) error {
	args := m.Called(ctx, storageIDs)
	return args.Error(0)
}

// MockMediaStorage мок для внешнего media storage
type MockMediaStorage struct {
	mock.Mock
}

func (m *MockMediaStorage) UploadMany(ctx context.Context, files []entity.UploadFile, folder string) ([]entity.Image, error) {
	args := m.Called(ctx, files, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Image), args.Error(1)
}

func (m *MockMediaStorage) DeleteMany(ctx context.Context, storageIDs []string) (*infrastructure.DeleteResult, error) {
	args := m.Called(ctx, storageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infrastructure.DeleteResult), args.Error(1)
}

// MockProductCache мок для Redis кеша
type MockProductCache struct {
	mock.Mock
}

func (m *MockProductCache) SetNewArrivals(ctx context.Context, products []entity.Product, ttl time.Duration) error {
	args := m.Called(ctx, products, ttl)
	return args.Error(0)
}

func (m *MockProductCache) GetNewArrivals(ctx context.Context) ([]entity.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockProductCache) InvalidateNewArrivals(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProductCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockMessagePublisher мок для Kafka MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
	Messages [][]byte
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	m.Messages = append(m.Messages, value)
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
