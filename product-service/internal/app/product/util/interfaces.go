package util

import (
	"context"
	"time"

	"threadberry/product-service/internal/app/product/entity"
)

// ProductCache интерфейс для работы с Redis кешем
// Используется для dependency injection и упрощения тестирования
type ProductCache interface {
	SetNewArrivals(ctx context.Context, products []entity.Product, ttl time.Duration) error
	GetNewArrivals(ctx context.Context) ([]entity.Product, error)
	InvalidateNewArrivals(ctx context.Context) error
	Close() error
}
