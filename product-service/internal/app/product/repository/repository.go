package repository

import (
	"context"
	"errors"

	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/query"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidID       = errors.New("invalid product id")
)

// ProductRepository определяет методы для работы с товарами в MongoDB
// Все операции атомарны на уровне одного документа
type ProductRepository interface {
	Find(ctx context.Context, plan *query.Plan) ([]entity.Product, int64, error)
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	Create(ctx context.Context, product *entity.Product) error
	Replace(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id string) error
}

// OrphanedMediaRepository хранит storage id объектов, которые не удалось
// удалить из media storage; sweeper повторяет удаление по этим записям
type OrphanedMediaRepository interface {
	Add(ctx context.Context, storageIDs []string) error
	List(ctx context.Context, limit int64) ([]entity.OrphanedMedia, error)
	Remove(ctx context.Context, storageIDs []string) error
}
