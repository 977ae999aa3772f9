package infrastructure

import (
	"context"

	"threadberry/product-service/internal/app/product/entity"
)

// DeleteResult - результат массового удаления объектов из media storage
// Failed содержит storage id, которые удалить не удалось
type DeleteResult struct {
	Succeeded []string
	Failed    []string
}

// MediaStorage - интерфейс внешнего хранилища изображений
// UploadMany возвращает успешно загруженные записи и при частичной неудаче -
// ошибку ВМЕСТЕ с уже загруженными записями, чтобы вызывающая сторона могла
// их освободить (партия либо фиксируется целиком, либо откатывается)
type MediaStorage interface {
	UploadMany(ctx context.Context, files []entity.UploadFile, folder string) ([]entity.Image, error)
	DeleteMany(ctx context.Context, storageIDs []string) (*DeleteResult, error)
}

// MessagePublisher - интерфейс для отправки сообщений в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
