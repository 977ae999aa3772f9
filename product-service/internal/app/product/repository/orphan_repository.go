package repository

import (
	"context"
	"fmt"
	"time"

	"threadberry/pkg/metrics"
	"threadberry/product-service/internal/app/product/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orphanedMediaRepository struct {
	collection *mongo.Collection
}

// NewOrphanedMediaRepository создает репозиторий записей об orphaned media
func NewOrphanedMediaRepository(db *mongo.Database) OrphanedMediaRepository {
	return &orphanedMediaRepository{
		collection: db.Collection("orphaned_media"),
	}
}

// Add записывает storage id, которые не удалось удалить из media storage
func (r *orphanedMediaRepository) Add(ctx context.Context, storageIDs []string) error {
	if len(storageIDs) == 0 {
		return nil
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpInsert, "orphaned_media")
	defer timer.ObserveDuration()

	docs := make([]interface{}, 0, len(storageIDs))
	now := time.Now()
	for _, id := range storageIDs {
		docs = append(docs, entity.OrphanedMedia{StorageID: id, RecordedAt: now})
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpInsert)
		return fmt.Errorf("failed to record orphaned media: %w", err)
	}

	return nil
}

// List возвращает старейшие записи об orphaned media для повторного удаления
func (r *orphanedMediaRepository) List(ctx context.Context, limit int64) ([]entity.OrphanedMedia, error) {
	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpFind, "orphaned_media")
	defer timer.ObserveDuration()

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, fmt.Errorf("failed to list orphaned media: %w", err)
	}
	defer cursor.Close(ctx)

	var orphans []entity.OrphanedMedia
	if err := cursor.All(ctx, &orphans); err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, fmt.Errorf("failed to decode orphaned media: %w", err)
	}

	return orphans, nil
}

// Remove удаляет записи после успешного освобождения объектов
func (r *orphanedMediaRepository) Remove(ctx context.Context, storageIDs []string) error {
	if len(storageIDs) == 0 {
		return nil
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpDelete, "orphaned_media")
	defer timer.ObserveDuration()

	if _, err := r.collection.DeleteMany(ctx, bson.M{"storage_id": bson.M{"$in": storageIDs}}); err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpDelete)
		return fmt.Errorf("failed to remove orphaned media records: %w", err)
	}

	return nil
}
