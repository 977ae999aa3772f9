package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threadberry/pkg/logger"
	"threadberry/pkg/metrics"
	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const serviceName = "product-service"

type productRepository struct {
	collection *mongo.Collection
}

// NewProductRepository создает новый репозиторий товаров
// Автоматически создает составной индекс (owner, category.main) для
// выборок "мои товары" и категорийных страниц
func NewProductRepository(db *mongo.Database) ProductRepository {
	collection := db.Collection("products")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "owner", Value: 1},
			{Key: "category.main", Value: 1},
		},
		Options: options.Index().SetName("owner_category_idx"),
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	if err != nil {
		// Логируем ошибку, но не прерываем работу - индекс может уже существовать
		logger.Warn().Err(err).Msg("failed to create index on (owner, category.main)")
	}

	return &productRepository{
		collection: collection,
	}
}

// Find выполняет план запроса и возвращает страницу товаров
// Total считается отдельным count по тому же фильтру, а не от размера страницы,
// поэтому метаданные пагинации точны и на последней неполной странице
func (r *productRepository) Find(ctx context.Context, plan *query.Plan) ([]entity.Product, int64, error) {
	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpFind, "products")
	defer timer.ObserveDuration()

	opts := options.Find().SetSort(plan.Sort).SetSkip(plan.Skip)
	if plan.Limit > 0 {
		opts = opts.SetLimit(plan.Limit)
	}

	cursor, err := r.collection.Find(ctx, plan.Filter, opts)
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, 0, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []entity.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}

	total, err := r.collection.CountDocuments(ctx, plan.Filter)
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpCount)
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return products, total, nil
}

// GetByID получает товар по ID
func (r *productRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpFind, "products")
	defer timer.ObserveDuration()

	var product entity.Product
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// Create создает новый товар в MongoDB
// Поля created_at/updated_at выставляются здесь, а не вызывающей стороной
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpInsert, "products")
	defer timer.ObserveDuration()

	result, err := r.collection.InsertOne(ctx, product)
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpInsert)
		return fmt.Errorf("failed to create product: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		product.ID = oid
	}

	return nil
}

// Replace сохраняет пропатченный документ целиком
// Товар самодостаточен, мультидокументные транзакции не нужны
func (r *productRepository) Replace(ctx context.Context, product *entity.Product) error {
	product.UpdatedAt = time.Now()

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpUpdate, "products")
	defer timer.ObserveDuration()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpUpdate)
		return fmt.Errorf("failed to replace product: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete удаляет товар из MongoDB
func (r *productRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpDelete, "products")
	defer timer.ObserveDuration()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpDelete)
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}
