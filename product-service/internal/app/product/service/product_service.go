package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"threadberry/pkg/logger"
	"threadberry/pkg/metrics"
	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/infrastructure"
	"threadberry/product-service/internal/app/product/query"
	"threadberry/product-service/internal/app/product/repository"
	"threadberry/product-service/internal/app/product/taxonomy"
	"threadberry/product-service/internal/app/product/util"
)

const newArrivalsCacheTTL = 1 * time.Hour

// Типы событий жизненного цикла товара
const (
	EventProductCreated = "PRODUCT_CREATED"
	EventProductUpdated = "PRODUCT_UPDATED"
	EventProductDeleted = "PRODUCT_DELETED"
)

// ProductService реализует бизнес-логику каталога товаров
// Координирует репозиторий, media storage, кеш и отправку событий;
// ошибки кеша и Kafka не фатальны для основной операции
type ProductService struct {
	productRepo   repository.ProductRepository
	resolver      *query.Resolver
	tax           *taxonomy.Taxonomy
	reconciler    *MediaReconciler
	cache         util.ProductCache
	kafkaProducer infrastructure.MessagePublisher
}

// NewProductService создает сервис с внедрёнными зависимостями
func NewProductService(
	productRepo repository.ProductRepository,
	resolver *query.Resolver,
	tax *taxonomy.Taxonomy,
	reconciler *MediaReconciler,
	cache util.ProductCache,
	kafkaProducer infrastructure.MessagePublisher,
) *ProductService {
	return &ProductService{
		productRepo:   productRepo,
		resolver:      resolver,
		tax:           tax,
		reconciler:    reconciler,
		cache:         cache,
		kafkaProducer: kafkaProducer,
	}
}

// CreateProduct создает товар с загрузкой изображений
// Порядок жёсткий: сначала полная валидация, затем загрузка в media storage,
// затем вставка документа. При ошибке вставки загруженные объекты освобождаются -
// документ никогда не создаётся без изображений и наоборот
func (s *ProductService) CreateProduct(ctx context.Context, ownerID string, req *entity.CreateProductRequest) (*entity.Product, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	images, err := s.reconciler.StageNewImages(ctx, req.Files)
	if err != nil {
		return nil, err
	}

	product := &entity.Product{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		IsDiscounted:    req.IsDiscounted,
		DiscountedPrice: req.DiscountedPrice,
		Category:        req.Category,
		Sizes:           req.Sizes,
		Colors:          req.Colors,
		Stock:           req.Stock,
		Images:          images,
		IsNewArrival:    req.IsNewArrival,
		Owner:           ownerID,
		SearchText:      entity.BuildSearchText(req.Name, req.Description, req.Category),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		// Вставка не удалась - откатываем загруженные изображения
		s.reconciler.ReleaseImages(ctx, storageIDs(images))
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	metrics.ProductsCreated.Inc()
	s.invalidateNewArrivals(ctx)
	s.publishProductEvent(ctx, EventProductCreated, product)

	logger.Info().
		Str("product_id", product.ID.Hex()).
		Str("owner", ownerID).
		Int("images", len(images)).
		Msg("product created")

	return product, nil
}

// GetProduct возвращает товар по id
func (s *ProductService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return product, nil
}

// ListProducts возвращает страницу каталога с фильтрацией и сортировкой
func (s *ProductService) ListProducts(ctx context.Context, params entity.ListParams) (*entity.ProductListResponse, error) {
	plan := s.resolver.Resolve(params, query.DefaultLimitBrowse)
	return s.findPage(ctx, plan)
}

// GetProductsByCategory возвращает страницу товаров категории
// Токен категории разрешается каскадно: main > sub > regex fallback
func (s *ProductService) GetProductsByCategory(ctx context.Context, name string, params entity.ListParams) (*entity.ProductListResponse, error) {
	if name == "" {
		return nil, newValidationError("category", "category name is required")
	}
	params.Category = name
	plan := s.resolver.Resolve(params, query.DefaultLimitCategory)
	return s.findPage(ctx, plan)
}

// SearchProducts возвращает товары по полнотекстовому поиску
func (s *ProductService) SearchProducts(ctx context.Context, term string) (*entity.ProductListResponse, error) {
	if term == "" {
		return nil, newValidationError("query", "search query is required")
	}
	return s.findPage(ctx, query.TextSearch(term))
}

// GetOurProducts возвращает курируемую подборку для главной страницы
func (s *ProductService) GetOurProducts(ctx context.Context, params entity.ListParams) (*entity.ProductListResponse, error) {
	plan := s.resolver.Resolve(params, query.DefaultLimitCurated)
	return s.findPage(ctx, plan)
}

// GetNewArrivals возвращает новинки, сначала проверяя Redis кеш
// Промах кеша идёт в MongoDB; результат кешируется best-effort
func (s *ProductService) GetNewArrivals(ctx context.Context) ([]entity.Product, error) {
	cached, err := s.cache.GetNewArrivals(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read new arrivals cache")
	}
	if cached != nil {
		return cached, nil
	}

	products, _, err := s.productRepo.Find(ctx, query.NewArrivals(query.DefaultLimitRelated))
	if err != nil {
		return nil, fmt.Errorf("failed to get new arrivals: %w", err)
	}

	if err := s.cache.SetNewArrivals(ctx, products, newArrivalsCacheTTL); err != nil {
		logger.Warn().Err(err).Msg("failed to cache new arrivals")
	}

	return products, nil
}

// GetMyProducts возвращает все товары владельца
func (s *ProductService) GetMyProducts(ctx context.Context, ownerID string) ([]entity.Product, error) {
	products, _, err := s.productRepo.Find(ctx, query.Owner(ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to get products by owner: %w", err)
	}
	return products, nil
}

// GetRelatedProducts возвращает товары той же main категории, исключая сам товар
func (s *ProductService) GetRelatedProducts(ctx context.Context, id string, page, limit int) (*entity.ProductListResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return s.findPage(ctx, query.Related(product.Category.Main, product.ID, page, limit))
}

// UpdateProduct частично обновляет товар владельца
// Новые изображения загружаются ДО сохранения документа; выброшенные
// retained-списком освобождаются только ПОСЛЕ успешного сохранения.
// Возвращает число неудавшихся освобождений (операция при этом успешна)
func (s *ProductService) UpdateProduct(ctx context.Context, id, ownerID string, req *entity.UpdateProductRequest) (*entity.Product, int, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, 0, s.mapRepoError(err)
	}
	if product.Owner != ownerID {
		return nil, 0, ErrForbidden
	}

	if err := s.validateUpdate(product, req); err != nil {
		return nil, 0, err
	}

	uploaded, err := s.reconciler.StageNewImages(ctx, req.Files)
	if err != nil {
		return nil, 0, err
	}

	final, dropped := s.reconciler.MergeImageLists(req.ExistingImages, product.Images, uploaded)

	applyPatch(product, req)
	product.Images = final
	product.SearchText = entity.BuildSearchText(product.Name, product.Description, product.Category)
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Replace(ctx, product); err != nil {
		// Сохранение не удалось: откатываем только свежезагруженное,
		// выброшенные изображения остаются у товара и не трогаются
		s.reconciler.ReleaseImages(ctx, storageIDs(uploaded))
		return nil, 0, s.mapRepoError(err)
	}

	failed := s.reconciler.ReleaseImages(ctx, storageIDs(dropped))

	s.invalidateNewArrivals(ctx)
	s.publishProductEvent(ctx, EventProductUpdated, product)

	logger.Info().
		Str("product_id", id).
		Int("uploaded", len(uploaded)).
		Int("dropped", len(dropped)).
		Int("release_failures", len(failed)).
		Msg("product updated")

	return product, len(failed), nil
}

// DeleteProduct удаляет товар владельца вместе с изображениями
// Изображения освобождаются ДО удаления документа; частичная неудача
// освобождения удаление не блокирует (неудачи записаны как orphaned)
func (s *ProductService) DeleteProduct(ctx context.Context, id, ownerID string) (int, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return 0, s.mapRepoError(err)
	}
	if product.Owner != ownerID {
		return 0, ErrForbidden
	}

	failed := s.reconciler.ReleaseImages(ctx, storageIDs(product.Images))

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return len(failed), s.mapRepoError(err)
	}

	metrics.ProductsDeleted.Inc()
	s.invalidateNewArrivals(ctx)
	s.publishProductEvent(ctx, EventProductDeleted, product)

	logger.Info().
		Str("product_id", id).
		Int("images", len(product.Images)).
		Int("release_failures", len(failed)).
		Msg("product deleted")

	return len(failed), nil
}

// findPage выполняет план и собирает страницу с метаданными пагинации
func (s *ProductService) findPage(ctx context.Context, plan *query.Plan) (*entity.ProductListResponse, error) {
	products, total, err := s.productRepo.Find(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return &entity.ProductListResponse{
		Products:   products,
		Pagination: query.BuildPagination(plan, total),
	}, nil
}

// validateCreate проверяет запрос полностью ДО любых загрузок
func (s *ProductService) validateCreate(req *entity.CreateProductRequest) error {
	if req.Name == "" {
		return newValidationError("name", "name is required")
	}
	if req.Description == "" {
		return newValidationError("description", "description is required")
	}
	if req.Price < 0 {
		return newValidationError("price", "price must be non-negative")
	}
	if req.Stock < 0 {
		return newValidationError("stock", "stock must be non-negative")
	}
	if err := s.tax.ValidateCategory(req.Category); err != nil {
		return newValidationError("category", err.Error())
	}
	if err := s.tax.ValidateSizes(req.Sizes); err != nil {
		return newValidationError("sizes", err.Error())
	}
	if err := validateDiscount(req.IsDiscounted, req.DiscountedPrice, req.Price); err != nil {
		return err
	}
	if len(req.Files) == 0 {
		return newValidationError("files", "at least one image is required")
	}
	return nil
}

// validateUpdate проверяет патч относительно текущего состояния товара
func (s *ProductService) validateUpdate(current *entity.Product, req *entity.UpdateProductRequest) error {
	if req.Name != nil && *req.Name == "" {
		return newValidationError("name", "name cannot be empty")
	}
	if req.Description != nil && *req.Description == "" {
		return newValidationError("description", "description cannot be empty")
	}
	if req.Price != nil && *req.Price < 0 {
		return newValidationError("price", "price must be non-negative")
	}
	if req.Stock != nil && *req.Stock < 0 {
		return newValidationError("stock", "stock must be non-negative")
	}
	if req.Category != nil {
		if err := s.tax.ValidateCategory(*req.Category); err != nil {
			return newValidationError("category", err.Error())
		}
	}
	if req.Sizes != nil {
		if err := s.tax.ValidateSizes(*req.Sizes); err != nil {
			return newValidationError("sizes", err.Error())
		}
	}

	// Итоговая согласованность скидки после применения патча
	isDiscounted := current.IsDiscounted
	if req.IsDiscounted != nil {
		isDiscounted = *req.IsDiscounted
	}
	discountedPrice := current.DiscountedPrice
	if req.DiscountedPrice != nil {
		discountedPrice = *req.DiscountedPrice
	}
	price := current.Price
	if req.Price != nil {
		price = *req.Price
	}
	if err := validateDiscount(isDiscounted, discountedPrice, price); err != nil {
		return err
	}

	// Каждая retained запись должна существовать в текущем списке изображений
	if req.ExistingImages != nil {
		known := make(map[string]bool, len(current.Images))
		for _, img := range current.Images {
			known[img.StorageID] = true
		}
		for _, img := range *req.ExistingImages {
			if !known[img.StorageID] {
				return newValidationError("existing_images",
					fmt.Sprintf("image %q does not belong to product", img.StorageID))
			}
		}
	}

	return nil
}

func validateDiscount(isDiscounted bool, discountedPrice, price float64) error {
	if discountedPrice < 0 {
		return newValidationError("discounted_price", "discounted price must be non-negative")
	}
	if !isDiscounted && discountedPrice != 0 {
		return newValidationError("discounted_price", "discounted price requires is_discounted")
	}
	if isDiscounted && discountedPrice > price {
		return newValidationError("discounted_price", "discounted price cannot exceed price")
	}
	return nil
}

// applyPatch применяет непустые поля патча к товару
func applyPatch(product *entity.Product, req *entity.UpdateProductRequest) {
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.IsDiscounted != nil {
		product.IsDiscounted = *req.IsDiscounted
	}
	if req.DiscountedPrice != nil {
		product.DiscountedPrice = *req.DiscountedPrice
	}
	if req.Colors != nil {
		product.Colors = *req.Colors
	}
	if req.Sizes != nil {
		product.Sizes = *req.Sizes
	}
	if req.IsNewArrival != nil {
		product.IsNewArrival = *req.IsNewArrival
	}
}

// mapRepoError переводит ошибки репозитория в ошибки сервисного уровня
func (s *ProductService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return newValidationError("id", "invalid product id")
	case errors.Is(err, repository.ErrProductNotFound):
		return ErrProductNotFound
	default:
		return err
	}
}

// invalidateNewArrivals сбрасывает кеш новинок после любой мутации (best-effort)
func (s *ProductService) invalidateNewArrivals(ctx context.Context) {
	if err := s.cache.InvalidateNewArrivals(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate new arrivals cache")
	}
}

// publishProductEvent отправляет событие в Kafka
// Ошибка отправки логируется и НЕ откатывает операцию
func (s *ProductService) publishProductEvent(ctx context.Context, eventType string, product *entity.Product) {
	event := entity.ProductEvent{
		EventType: eventType,
		ProductID: product.ID.Hex(),
		Name:      product.Name,
		Price:     product.Price,
		Category:  product.Category.Main,
		Timestamp: time.Now(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal product event")
		return
	}

	if err := s.kafkaProducer.PublishMessage(ctx, event.ProductID, value); err != nil {
		logger.Error().
			Err(err).
			Str("event_type", eventType).
			Str("product_id", event.ProductID).
			Msg("failed to publish product event")
	}
}
