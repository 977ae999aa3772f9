package service

import (
	"context"

	"threadberry/product-service/internal/app/product/entity"
)

// ProductServiceInterface определяет контракт сервисного слоя
// Используется handler'ами для dependency injection и упрощения тестирования
type ProductServiceInterface interface {
	CreateProduct(ctx context.Context, ownerID string, req *entity.CreateProductRequest) (*entity.Product, error)
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	ListProducts(ctx context.Context, params entity.ListParams) (*entity.ProductListResponse, error)
	GetProductsByCategory(ctx context.Context, name string, params entity.ListParams) (*entity.ProductListResponse, error)
	SearchProducts(ctx context.Context, term string) (*entity.ProductListResponse, error)
	GetOurProducts(ctx context.Context, params entity.ListParams) (*entity.ProductListResponse, error)
	GetNewArrivals(ctx context.Context) ([]entity.Product, error)
	GetMyProducts(ctx context.Context, ownerID string) ([]entity.Product, error)
	GetRelatedProducts(ctx context.Context, id string, page, limit int) (*entity.ProductListResponse, error)
	UpdateProduct(ctx context.Context, id, ownerID string, req *entity.UpdateProductRequest) (*entity.Product, int, error)
	DeleteProduct(ctx context.Context, id, ownerID string) (int, error)
}
