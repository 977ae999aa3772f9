package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) CreateProduct(ctx context.Context, ownerID string, req *entity.CreateProductRequest) (*entity.Product, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductService) ListProducts(ctx context.Context, params entity.ListParams) (*entity.ProductListResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductListResponse), args.Error(1)
}

func (m *MockProductService) GetProductsByCategory(ctx context.Context, name string, params entity.ListParams) (*entity.ProductListResponse, error) {
	args := m.Called(ctx, name, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductListResponse), args.Error(1)
}

func (m *MockProductService) SearchProducts(ctx context.Context, term string) (*entity.ProductListResponse, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductListResponse), args.Error(1)
}

func (m *MockProductService) GetOurProducts(ctx context.Context, params entity.ListParams) (*entity.ProductListResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductListResponse), args.Error(1)
}

func (m *MockProductService) GetNewArrivals(ctx context.Context) ([]entity.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockProductService) GetMyProducts(ctx context.Context, ownerID string) ([]entity.Product, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockProductService) GetRelatedProducts(ctx context.Context, id string, page, limit int) (*entity.ProductListResponse, error) {
	args := m.Called(ctx, id, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductListResponse), args.Error(1)
}

func (m *MockProductService) UpdateProduct(ctx context.Context, id, ownerID string, req *entity.UpdateProductRequest) (*entity.Product, int, error) {
	args := m.Called(ctx, id, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).(*entity.Product), args.Int(1), args.Error(2)
}

func (m *MockProductService) DeleteProduct(ctx context.Context, id, ownerID string) (int, error) {
	args := m.Called(ctx, id, ownerID)
	return args.Int(0), args.Error(1)
}

// setupTestRouter собирает роутер с подставленным user_id вместо JWT middleware
func setupTestRouter(mockService *MockProductService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		})
	}

	h := NewProductHandler(mockService)
	router.GET("/products", h.ListProducts)
	router.GET("/products/search", h.SearchProducts)
	router.GET("/products/new-arrivals", h.GetNewArrivals)
	router.GET("/products/category/:category", h.GetProductsByCategory)
	router.GET("/products/:id", h.GetProduct)
	router.POST("/products", h.CreateProduct)
	router.PUT("/products/:id", h.UpdateProduct)
	router.DELETE("/products/:id", h.DeleteProduct)
	return router
}

func TestGetProduct_NotFoundMapsTo404(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "")
	id := primitive.NewObjectID().Hex()

	mockService.On("GetProduct", mock.Anything, id).Return(nil, service.ErrProductNotFound)

	req, _ := http.NewRequest(http.MethodGet, "/products/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProduct_InvalidIDMapsTo400(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "")

	mockService.On("GetProduct", mock.Anything, "bad-id").
		Return(nil, &service.ValidationError{Field: "id", Message: "invalid product id"})

	req, _ := http.NewRequest(http.MethodGet, "/products/bad-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListProducts_ParsesQueryParams(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "")

	mockService.On("ListProducts", mock.Anything, mock.MatchedBy(func(p entity.ListParams) bool {
		return p.Category == "TOPS" &&
			p.MinPrice != nil && *p.MinPrice == 10 &&
			p.MaxPrice != nil && *p.MaxPrice == 50 &&
			len(p.Sizes) == 2 && p.Page == 2
	})).Return(&entity.ProductListResponse{Products: []entity.Product{}}, nil)

	req, _ := http.NewRequest(http.MethodGet,
		"/products?category=TOPS&min_price=10&max_price=50&sizes=S,M&page=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListProducts_InvalidPriceRejected(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "")

	req, _ := http.NewRequest(http.MethodGet, "/products?min_price=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "ListProducts")
}

func TestCreateProduct_Unauthorized(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "")

	req, _ := http.NewRequest(http.MethodPost, "/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateProduct_MultipartSuccess(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "owner-1")

	product := &entity.Product{ID: primitive.NewObjectID(), Name: "Classic Tee"}
	mockService.On("CreateProduct", mock.Anything, "owner-1",
		mock.MatchedBy(func(req *entity.CreateProductRequest) bool {
			return req.Name == "Classic Tee" &&
				req.Category.Main == "TOPS" &&
				len(req.Files) == 1 &&
				req.Files[0].Name == "front.jpg"
		})).Return(product, nil)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("name", "Classic Tee")
	form.WriteField("description", "Plain cotton t-shirt")
	form.WriteField("price", "19.99")
	form.WriteField("stock", "10")
	form.WriteField("category", `{"main":"TOPS","sub":"TSHIRT"}`)
	form.WriteField("sizes", `[{"name":"Small","value":"S"}]`)
	part, _ := form.CreateFormFile("files", "front.jpg")
	part.Write([]byte("jpeg-bytes"))
	form.Close()

	req, _ := http.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp entity.MutationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Product created successfully", resp.Message)
}

func TestCreateProduct_MalformedCategoryJSON(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "owner-1")

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("name", "Classic Tee")
	form.WriteField("category", "{not json")
	form.Close()

	req, _ := http.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateProduct")
}

func TestCreateProduct_MediaFailureMapsTo502(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "owner-1")

	mockService.On("CreateProduct", mock.Anything, "owner-1", mock.Anything).
		Return(nil, service.ErrMediaUpload)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("name", "Classic Tee")
	form.WriteField("description", "Plain cotton t-shirt")
	form.WriteField("category", `{"main":"TOPS","sub":"TSHIRT"}`)
	part, _ := form.CreateFormFile("files", "front.jpg")
	part.Write([]byte("jpeg-bytes"))
	form.Close()

	req, _ := http.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUpdateProduct_ForbiddenMapsTo403(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "intruder")
	id := primitive.NewObjectID().Hex()

	mockService.On("UpdateProduct", mock.Anything, id, "intruder", mock.Anything).
		Return(nil, 0, service.ErrForbidden)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("name", "Stolen Name")
	form.Close()

	req, _ := http.NewRequest(http.MethodPut, "/products/"+id, body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateProduct_ExistingImagesPresenceDistinguished(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "owner-1")
	id := primitive.NewObjectID().Hex()

	// Поле передано как "[]" - указатель не nil, пустой список
	mockService.On("UpdateProduct", mock.Anything, id, "owner-1",
		mock.MatchedBy(func(req *entity.UpdateProductRequest) bool {
			return req.ExistingImages != nil && len(*req.ExistingImages) == 0
		})).Return(&entity.Product{}, 0, nil)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("existing_images", "[]")
	form.Close()

	req, _ := http.NewRequest(http.MethodPut, "/products/"+id, body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestDeleteProduct_ReportsReleaseFailures(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "owner-1")
	id := primitive.NewObjectID().Hex()

	mockService.On("DeleteProduct", mock.Anything, id, "owner-1").Return(2, nil)

	req, _ := http.NewRequest(http.MethodDelete, "/products/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp entity.MutationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ReleaseFailures)
}

func TestSearchProducts_PassesQuery(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "")

	mockService.On("SearchProducts", mock.Anything, "hoodie").
		Return(&entity.ProductListResponse{}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/products/search?q=hoodie", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetNewArrivals_Success(t *testing.T) {
	mockService := new(MockProductService)
	router := setupTestRouter(mockService, "")

	mockService.On("GetNewArrivals", mock.Anything).
		Return([]entity.Product{{Name: "Fresh Hoodie"}}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/products/new-arrivals", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
