package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ProductHandler struct {
	productService service.ProductServiceInterface
	validator      *validator.Validate
}

func NewProductHandler(productService service.ProductServiceInterface) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validator:      validator.New(),
	}
}

// CreateProduct обрабатывает POST /products
// Тело - multipart форма: скалярные поля плюс JSON подполя (category, colors,
// sizes) плюс файлы изображений в поле files
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid multipart form"})
		return
	}

	var req entity.CreateProductRequest
	req.Name = formValue(form, "name")
	req.Description = formValue(form, "description")

	if req.Price, err = formFloat(form, "price"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid price"})
		return
	}
	if req.Stock, err = formInt(form, "stock"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid stock"})
		return
	}
	if req.IsDiscounted, err = formBool(form, "is_discounted"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid is_discounted"})
		return
	}
	if req.DiscountedPrice, err = formFloat(form, "discounted_price"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid discounted_price"})
		return
	}
	if req.IsNewArrival, err = formBool(form, "is_new_arrival"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid is_new_arrival"})
		return
	}

	// JSON подполя приходят строками; ошибка разбора - это 400, не 500
	if err := formJSON(form, "category", &req.Category); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid category JSON"})
		return
	}
	if err := formJSON(form, "colors", &req.Colors); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid colors JSON"})
		return
	}
	if err := formJSON(form, "sizes", &req.Sizes); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid sizes JSON"})
		return
	}

	if req.Files, err = readUploadFiles(form.File["files"]); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Failed to read uploaded files"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), ownerID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entity.MutationResponse{
		Message: "Product created successfully",
		Data:    product,
	})
}

// GetProduct обрабатывает GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// ListProducts обрабатывает GET /products - каталог с фильтрами
func (h *ProductHandler) ListProducts(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.productService.ListProducts(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProductsByCategory обрабатывает GET /products/category/:category
func (h *ProductHandler) GetProductsByCategory(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.productService.GetProductsByCategory(c.Request.Context(), c.Param("category"), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchProducts обрабатывает GET /products/search?q=
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	result, err := h.productService.SearchProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOurProducts обрабатывает GET /products/our-products
func (h *ProductHandler) GetOurProducts(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.productService.GetOurProducts(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetNewArrivals обрабатывает GET /products/new-arrivals
func (h *ProductHandler) GetNewArrivals(c *gin.Context) {
	products, err := h.productService.GetNewArrivals(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "New arrivals",
		Data:    products,
	})
}

// GetMyProducts обрабатывает GET /products/my-products (только с токеном)
func (h *ProductHandler) GetMyProducts(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	products, err := h.productService.GetMyProducts(c.Request.Context(), ownerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "My products",
		Data:    products,
	})
}

// GetRelatedProducts обрабатывает GET /products/related/:id
func (h *ProductHandler) GetRelatedProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.productService.GetRelatedProducts(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateProduct обрабатывает PUT /products/:id
// Все поля формы опциональны; различие "поле не передано" и "поле пустое"
// критично для existing_images
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid multipart form"})
		return
	}

	var req entity.UpdateProductRequest
	req.Name = formValueOptional(form, "name")
	req.Description = formValueOptional(form, "description")

	if req.Price, err = formFloatOptional(form, "price"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid price"})
		return
	}
	if req.Stock, err = formIntOptional(form, "stock"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid stock"})
		return
	}
	if req.IsDiscounted, err = formBoolOptional(form, "is_discounted"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid is_discounted"})
		return
	}
	if req.DiscountedPrice, err = formFloatOptional(form, "discounted_price"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid discounted_price"})
		return
	}
	if req.IsNewArrival, err = formBoolOptional(form, "is_new_arrival"); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid is_new_arrival"})
		return
	}

	if hasFormValue(form, "category") {
		var category entity.Category
		if err := formJSON(form, "category", &category); err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid category JSON"})
			return
		}
		req.Category = &category
	}
	if hasFormValue(form, "colors") {
		var colors []entity.Color
		if err := formJSON(form, "colors", &colors); err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid colors JSON"})
			return
		}
		req.Colors = &colors
	}
	if hasFormValue(form, "sizes") {
		var sizes []entity.Size
		if err := formJSON(form, "sizes", &sizes); err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid sizes JSON"})
			return
		}
		req.Sizes = &sizes
	}

	// existing_images авторитетен только когда поле передано:
	// отсутствие - сохранить текущие изображения, "[]" - удалить все
	if hasFormValue(form, "existing_images") {
		retained := []entity.Image{}
		if err := formJSON(form, "existing_images", &retained); err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid existing_images JSON"})
			return
		}
		req.ExistingImages = &retained
	}

	if req.Files, err = readUploadFiles(form.File["files"]); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Failed to read uploaded files"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	product, releaseFailures, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), ownerID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.MutationResponse{
		Message:         "Product updated successfully",
		Data:            product,
		ReleaseFailures: releaseFailures,
	})
}

// DeleteProduct обрабатывает DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	releaseFailures, err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.MutationResponse{
		Message:         "Product deleted successfully",
		ReleaseFailures: releaseFailures,
	})
}

// handleServiceError переводит ошибки сервисного слоя в HTTP статусы
func (h *ProductHandler) handleServiceError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: verr.Error()})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "Access denied"})
	case errors.Is(err, service.ErrMediaUpload):
		c.JSON(http.StatusBadGateway, entity.ErrorResponse{Error: "Media storage unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Internal server error"})
	}
}

// currentUserID извлекает user_id, положенный auth middleware
func currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		return "", false
	}
	userIDStr, ok := userID.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Invalid user ID"})
		return "", false
	}
	return userIDStr, true
}

// parseListParams разбирает общие query параметры листинга
func parseListParams(c *gin.Context) (entity.ListParams, error) {
	params := entity.ListParams{
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	params.Page, _ = strconv.Atoi(c.Query("page"))
	params.Limit, _ = strconv.Atoi(c.Query("limit"))

	if v := c.Query("min_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, errors.New("invalid min_price")
		}
		params.MinPrice = &f
	}
	if v := c.Query("max_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, errors.New("invalid max_price")
		}
		params.MaxPrice = &f
	}
	if v := c.Query("sizes"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				params.Sizes = append(params.Sizes, s)
			}
		}
	}

	return params, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func hasFormValue(form *multipart.Form, key string) bool {
	return len(form.Value[key]) > 0
}

func formValueOptional(form *multipart.Form, key string) *string {
	if !hasFormValue(form, key) {
		return nil
	}
	v := formValue(form, key)
	return &v
}

func formFloat(form *multipart.Form, key string) (float64, error) {
	v := formValue(form, key)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

func formFloatOptional(form *multipart.Form, key string) (*float64, error) {
	if !hasFormValue(form, key) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(formValue(form, key), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func formInt(form *multipart.Form, key string) (int, error) {
	v := formValue(form, key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func formIntOptional(form *multipart.Form, key string) (*int, error) {
	if !hasFormValue(form, key) {
		return nil, nil
	}
	i, err := strconv.Atoi(formValue(form, key))
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func formBool(form *multipart.Form, key string) (bool, error) {
	v := formValue(form, key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func formBoolOptional(form *multipart.Form, key string) (*bool, error) {
	if !hasFormValue(form, key) {
		return nil, nil
	}
	b, err := strconv.ParseBool(formValue(form, key))
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func formJSON(form *multipart.Form, key string, dst interface{}) error {
	v := formValue(form, key)
	if v == "" {
		return nil
	}
	return json.Unmarshal([]byte(v), dst)
}

// readUploadFiles читает файлы формы в память для передачи в core
func readUploadFiles(headers []*multipart.FileHeader) ([]entity.UploadFile, error) {
	if len(headers) == 0 {
		return nil, nil
	}

	files := make([]entity.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, entity.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func formatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}
