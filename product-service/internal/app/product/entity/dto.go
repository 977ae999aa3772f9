package entity

// CreateProductRequest - типизированный запрос на создание товара
// Собирается на границе HTTP из multipart формы: строковые JSON подполя
// (category, colors, sizes) уже разобраны; ошибка разбора - это 400 на границе
type CreateProductRequest struct {
	Name            string   `validate:"required,min=2,max=200"`
	Description     string   `validate:"required,min=2,max=2000"`
	Price           float64  `validate:"gte=0"`
	Category        Category `validate:"required"`
	Stock           int      `validate:"gte=0"`
	IsDiscounted    bool
	DiscountedPrice float64 `validate:"gte=0"`
	Colors          []Color
	Sizes           []Size
	IsNewArrival    bool
	Files           []UploadFile `validate:"required,min=1"`
}

// UpdateProductRequest - частичное обновление товара
// nil поле означает "не менять"; для ExistingImages различие nil/пустой критично:
// nil - сохранить текущий список изображений, пустой срез - удалить все
type UpdateProductRequest struct {
	Name            *string `validate:"omitempty,min=2,max=200"`
	Description     *string `validate:"omitempty,min=2,max=2000"`
	Price           *float64 `validate:"omitempty,gte=0"`
	Category        *Category
	Stock           *int `validate:"omitempty,gte=0"`
	IsDiscounted    *bool
	DiscountedPrice *float64 `validate:"omitempty,gte=0"`
	Colors          *[]Color
	Sizes           *[]Size
	IsNewArrival    *bool
	ExistingImages  *[]Image
	Files           []UploadFile
}

// ListParams - сырые параметры листинга до разрешения в query plan
type ListParams struct {
	Category  string
	MinPrice  *float64
	MaxPrice  *float64
	Sizes     []string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// Pagination - точные метаданные пагинации
// TotalPages считается от независимого count, а не от размера страницы
type Pagination struct {
	CurrentPage   int   `json:"current_page"`
	TotalPages    int   `json:"total_pages"`
	TotalProducts int64 `json:"total_products"`
	HasNext       bool  `json:"has_next"`
	HasPrev       bool  `json:"has_prev"`
}

// ProductListResponse - ответ со страницей товаров
type ProductListResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// MutationResponse - результат мутации товара
// ReleaseFailures > 0 означает, что часть объектов media storage не удалилась;
// операция при этом успешна, записи об orphaned объектах сделаны
type MutationResponse struct {
	Message         string   `json:"message"`
	Data            *Product `json:"data,omitempty"`
	ReleaseFailures int      `json:"release_failures,omitempty"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
