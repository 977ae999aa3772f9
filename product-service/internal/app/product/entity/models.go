package entity

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category - двухуровневая категория товара
// Инвариант: Sub должен принадлежать списку подкатегорий Main (проверяется в taxonomy)
type Category struct {
	Main string `json:"main" bson:"main"`
	Sub  string `json:"sub" bson:"sub"`
}

// Size - размер товара, пара из канонического перечисления (например {"Small", "S"})
type Size struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// Color - цвет товара, словарь не ограничен
type Color struct {
	Name string `json:"name" bson:"name"`
	Hex  string `json:"hex" bson:"hex"`
}

// Image - ссылка на изображение в media storage
// StorageID должен указывать на живой объект всё время жизни товара
type Image struct {
	StorageID string `json:"storage_id" bson:"storage_id"`
	URL       string `json:"url" bson:"url"`
}

// Product представляет товар в MongoDB
type Product struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Description     string             `json:"description" bson:"description"`
	Price           float64            `json:"price" bson:"price"`
	IsDiscounted    bool               `json:"is_discounted" bson:"is_discounted"`
	DiscountedPrice float64            `json:"discounted_price" bson:"discounted_price"`
	Category        Category           `json:"category" bson:"category"`
	Sizes           []Size             `json:"sizes" bson:"sizes"`
	Colors          []Color            `json:"colors" bson:"colors"`
	Stock           int                `json:"stock" bson:"stock"`
	Images          []Image            `json:"images" bson:"images"`
	IsNewArrival    bool               `json:"is_new_arrival" bson:"is_new_arrival"`
	Owner           string             `json:"owner" bson:"owner"` // UUID пользователя из Auth Service
	SearchText      string             `json:"-" bson:"search_text"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// BuildSearchText вычисляет производное поле search_text из имени, описания и категории
// Вызывается при каждой записи товара; поле никогда не задаётся напрямую
func BuildSearchText(name, description string, category Category) string {
	return strings.ToLower(strings.Join(
		[]string{name, description, category.Main, category.Sub}, " ",
	))
}

// UploadFile - файл изображения, прочитанный на границе HTTP до передачи в core
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ProductEvent представляет событие изменения товара для Kafka
type ProductEvent struct {
	EventType string    `json:"event_type"` // PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DELETED
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Category  string    `json:"category"` // main категория
	Timestamp time.Time `json:"timestamp"`
}

// OrphanedMedia - запись об объекте media storage, который не удалось удалить
// Фоновый sweeper периодически повторяет удаление по этим записям
type OrphanedMedia struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StorageID  string             `json:"storage_id" bson:"storage_id"`
	RecordedAt time.Time          `json:"recorded_at" bson:"recorded_at"`
}
