package service

import (
	"errors"
	"fmt"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrProductNotFound = errors.New("product not found")
	ErrForbidden       = errors.New("forbidden: caller does not own this product")
	ErrMediaUpload     = errors.New("media upload failed")
)

// ValidationError - ошибка валидации входных данных
// Отклоняется до любого внешнего side effect (загрузок, записей в БД)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
