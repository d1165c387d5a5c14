package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrInvalidCredentials неверный email или пароль
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailAlreadyRegistered email уже зарегистрирован
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden ресурс принадлежит другому пользователю
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrWebhookValidationFailed не удалось проверить подпись вебхука
	ErrWebhookValidationFailed = errors.New("webhook validation failed")
)

// ProviderError представляет ошибку взаимодействия с платежным провайдером
type ProviderError struct {
	Operation   string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error during %s: %v", e.Operation, e.OriginalErr)
}

// Unwrap возвращает оригинальную ошибку
func (e *ProviderError) Unwrap() error {
	return e.OriginalErr
}

// NewProviderError создает новую ошибку провайдера
func NewProviderError(operation string, err error) *ProviderError {
	return &ProviderError{
		Operation:   operation,
		OriginalErr: err,
	}
}
