package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation — входные данные не прошли проверку (400 на HTTP-уровне).
	ErrValidation = errors.New("validation failed")
	// ErrItemNotFound возвращается, если item с указанным id отсутствует.
	ErrItemNotFound = errors.New("item not found")
	// ErrStore — ошибка хранилища (нарушение ограничений, сбой запроса).
	ErrStore = errors.New("store error")
	// ErrConnection — хранилище недоступно или соединение потеряно.
	ErrConnection = errors.New("store connection error")
	// ErrPoolExhausted — все соединения пула заняты дольше acquire timeout.
	// Является частным случаем ErrConnection.
	ErrPoolExhausted = fmt.Errorf("%w: connection pool exhausted", ErrConnection)
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ValidationError описывает проблему с конкретным полем входных данных.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError создаёт ошибку валидации поля.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

// Is позволяет матчить ValidationError через errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsNotFound проверяет, означает ли ошибка отсутствие item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
