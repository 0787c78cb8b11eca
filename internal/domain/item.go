package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxNameLength ограничивает длину имени item.
const MaxNameLength = 255

// Item — единственная управляемая сущность сервиса.
type Item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// CreateItem — команда создания item.
type CreateItem struct {
	Name        string
	Description *string
}

// Validate проверяет команду создания до обращения к хранилищу.
func (c CreateItem) Validate() error {
	return validateName(c.Name)
}

// ItemPatch — частичное обновление item.
// Nil-поля не меняются. ClearDescription обнуляет описание.
type ItemPatch struct {
	Name             *string
	Description      *string
	ClearDescription bool
}

// Validate проверяет структуру частичного обновления.
func (p ItemPatch) Validate() error {
	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return err
		}
	}
	if p.ClearDescription && p.Description != nil {
		return NewValidationError("description", "cannot be set and cleared at the same time")
	}
	return nil
}

// IsEmpty сообщает, что patch ничего не меняет.
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && !p.ClearDescription
}

// Apply возвращает копию item с применённым patch.
func (p ItemPatch) Apply(item Item) Item {
	if p.Name != nil {
		item.Name = *p.Name
	}
	switch {
	case p.ClearDescription:
		item.Description = nil
	case p.Description != nil:
		description := *p.Description
		item.Description = &description
	}
	return item
}

// Page ограничивает выборку списка. Limit == 0 означает "без ограничения".
type Page struct {
	Offset int
	Limit  int
}

// Validate проверяет параметры пагинации.
func (p Page) Validate() error {
	if p.Offset < 0 {
		return NewValidationError("skip", "must be non-negative")
	}
	if p.Limit < 0 {
		return NewValidationError("limit", "must be non-negative")
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name", "is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return NewValidationError("name", "is too long")
	}
	return nil
}

// StringPtr возвращает указатель на копию строки.
func StringPtr(s string) *string {
	return &s
}
