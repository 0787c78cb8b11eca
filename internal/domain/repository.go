package domain

import "context"

// ItemRepository описывает требования к хранилищу items.
type ItemRepository interface {
	// Create проверяет команду и сохраняет новый item, возвращая его с присвоенным id.
	Create(ctx context.Context, cmd CreateItem) (Item, error)
	// Get возвращает item по идентификатору или ErrItemNotFound.
	Get(ctx context.Context, id int64) (Item, error)
	// List возвращает items в порядке вставки; пустой список, если items нет.
	List(ctx context.Context, page Page) ([]Item, error)
	// Update применяет частичные изменения или возвращает ErrItemNotFound.
	Update(ctx context.Context, id int64, patch ItemPatch) (Item, error)
	// Delete удаляет item. Повторное удаление возвращает ErrItemNotFound.
	Delete(ctx context.Context, id int64) error
}
