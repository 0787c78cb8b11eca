package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

// itemRepositoryInMemory — in-memory реализация ItemRepository.
// Идентификаторы выдаются монотонно и не переиспользуются после удаления.
type itemRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[int64]domain.Item
	nextID int64
}

// NewItemRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewItemRepository() domain.ItemRepository {
	return &itemRepositoryInMemory{
		items: make(map[int64]domain.Item),
	}
}

// Create валидирует команду и сохраняет item с новым id.
func (r *itemRepositoryInMemory) Create(ctx context.Context, cmd domain.CreateItem) (domain.Item, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Item{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Item{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	item := domain.Item{
		ID:          r.nextID,
		Name:        cmd.Name,
		Description: copyString(cmd.Description),
	}
	r.items[item.ID] = item
	return cloneItem(item), nil
}

// Get возвращает item или ErrItemNotFound.
func (r *itemRepositoryInMemory) Get(ctx context.Context, id int64) (domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return domain.Item{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return cloneItem(item), nil
}

// List возвращает items по возрастанию id, что совпадает с порядком вставки.
func (r *itemRepositoryInMemory) List(ctx context.Context, page domain.Page) ([]domain.Item, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	ids := make([]int64, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]domain.Item, 0, len(ids))
	for i, id := range ids {
		if i < page.Offset {
			continue
		}
		if page.Limit > 0 && len(result) >= page.Limit {
			break
		}
		result = append(result, cloneItem(r.items[id]))
	}
	r.mu.RUnlock()

	return result, nil
}

// Update применяет patch к существующему item.
func (r *itemRepositoryInMemory) Update(ctx context.Context, id int64, patch domain.ItemPatch) (domain.Item, error) {
	if err := patch.Validate(); err != nil {
		return domain.Item{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Item{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	updated := patch.Apply(current)
	r.items[id] = updated
	return cloneItem(updated), nil
}

// Delete удаляет item; повторный вызов для того же id вернёт ErrItemNotFound.
func (r *itemRepositoryInMemory) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

func cloneItem(item domain.Item) domain.Item {
	item.Description = copyString(item.Description)
	return item
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

var _ domain.ItemRepository = (*itemRepositoryInMemory)(nil)
