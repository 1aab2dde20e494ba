package entity

import (
	"fmt"
	"sort"
	"sync"
)

// Entities реестр живых сущностей по индексу
type Entities struct {
	entities map[int32]*Entity
	mu       sync.RWMutex
}

// NewEntities создаёт пустой реестр
func NewEntities() *Entities {
	return &Entities{
		entities: make(map[int32]*Entity),
	}
}

// Put добавляет или заменяет сущность с тем же индексом
func (es *Entities) Put(e *Entity) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.entities[e.index] = e
}

// Remove удаляет сущность. Возвращает false, если её не было.
func (es *Entities) Remove(index int32) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	if _, exists := es.entities[index]; !exists {
		return false
	}
	delete(es.entities, index)
	return true
}

// ByIndex возвращает сущность по индексу
func (es *Entities) ByIndex(index int32) (*Entity, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	if e, ok := es.entities[index]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: индекс %d", ErrEntityNotFound, index)
}

// ByHandle возвращает сущность по handle, проверяя серийный номер
func (es *Entities) ByHandle(handle uint32) (*Entity, error) {
	index := int32(handle & (1<<indexBits - 1))
	e, err := es.ByIndex(index)
	if err != nil {
		return nil, err
	}
	if e.Handle() != handle {
		return nil, fmt.Errorf("%w: handle %d устарел", ErrEntityNotFound, handle)
	}
	return e, nil
}

// ByClassName возвращает сущность данного класса с наименьшим индексом
func (es *Entities) ByClassName(name string) (*Entity, error) {
	for _, e := range es.All() {
		if e.class.name == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: класс %s", ErrEntityNotFound, name)
}

// Len количество сущностей
func (es *Entities) Len() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return len(es.entities)
}

// All возвращает сущности в порядке индекса
func (es *Entities) All() []*Entity {
	es.mu.RLock()
	out := make([]*Entity, 0, len(es.entities))
	for _, e := range es.entities {
		out = append(out, e)
	}
	es.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}
