package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/source2-demo/internal/schema"
)

// MemorySchemaStore реализует SchemaStore в памяти.
// Используется, когда путь к BadgerDB не задан, и в тестах.
// Документы хранятся в сжатом виде, как и в остальных хранилищах.
type MemorySchemaStore struct {
	mu    sync.RWMutex
	data  map[uint32][]byte
	codec *codec
}

// NewMemorySchemaStore создаёт хранилище в памяти
func NewMemorySchemaStore() (*MemorySchemaStore, error) {
	c, err := newCodec()
	if err != nil {
		return nil, err
	}
	return &MemorySchemaStore{
		data:  make(map[uint32][]byte),
		codec: c,
	}, nil
}

// Save сохраняет документ
func (r *MemorySchemaStore) Save(ctx context.Context, doc *schema.Document) error {
	if err := validateDocument(doc); err != nil {
		return err
	}

	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	payload, err := r.codec.encode(doc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[doc.Build] = payload
	return nil
}

// Load загружает документ
func (r *MemorySchemaStore) Load(ctx context.Context, build uint32) (*schema.Document, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	payload, exists := r.data[build]
	r.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	doc, err := r.codec.decode(payload)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Delete удаляет документ
func (r *MemorySchemaStore) Delete(ctx context.Context, build uint32) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[build]; !exists {
		return fmt.Errorf("%w: build %d", ErrSchemaNotFound, build)
	}

	delete(r.data, build)
	return nil
}

// Builds перечисляет сборки
func (r *MemorySchemaStore) Builds(ctx context.Context) ([]uint32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	builds := make([]uint32, 0, len(r.data))
	for build := range r.data {
		builds = append(builds, build)
	}
	return sortBuilds(builds), nil
}

// Close освобождает компрессор
func (r *MemorySchemaStore) Close() error {
	r.codec.close()
	return nil
}
