package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/source2-demo/internal/logging"
	"github.com/annel0/source2-demo/internal/schema"
)

const badgerKeyPrefix = "schema:"

// BadgerSchemaStore хранилище схем на BadgerDB
type BadgerSchemaStore struct {
	db      *badger.DB
	dbPath  string
	codec   *codec
	logger  *logging.Logger
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerSchemaStore открывает хранилище в dataPath/schemas
func NewBadgerSchemaStore(dataPath string, logger *logging.Logger) (*BadgerSchemaStore, error) {
	if logger == nil {
		logger = logging.GetStorageLogger()
	}

	dbPath := filepath.Join(dataPath, "schemas")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	c, err := newCodec()
	if err != nil {
		return nil, err
	}

	db, err := badger.Open(opts)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logger.Info("хранилище схем открыто: %s", dbPath)
	return &BadgerSchemaStore{
		db:      db,
		dbPath:  dbPath,
		codec:   c,
		logger:  logger,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (bs *BadgerSchemaStore) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}

	bs.isReady = false
	bs.codec.close()
	return bs.db.Close()
}

// Save сохраняет документ схемы
func (bs *BadgerSchemaStore) Save(ctx context.Context, doc *schema.Document) error {
	if err := validateDocument(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrStoreClosed
	}

	payload, err := bs.codec.encode(doc)
	if err != nil {
		return err
	}

	key := schemaKey("", doc.Build)
	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), payload)
	})
	if err != nil {
		return fmt.Errorf("ошибка записи в BadgerDB: %w", err)
	}

	bs.logger.Debug("схема build %d сохранена (%d байт)", doc.Build, len(payload))
	return nil
}

// Load загружает документ схемы
func (bs *BadgerSchemaStore) Load(ctx context.Context, build uint32) (*schema.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, false, ErrStoreClosed
	}

	var payload []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey("", build)))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	doc, err := bs.codec.decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("схема build %d: %w", build, err)
	}
	return doc, true, nil
}

// Delete удаляет документ схемы
func (bs *BadgerSchemaStore) Delete(ctx context.Context, build uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrStoreClosed
	}

	key := []byte(schemaKey("", build))
	err := bs.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: build %d", ErrSchemaNotFound, build)
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// Builds перечисляет сохранённые сборки
func (bs *BadgerSchemaStore) Builds(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, ErrStoreClosed
	}

	var builds []uint32
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			build, err := strconv.ParseUint(strings.TrimPrefix(key, badgerKeyPrefix), 10, 32)
			if err != nil {
				bs.logger.Warn("пропущен ключ %q: %v", key, err)
				continue
			}
			builds = append(builds, uint32(build))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return sortBuilds(builds), nil
}
