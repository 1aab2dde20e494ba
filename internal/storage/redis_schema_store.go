package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/source2-demo/internal/logging"
	"github.com/annel0/source2-demo/internal/schema"
)

// RedisSchemaStore хранит схемы в Redis, чтобы несколько декодеров делили одну копию
type RedisSchemaStore struct {
	client    *redis.Client
	codec     *codec
	logger    *logging.Logger
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 - без ограничения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "demo:",
	}
}

// NewRedisSchemaStore подключается к Redis и проверяет соединение
func NewRedisSchemaStore(ctx context.Context, config *RedisConfig, logger *logging.Logger) (*RedisSchemaStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if logger == nil {
		logger = logging.GetStorageLogger()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c, err := newCodec()
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("хранилище схем подключено к Redis %s", config.Addr)
	return &RedisSchemaStore{
		client:    client,
		codec:     c,
		logger:    logger,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

// buildsKey множество номеров сохранённых сборок
func (rs *RedisSchemaStore) buildsKey() string {
	return rs.keyPrefix + "schema:builds"
}

// Save сохраняет документ и регистрирует сборку
func (rs *RedisSchemaStore) Save(ctx context.Context, doc *schema.Document) error {
	if err := validateDocument(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := rs.codec.encode(doc)
	if err != nil {
		return err
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, schemaKey(rs.keyPrefix, doc.Build), payload, rs.ttl)
	pipe.SAdd(ctx, rs.buildsKey(), doc.Build)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save schema: %w", err)
	}

	rs.logger.Debug("схема build %d сохранена в Redis (%d байт)", doc.Build, len(payload))
	return nil
}

// Load загружает документ
func (rs *RedisSchemaStore) Load(ctx context.Context, build uint32) (*schema.Document, bool, error) {
	payload, err := rs.client.Get(ctx, schemaKey(rs.keyPrefix, build)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get schema: %w", err)
	}

	doc, err := rs.codec.decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("схема build %d: %w", build, err)
	}
	return doc, true, nil
}

// Delete удаляет документ
func (rs *RedisSchemaStore) Delete(ctx context.Context, build uint32) error {
	removed, err := rs.client.Del(ctx, schemaKey(rs.keyPrefix, build)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete schema: %w", err)
	}
	if err := rs.client.SRem(ctx, rs.buildsKey(), build).Err(); err != nil {
		return fmt.Errorf("failed to delete schema: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: build %d", ErrSchemaNotFound, build)
	}
	return nil
}

// Builds перечисляет сборки. Записи с истёкшим TTL не возвращаются.
func (rs *RedisSchemaStore) Builds(ctx context.Context) ([]uint32, error) {
	members, err := rs.client.SMembers(ctx, rs.buildsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}

	builds := make([]uint32, 0, len(members))
	for _, m := range members {
		build, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			rs.logger.Warn("пропущен номер сборки %q: %v", m, err)
			continue
		}
		exists, err := rs.client.Exists(ctx, schemaKey(rs.keyPrefix, uint32(build))).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list schemas: %w", err)
		}
		if exists == 0 {
			rs.client.SRem(ctx, rs.buildsKey(), m)
			continue
		}
		builds = append(builds, uint32(build))
	}
	return sortBuilds(builds), nil
}

// Close закрывает соединение
func (rs *RedisSchemaStore) Close() error {
	rs.codec.close()
	return rs.client.Close()
}
