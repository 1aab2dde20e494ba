package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/source2-demo/internal/schema"
)

// Ошибки хранилищ схем
var (
	ErrStoreClosed    = errors.New("хранилище не готово")
	ErrSchemaNotFound = errors.New("схема не найдена")
)

// SchemaStore хранит описания схем по номеру сборки игры.
// Хранятся только описания сериализаторов, не декодированные данные сущностей.
type SchemaStore interface {
	// Save сохраняет или заменяет документ сборки doc.Build
	Save(ctx context.Context, doc *schema.Document) error

	// Load загружает документ. found == false, если сборки нет.
	Load(ctx context.Context, build uint32) (doc *schema.Document, found bool, err error)

	// Delete удаляет документ сборки
	Delete(ctx context.Context, build uint32) error

	// Builds возвращает сохранённые номера сборок по возрастанию
	Builds(ctx context.Context) ([]uint32, error)

	Close() error
}

// schemaKey ключ документа сборки
func schemaKey(prefix string, build uint32) string {
	return fmt.Sprintf("%sschema:%d", prefix, build)
}

// validateDocument общая проверка перед сохранением
func validateDocument(doc *schema.Document) error {
	if doc == nil {
		return fmt.Errorf("документ схемы не задан")
	}
	if doc.Build == 0 {
		return fmt.Errorf("недействительный номер сборки: %d", doc.Build)
	}
	return nil
}

// codec сериализует документ в JSON и сжимает zstd
type codec struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

func newCodec() (*codec, error) {
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать компрессор: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		compressor.Close()
		return nil, fmt.Errorf("не удалось создать декомпрессор: %w", err)
	}
	return &codec{compressor: compressor, decompressor: decompressor}, nil
}

func (c *codec) encode(doc *schema.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации схемы: %w", err)
	}
	return c.compressor.EncodeAll(data, nil), nil
}

func (c *codec) decode(payload []byte) (*schema.Document, error) {
	data, err := c.decompressor.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки схемы: %w", err)
	}
	var doc schema.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ошибка десериализации схемы: %w", err)
	}
	return &doc, nil
}

func (c *codec) close() {
	c.compressor.Close()
	c.decompressor.Close()
}

func sortBuilds(builds []uint32) []uint32 {
	sort.Slice(builds, func(i, j int) bool { return builds[i] < builds[j] })
	return builds
}
