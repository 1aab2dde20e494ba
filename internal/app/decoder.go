package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/source2-demo/internal/cache"
	"github.com/annel0/source2-demo/internal/config"
	"github.com/annel0/source2-demo/internal/logging"
	"github.com/annel0/source2-demo/internal/metrics"
	"github.com/annel0/source2-demo/internal/observability"
	"github.com/annel0/source2-demo/internal/schema"
	"github.com/annel0/source2-demo/internal/storage"
)

// ErrUnknownBuild схема сборки не загружена и отсутствует в хранилище
var ErrUnknownBuild = errors.New("unknown build")

// Decoder связывает хранилище схем, построитель и экспорт метрик.
// Построенные схемы держатся в памяти и разделяются между всеми потребителями.
// Замена схемы на другом узле сбрасывает локальную копию.
type Decoder struct {
	id          string
	logger      *logging.Logger
	store       storage.SchemaStore
	builder     *schema.Builder
	exporter    *metrics.CacheExporter
	invalidator cache.Invalidator
	tracer      trace.Tracer
	shutdown    func(context.Context) error

	mu      sync.RWMutex
	schemas map[uint32]*schema.Schema
}

// Options зависимости декодера. Пустые поля заполняются значениями по умолчанию.
// Построитель схем пишет в Logger под компонентом schema.
type Options struct {
	ID          string
	Store       storage.SchemaStore
	Exporter    *metrics.CacheExporter
	Invalidator cache.Invalidator
	Tracing     trace.TracerProvider
	Logger      *logging.Logger
}

// NewDecoder создаёт декодер из готовых зависимостей
func NewDecoder(opts Options) (*Decoder, error) {
	var builderLogger *logging.Logger
	if opts.Logger == nil {
		opts.Logger = logging.GetAppLogger()
	} else {
		builderLogger = opts.Logger.Named("schema")
	}
	if opts.Store == nil {
		store, err := storage.NewMemorySchemaStore()
		if err != nil {
			return nil, err
		}
		opts.Store = store
	}

	if opts.Tracing == nil {
		opts.Tracing = otel.GetTracerProvider()
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}

	d := &Decoder{
		id:          opts.ID,
		logger:      opts.Logger,
		store:       opts.Store,
		builder:     schema.NewBuilder(builderLogger),
		exporter:    opts.Exporter,
		invalidator: opts.Invalidator,
		tracer:      opts.Tracing.Tracer("github.com/annel0/source2-demo/internal/app"),
		schemas:     make(map[uint32]*schema.Schema),
	}
	if d.invalidator != nil {
		if err := d.invalidator.Subscribe(context.Background(), d.invalidate); err != nil {
			return nil, fmt.Errorf("подписка декодера %s: %w", d.id, err)
		}
	}
	d.logger.Debug("декодер %s создан", d.id)
	return d, nil
}

// NewFromConfig настраивает логирование, открывает хранилище по конфигурации
// и загружает перечисленные файлы схем. cfg == nil означает конфигурацию по умолчанию.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Decoder, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	consoleLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	fileLevel, err := logging.ParseLevel(cfg.Logging.FileLevel)
	if err != nil {
		return nil, err
	}
	logging.GetLoggerManager().Configure(logging.Options{
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: consoleLevel,
		FileLevel:    fileLevel,
	})

	var shutdown func(context.Context) error
	if cfg.Telemetry.Enabled {
		shutdown, err = observability.InitTelemetry(ctx, observability.TelemetryOptions{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			return nil, err
		}
	}

	store, err := openStore(ctx, &cfg.Storage)
	if err != nil {
		if shutdown != nil {
			shutdown(ctx)
		}
		return nil, err
	}

	var exporter *metrics.CacheExporter
	if cfg.Metrics.Enabled {
		exporter = metrics.NewCacheExporter(nil)
		exporter.Start(cfg.Metrics.GetInterval())
		exporter.StartHTTP(fmt.Sprintf(":%d", cfg.Metrics.GetPort()))
	}

	id := uuid.NewString()
	var invalidator cache.Invalidator
	if url := cfg.Invalidation.GetNATSURL(); url != "" {
		inv, err := cache.NewNATSInvalidator(&cache.InvalidatorConfig{
			NATSURL: url,
			Subject: cfg.Invalidation.Subject,
		}, id, nil)
		if err != nil {
			if exporter != nil {
				exporter.Stop()
			}
			store.Close()
			return nil, err
		}
		invalidator = inv
	}

	d, err := NewDecoder(Options{ID: id, Store: store, Exporter: exporter, Invalidator: invalidator})
	if err == nil {
		d.shutdown = shutdown
	} else if shutdown != nil {
		shutdown(ctx)
	}
	if err != nil {
		if invalidator != nil {
			invalidator.Close()
		}
		if exporter != nil {
			exporter.Stop()
		}
		store.Close()
		return nil, err
	}

	for _, path := range cfg.Schema.Files {
		doc, err := schema.LoadFile(path)
		if err != nil {
			d.Close()
			return nil, err
		}
		if _, err := d.LoadSchema(ctx, doc); err != nil {
			d.Close()
			return nil, err
		}
	}
	return d, nil
}

func openStore(ctx context.Context, cfg *config.StorageConfig) (storage.SchemaStore, error) {
	switch backend := cfg.GetBackend(); backend {
	case "memory":
		return storage.NewMemorySchemaStore()
	case "badger":
		return storage.NewBadgerSchemaStore(cfg.GetPath(), nil)
	case "redis":
		return storage.NewRedisSchemaStore(ctx, &storage.RedisConfig{
			Addr:      cfg.GetRedisAddr(),
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.GetKeyPrefix(),
			TTL:       cfg.GetTTL(),
		}, nil)
	default:
		return nil, fmt.Errorf("неизвестное хранилище схем: %q", backend)
	}
}

// ID идентификатор экземпляра декодера в логах
func (d *Decoder) ID() string { return d.id }

// LoadSchema строит схему и сохраняет её описание. Документ с ошибкой не сохраняется.
func (d *Decoder) LoadSchema(ctx context.Context, doc *schema.Document) (_ *schema.Schema, err error) {
	ctx, span := d.tracer.Start(ctx, "schema.load")
	defer endSpan(span, &err)
	if doc != nil {
		span.SetAttributes(attribute.Int64("schema.build", int64(doc.Build)))
	}

	s, err := d.builder.Build(doc)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("schema.serializers", len(s.Serializers())))
	if err := d.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("сохранение схемы build %d: %w", doc.Build, err)
	}

	d.install(s, true)
	d.logger.Info("декодер %s: схема build %d загружена", d.id, s.Build())

	if d.invalidator != nil {
		if err := d.invalidator.Publish(ctx, s.Build()); err != nil {
			d.logger.Warn("⚠️ декодер %s: уведомление о схеме build %d не отправлено: %v", d.id, s.Build(), err)
		}
	}
	return s, nil
}

// Schema возвращает схему сборки, при необходимости восстанавливая её из хранилища
func (d *Decoder) Schema(ctx context.Context, build uint32) (*schema.Schema, error) {
	d.mu.RLock()
	s, ok := d.schemas[build]
	d.mu.RUnlock()
	if ok {
		return s, nil
	}

	return d.restore(ctx, build)
}

func (d *Decoder) restore(ctx context.Context, build uint32) (_ *schema.Schema, err error) {
	ctx, span := d.tracer.Start(ctx, "schema.restore",
		trace.WithAttributes(attribute.Int64("schema.build", int64(build))))
	defer endSpan(span, &err)

	doc, found, err := d.store.Load(ctx, build)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBuild, build)
	}

	s, err := d.builder.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("восстановление схемы build %d: %w", build, err)
	}
	s = d.install(s, false)
	d.logger.Debug("декодер %s: схема build %d восстановлена из хранилища", d.id, build)
	return s, nil
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}

// install регистрирует схему. Без replace побеждает схема, установленная раньше.
// Сериализаторы заменённой схемы снимаются с учёта в метриках.
func (d *Decoder) install(s *schema.Schema, replace bool) *schema.Schema {
	d.mu.Lock()
	prev, ok := d.schemas[s.Build()]
	if ok && !replace {
		d.mu.Unlock()
		return prev
	}
	d.schemas[s.Build()] = s
	d.mu.Unlock()

	if d.exporter != nil {
		if ok && prev != s {
			d.exporter.Unregister(statsProviders(prev)...)
		}
		d.exporter.Register(statsProviders(s)...)
	}
	return s
}

// invalidate сбрасывает схему, заменённую другим узлом.
// Следующий вызов Schema перечитает её из хранилища.
func (d *Decoder) invalidate(build uint32) error {
	d.mu.Lock()
	prev, ok := d.schemas[build]
	delete(d.schemas, build)
	d.mu.Unlock()

	if !ok {
		return nil
	}
	if d.exporter != nil {
		d.exporter.Unregister(statsProviders(prev)...)
	}
	d.logger.Debug("декодер %s: схема build %d сброшена", d.id, build)
	return nil
}

func statsProviders(s *schema.Schema) []metrics.StatsProvider {
	sers := s.Serializers()
	out := make([]metrics.StatsProvider, len(sers))
	for i, ser := range sers {
		out[i] = ser
	}
	return out
}

// Builds сборки, доступные в хранилище
func (d *Decoder) Builds(ctx context.Context) ([]uint32, error) {
	return d.store.Builds(ctx)
}

// Close освобождает ресурсы декодера и закрывает хранилище
func (d *Decoder) Close() error {
	if d.exporter != nil {
		d.exporter.Stop()
	}
	if d.invalidator != nil {
		d.invalidator.Close()
	}
	if d.shutdown != nil {
		if err := d.shutdown(context.Background()); err != nil {
			d.logger.Warn("⚠️ завершение телеметрии: %v", err)
		}
	}
	return d.store.Close()
}
