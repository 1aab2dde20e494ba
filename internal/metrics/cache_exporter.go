package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/source2-demo/internal/entity/field"
	"github.com/annel0/source2-demo/internal/logging"
)

// StatsProvider источник статистики кеша name→path; *field.Serializer подходит
type StatsProvider interface {
	Name() string
	Version() int32
	CacheStats() field.CacheStats
}

type tracked struct {
	provider StatsProvider
	labels   prometheus.Labels
	prev     field.CacheStats
}

// CacheExporter периодически переносит статистику кешей сериализаторов в Prometheus
type CacheExporter struct {
	registry *prometheus.Registry
	logger   *logging.Logger

	mu      sync.Mutex
	tracked map[StatsProvider]*tracked
	quit    chan struct{}
	done    chan struct{}
	server  *http.Server

	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	entries     *prometheus.GaugeVec
	serializers prometheus.Gauge
}

// NewCacheExporter создаёт экспортер с собственным реестром метрик
func NewCacheExporter(logger *logging.Logger) *CacheExporter {
	if logger == nil {
		logger = logging.GetMetricsLogger()
	}
	labels := []string{"serializer", "version"}
	ce := &CacheExporter{
		registry: prometheus.NewRegistry(),
		logger:   logger,
		tracked:  make(map[StatsProvider]*tracked),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "demo",
			Subsystem: "field_path_cache",
			Name:      "hits_total",
			Help:      "Число разрешений имени свойства из кеша.",
		}, labels),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "demo",
			Subsystem: "field_path_cache",
			Name:      "misses_total",
			Help:      "Число разрешений имени свойства обходом схемы.",
		}, labels),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "demo",
			Subsystem: "field_path_cache",
			Name:      "entries",
			Help:      "Количество закешированных путей.",
		}, labels),
		serializers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "demo",
			Subsystem: "field_path_cache",
			Name:      "serializers",
			Help:      "Количество отслеживаемых сериализаторов.",
		}),
	}
	ce.registry.MustRegister(ce.hits, ce.misses, ce.entries, ce.serializers)
	return ce
}

// Registry реестр метрик экспортера
func (ce *CacheExporter) Registry() *prometheus.Registry { return ce.registry }

// Handler HTTP-обработчик /metrics для реестра экспортера
func (ce *CacheExporter) Handler() http.Handler {
	return promhttp.HandlerFor(ce.registry, promhttp.HandlerOpts{})
}

// Register добавляет сериализаторы в отслеживаемые. Повторная регистрация игнорируется.
func (ce *CacheExporter) Register(providers ...StatsProvider) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	for _, p := range providers {
		if _, exists := ce.tracked[p]; exists {
			continue
		}
		ce.tracked[p] = &tracked{
			provider: p,
			labels: prometheus.Labels{
				"serializer": p.Name(),
				"version":    strconv.Itoa(int(p.Version())),
			},
		}
	}
	ce.serializers.Set(float64(len(ce.tracked)))
}

// Unregister прекращает отслеживание сериализаторов. Серии метрик удаляются,
// если их метки больше не использует ни один отслеживаемый сериализатор.
func (ce *CacheExporter) Unregister(providers ...StatsProvider) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	for _, p := range providers {
		t, exists := ce.tracked[p]
		if !exists {
			continue
		}
		delete(ce.tracked, p)
		if ce.labelsInUse(t.labels) {
			continue
		}
		ce.hits.Delete(t.labels)
		ce.misses.Delete(t.labels)
		ce.entries.Delete(t.labels)
	}
	ce.serializers.Set(float64(len(ce.tracked)))
}

func (ce *CacheExporter) labelsInUse(labels prometheus.Labels) bool {
	for _, t := range ce.tracked {
		if t.labels["serializer"] == labels["serializer"] && t.labels["version"] == labels["version"] {
			return true
		}
	}
	return false
}

// Collect однократно переносит текущую статистику в метрики.
// Сериализаторы с одинаковыми метками суммируются.
func (ce *CacheExporter) Collect() {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	type series struct {
		labels  prometheus.Labels
		entries int
	}
	totals := make(map[[2]string]*series, len(ce.tracked))

	for _, t := range ce.tracked {
		stats := t.provider.CacheStats()

		// Counter растёт только на дельту с прошлого опроса
		if delta := stats.Hits - t.prev.Hits; delta > 0 {
			ce.hits.With(t.labels).Add(float64(delta))
		}
		if delta := stats.Misses - t.prev.Misses; delta > 0 {
			ce.misses.With(t.labels).Add(float64(delta))
		}
		t.prev = stats

		key := [2]string{t.labels["serializer"], t.labels["version"]}
		if totals[key] == nil {
			totals[key] = &series{labels: t.labels}
		}
		totals[key].entries += stats.Entries
	}

	for _, sr := range totals {
		ce.entries.With(sr.labels).Set(float64(sr.entries))
	}
}

// Start запускает периодический опрос. Повторный вызов до Stop ничего не делает.
func (ce *CacheExporter) Start(interval time.Duration) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if ce.quit != nil {
		return
	}
	if interval <= 0 {
		interval = time.Second
	}
	ce.quit = make(chan struct{})
	ce.done = make(chan struct{})
	go ce.loop(interval, ce.quit, ce.done)
}

// StartHTTP запускает HTTP-эндпоинт /metrics на addr (например, ":2112").
// Метод неблокирующий: сервер работает в отдельной горутине до Stop.
func (ce *CacheExporter) StartHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", ce.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ce.mu.Lock()
	ce.server = server
	ce.mu.Unlock()

	go func() {
		ce.logger.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ce.logger.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
}

// Stop останавливает опрос и HTTP-сервер, затем выполняет последний сбор
func (ce *CacheExporter) Stop() {
	ce.mu.Lock()
	quit, done, server := ce.quit, ce.done, ce.server
	ce.quit, ce.done, ce.server = nil, nil, nil
	ce.mu.Unlock()

	if quit != nil {
		close(quit)
		<-done
	}
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			ce.logger.Warn("остановка HTTP сервера метрик: %v", err)
		}
	}
	ce.Collect()
}

func (ce *CacheExporter) loop(interval time.Duration, quit <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(done)

	for {
		select {
		case <-ticker.C:
			ce.Collect()
		case <-quit:
			return
		}
	}
}
