package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/annel0/source2-demo/internal/logging"
)

// ErrAlreadySubscribed повторная подписка на уведомления
var ErrAlreadySubscribed = errors.New("уже подписан на уведомления")

// NATSInvalidator реализует Invalidator поверх NATS Pub/Sub.
// Переподключение выполняет клиент NATS.
type NATSInvalidator struct {
	conn    *nats.Conn
	config  *InvalidatorConfig
	subject string
	nodeID  string
	logger  *logging.Logger

	mu           sync.Mutex
	subscription *nats.Subscription
	handler      InvalidationHandler

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	publishedCount int64
	receivedCount  int64
	errorsCount    int64
}

// InvalidatorConfig конфигурация NATS соединения
type InvalidatorConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`

	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// DefaultInvalidatorConfig конфигурация для локального NATS
func DefaultInvalidatorConfig() *InvalidatorConfig {
	return &InvalidatorConfig{
		NATSURL:       nats.DefaultURL,
		Subject:       "demo.schema.invalidation",
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
	}
}

// NewNATSInvalidator подключается к NATS. nodeID отличает собственные
// уведомления узла от чужих.
func NewNATSInvalidator(config *InvalidatorConfig, nodeID string, logger *logging.Logger) (*NATSInvalidator, error) {
	if logger == nil {
		logger = logging.GetCacheLogger()
	}
	defaults := DefaultInvalidatorConfig()
	if config == nil {
		config = defaults
	}
	if config.NATSURL == "" {
		config.NATSURL = defaults.NATSURL
	}
	if config.Subject == "" {
		config.Subject = defaults.Subject
	}
	if config.MaxReconnects == 0 {
		config.MaxReconnects = defaults.MaxReconnects
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = defaults.ReconnectWait
	}

	opts := []nats.Option{
		nats.Name("source2-demo " + nodeID),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("⚠️ NATS отключен: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("🔄 NATS переподключен к %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("NATS соединение закрыто")
		}),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("подключение к NATS %s: %w", config.NATSURL, err)
	}

	logger.Info("✅ NATS инвалидатор подключен: %s (subject: %s)", config.NATSURL, config.Subject)
	return &NATSInvalidator{
		conn:    conn,
		config:  config,
		subject: config.Subject,
		nodeID:  nodeID,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Publish отправляет уведомление о замене схемы сборки
func (n *NATSInvalidator) Publish(ctx context.Context, build uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(&InvalidationMessage{
		Build:     build,
		Timestamp: time.Now(),
		NodeID:    n.nodeID,
		Reason:    "schema_replaced",
	})
	if err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("кодирование уведомления: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("публикация уведомления build %d: %w", build, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := n.conn.FlushTimeout(time.Until(deadline)); err != nil {
			atomic.AddInt64(&n.errorsCount, 1)
			return fmt.Errorf("отправка уведомления build %d: %w", build, err)
		}
	}

	atomic.AddInt64(&n.publishedCount, 1)
	n.logger.Debug("уведомление о замене схемы build %d отправлено", build)
	return nil
}

// Subscribe подписывается на уведомления до отмены ctx или Close
func (n *NATSInvalidator) Subscribe(ctx context.Context, handler InvalidationHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subscription != nil {
		return ErrAlreadySubscribed
	}

	sub, err := n.conn.Subscribe(n.subject, n.handleMessage)
	if err != nil {
		return fmt.Errorf("подписка на %s: %w", n.subject, err)
	}
	n.subscription = sub
	n.handler = handler

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-ctx.Done():
		case <-n.stopCh:
		}
		n.unsubscribe()
	}()

	n.logger.Info("📡 подписка на уведомления о схемах: %s", n.subject)
	return nil
}

// Close отписывается и закрывает соединение. Повторный вызов ничего не делает.
func (n *NATSInvalidator) Close() error {
	n.closeOnce.Do(func() {
		close(n.stopCh)
		n.wg.Wait()
		n.conn.Close()
	})
	return nil
}

// Stats счётчики узла
func (n *NATSInvalidator) Stats() InvalidatorStats {
	return InvalidatorStats{
		Published: atomic.LoadInt64(&n.publishedCount),
		Received:  atomic.LoadInt64(&n.receivedCount),
		Errors:    atomic.LoadInt64(&n.errorsCount),
	}
}

func (n *NATSInvalidator) handleMessage(msg *nats.Msg) {
	var m InvalidationMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		n.logger.Error("❌ некорректное уведомление: %v", err)
		return
	}
	if m.NodeID == n.nodeID {
		return
	}
	atomic.AddInt64(&n.receivedCount, 1)

	n.mu.Lock()
	handler := n.handler
	n.mu.Unlock()
	if handler == nil {
		return
	}
	if err := handler(m.Build); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		n.logger.Error("❌ обработка уведомления build %d от %s: %v", m.Build, m.NodeID, err)
	}
}

func (n *NATSInvalidator) unsubscribe() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		n.logger.Warn("отписка от %s: %v", n.subject, err)
	}
	n.subscription = nil
	n.handler = nil
}
