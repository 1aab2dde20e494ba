package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// LocalBus доставляет уведомления между декодерами одного процесса.
// Доставка синхронная: Publish возвращается после вызова всех обработчиков.
type LocalBus struct {
	mu    sync.RWMutex
	nodes map[*LocalInvalidator]struct{}
}

// NewLocalBus создаёт пустую шину
func NewLocalBus() *LocalBus {
	return &LocalBus{nodes: make(map[*LocalInvalidator]struct{})}
}

// LocalInvalidator узел локальной шины
type LocalInvalidator struct {
	bus    *LocalBus
	nodeID string

	mu      sync.RWMutex
	handler InvalidationHandler

	publishedCount int64
	receivedCount  int64
	errorsCount    int64
}

// NewLocalInvalidator подключает узел к шине
func NewLocalInvalidator(bus *LocalBus, nodeID string) *LocalInvalidator {
	return &LocalInvalidator{bus: bus, nodeID: nodeID}
}

// Publish вызывает обработчики всех остальных узлов шины
func (l *LocalInvalidator) Publish(ctx context.Context, build uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.bus.mu.RLock()
	peers := make([]*LocalInvalidator, 0, len(l.bus.nodes))
	for node := range l.bus.nodes {
		if node != l {
			peers = append(peers, node)
		}
	}
	l.bus.mu.RUnlock()

	for _, node := range peers {
		node.deliver(build)
	}
	atomic.AddInt64(&l.publishedCount, 1)
	return nil
}

// Subscribe регистрирует обработчик до отмены ctx или Close
func (l *LocalInvalidator) Subscribe(ctx context.Context, handler InvalidationHandler) error {
	l.mu.Lock()
	if l.handler != nil {
		l.mu.Unlock()
		return ErrAlreadySubscribed
	}
	l.handler = handler
	l.mu.Unlock()

	l.bus.mu.Lock()
	l.bus.nodes[l] = struct{}{}
	l.bus.mu.Unlock()

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			l.Close()
		}()
	}
	return nil
}

// Stats счётчики узла
func (l *LocalInvalidator) Stats() InvalidatorStats {
	return InvalidatorStats{
		Published: atomic.LoadInt64(&l.publishedCount),
		Received:  atomic.LoadInt64(&l.receivedCount),
		Errors:    atomic.LoadInt64(&l.errorsCount),
	}
}

// Close отключает узел от шины
func (l *LocalInvalidator) Close() error {
	l.bus.mu.Lock()
	delete(l.bus.nodes, l)
	l.bus.mu.Unlock()

	l.mu.Lock()
	l.handler = nil
	l.mu.Unlock()
	return nil
}

func (l *LocalInvalidator) deliver(build uint32) {
	l.mu.RLock()
	handler := l.handler
	l.mu.RUnlock()
	if handler == nil {
		return
	}

	atomic.AddInt64(&l.receivedCount, 1)
	if err := handler(build); err != nil {
		atomic.AddInt64(&l.errorsCount, 1)
	}
}
