package cache

import (
	"context"
	"time"
)

// Invalidator рассылает уведомления о замене схемы сборки между декодерами,
// разделяющими одно хранилище схем.
//
// Использование:
//
//	inv, _ := NewNATSInvalidator(cfg, decoderID, nil)
//	err = inv.Subscribe(ctx, func(build uint32) error { ... })
//	err = inv.Publish(ctx, 7490)
type Invalidator interface {
	// Publish сообщает остальным узлам, что схема сборки заменена.
	Publish(ctx context.Context, build uint32) error

	// Subscribe регистрирует обработчик уведомлений от других узлов.
	// Собственные уведомления узла обработчик не получает.
	Subscribe(ctx context.Context, handler InvalidationHandler) error

	// Stats возвращает счётчики узла.
	Stats() InvalidatorStats

	// Close отписывается и закрывает соединение.
	Close() error
}

// InvalidationHandler обрабатывает уведомление о замене схемы
type InvalidationHandler func(build uint32) error

// InvalidationMessage сообщение о замене схемы
type InvalidationMessage struct {
	Build     uint32    `json:"build"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
	Reason    string    `json:"reason,omitempty"`
}

// InvalidatorStats счётчики отправленных и полученных уведомлений
type InvalidatorStats struct {
	Published int64 `json:"published"`
	Received  int64 `json:"received"`
	Errors    int64 `json:"errors"`
}
