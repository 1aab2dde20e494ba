package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/source2-demo/internal/logging"
)

type received struct {
	mu     sync.Mutex
	builds []uint32
}

func (r *received) handle(build uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds = append(r.builds, build)
	return nil
}

func (r *received) snapshot() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.builds...)
}

func TestLocalInvalidator(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus()

	a := NewLocalInvalidator(bus, "a")
	b := NewLocalInvalidator(bus, "b")
	defer a.Close()
	defer b.Close()

	var gotA, gotB received
	require.NoError(t, a.Subscribe(ctx, gotA.handle))
	require.NoError(t, b.Subscribe(ctx, gotB.handle))
	assert.ErrorIs(t, b.Subscribe(ctx, gotB.handle), ErrAlreadySubscribed)

	require.NoError(t, a.Publish(ctx, 7490))
	assert.Empty(t, gotA.snapshot(), "Собственные уведомления не доставляются")
	assert.Equal(t, []uint32{7490}, gotB.snapshot())

	assert.Equal(t, InvalidatorStats{Published: 1}, a.Stats())
	assert.Equal(t, InvalidatorStats{Received: 1}, b.Stats())

	require.NoError(t, b.Close())
	require.NoError(t, a.Publish(ctx, 7501))
	assert.Equal(t, []uint32{7490}, gotB.snapshot(), "Закрытый узел не получает уведомления")
}

func TestLocalInvalidator_HandlerError(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus()

	a := NewLocalInvalidator(bus, "a")
	b := NewLocalInvalidator(bus, "b")
	require.NoError(t, b.Subscribe(ctx, func(uint32) error { return errors.New("сбой") }))

	require.NoError(t, a.Publish(ctx, 1))
	assert.Equal(t, int64(1), b.Stats().Errors)
}

func TestLocalInvalidator_ContextCancel(t *testing.T) {
	bus := NewLocalBus()
	a := NewLocalInvalidator(bus, "a")
	b := NewLocalInvalidator(bus, "b")

	ctx, cancel := context.WithCancel(context.Background())
	var got received
	require.NoError(t, b.Subscribe(ctx, got.handle))
	cancel()

	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.nodes) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, a.Publish(context.Background(), 3))
	assert.Empty(t, got.snapshot())

	assert.ErrorIs(t, a.Publish(ctx, 4), context.Canceled)
}

// Требует запущенный NATS: DEMO_NATS_URL=nats://localhost:4222
func TestNATSInvalidator(t *testing.T) {
	url := os.Getenv("DEMO_NATS_URL")
	if url == "" {
		t.Skip("DEMO_NATS_URL не задан")
	}

	quiet := logging.NewWriterLogger("cache", io.Discard, logging.ERROR)
	cfg := func() *InvalidatorConfig {
		return &InvalidatorConfig{NATSURL: url, Subject: "demo.test." + t.Name()}
	}

	a, err := NewNATSInvalidator(cfg(), "a", quiet)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewNATSInvalidator(cfg(), "b", quiet)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	var gotA, gotB received
	require.NoError(t, a.Subscribe(ctx, gotA.handle))
	require.NoError(t, b.Subscribe(ctx, gotB.handle))

	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, a.Publish(pubCtx, 7490))

	assert.Eventually(t, func() bool {
		return len(gotB.snapshot()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Empty(t, gotA.snapshot())
	assert.Equal(t, int64(1), a.Stats().Published)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
