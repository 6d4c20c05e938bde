// Package notify delivers payload-free change signals between the
// repository and the processes watching it.
package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Buffer sizes for subscription channels. Signals carry no payload, so a
// full buffer drops the newest signal.
const (
	eventBuffer = 16
	errorBuffer = 4
)

// Notifier publishes change signals and hands out subscriptions.
type Notifier interface {
	Publish(ctx context.Context, c types.Change) error
	Subscribe(ctx context.Context) (types.Subscription, error)
	Close() error
}

// New builds the notifier selected by cfg. dataDir is watched by the file
// driver.
func New(cfg types.NotifyConfig, dataDir string, log *zap.Logger) (Notifier, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Driver {
	case "", types.NotifyNone:
		return NewLocal(), nil
	case types.NotifyRedis:
		return NewRedis(cfg.RedisAddr, cfg.Channel, log)
	case types.NotifyFile:
		return NewFileWatcher(dataDir, cfg.Debounce, log), nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrNotifyUnknown, cfg.Driver)
}

// subscription implements types.Subscription over a pump goroutine.
type subscription struct {
	events chan types.Change
	errors chan error
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newSubscription(ctx context.Context) (*subscription, context.Context) {
	subCtx, cancel := context.WithCancel(ctx)
	return &subscription{
		events: make(chan types.Change, eventBuffer),
		errors: make(chan error, errorBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}, subCtx
}

func (s *subscription) Events() <-chan types.Change { return s.events }

func (s *subscription) Errors() <-chan error { return s.errors }

// Close stops the pump and waits for it to exit. Both channels are closed
// afterwards.
func (s *subscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

// finish closes the channels; the pump calls it on exit.
func (s *subscription) finish() {
	close(s.events)
	close(s.errors)
	close(s.done)
}

func (s *subscription) send(ctx context.Context, c types.Change) {
	select {
	case s.events <- c:
	case <-ctx.Done():
	default:
	}
}

func (s *subscription) fail(ctx context.Context, err error) {
	select {
	case s.errors <- err:
	case <-ctx.Done():
	default:
	}
}
