package notify

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Local fans signals out to subscribers in the same process.
type Local struct {
	mu     sync.Mutex
	subs   map[*subscription]context.Context
	closed bool
}

// NewLocal returns an in-process notifier.
func NewLocal() *Local {
	return &Local{subs: make(map[*subscription]context.Context)}
}

// Publish delivers c to every current subscriber without blocking.
func (l *Local) Publish(_ context.Context, c types.Change) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for s, ctx := range l.subs {
		s.send(ctx, c)
	}
	return nil
}

// Subscribe registers a subscriber until ctx ends or it is closed.
func (l *Local) Subscribe(ctx context.Context) (types.Subscription, error) {
	s, subCtx := newSubscription(ctx)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		s.cancel()
		return nil, types.ErrDetached
	}
	l.subs[s] = subCtx
	l.mu.Unlock()

	go func() {
		<-subCtx.Done()
		l.mu.Lock()
		delete(l.subs, s)
		l.mu.Unlock()
		s.finish()
	}()
	return s, nil
}

// Close ends every subscription.
func (l *Local) Close() error {
	l.mu.Lock()
	l.closed = true
	subs := make([]*subscription, 0, len(l.subs))
	for s := range l.subs {
		subs = append(subs, s)
	}
	l.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}
