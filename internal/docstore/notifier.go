package docstore

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Notifier is the change-notification fan-out behind Store.Watch. Signals
// are coalescing: a slow subscriber sees at least one signal for any burst
// of changes, not one per change.
type Notifier interface {
	Publish(ctx context.Context, coachID string) error
	Subscribe(ctx context.Context, coachID string) (<-chan struct{}, error)
}

// MemoryNotifier is an in-process fan-out for dev and tests.
type MemoryNotifier struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

// NewMemoryNotifier creates an empty notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[string][]chan struct{})}
}

// Publish signals every subscriber for the coach without blocking.
func (n *MemoryNotifier) Publish(_ context.Context, coachID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[coachID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe registers a signal channel, released and closed when ctx ends.
func (n *MemoryNotifier) Subscribe(ctx context.Context, coachID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs[coachID] = append(n.subs[coachID], ch)
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		subs := n.subs[coachID]
		for i, c := range subs {
			if c == ch {
				n.subs[coachID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		n.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// RedisNotifier fans out change signals over Redis pub/sub so watchers in
// other processes see writes from this one.
type RedisNotifier struct {
	client     *redis.Client
	deployment string
}

// NewRedisNotifier builds a notifier publishing on per-coach channels under
// the deployment namespace.
func NewRedisNotifier(client *redis.Client, deployment string) *RedisNotifier {
	if deployment == "" {
		deployment = "default"
	}
	return &RedisNotifier{client: client, deployment: deployment}
}

func (n *RedisNotifier) channel(coachID string) string {
	return CollectionPath(n.deployment, coachID)
}

// Publish emits a change signal for the coach's collection.
func (n *RedisNotifier) Publish(ctx context.Context, coachID string) error {
	return storeErr("notify", n.client.Publish(ctx, n.channel(coachID), "changed").Err())
}

// Subscribe streams change signals until ctx is cancelled.
func (n *RedisNotifier) Subscribe(ctx context.Context, coachID string) (<-chan struct{}, error) {
	sub := n.client.Subscribe(ctx, n.channel(coachID))
	// Force the subscription to be established before first use.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, storeErr("subscribe", err)
	}

	out := make(chan struct{}, 1)
	msgs := sub.Channel()
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
