package extract

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// throttle is a token bucket that paces calls to the model provider.
type throttle struct {
	stopCh     chan struct{}
	tokens     int
	capacity   int
	refillRate int
	mu         sync.Mutex
	stopOnce   sync.Once
}

func newThrottle(requestsPerMinute int) *throttle {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}

	t := &throttle{
		tokens:     requestsPerMinute,
		capacity:   requestsPerMinute,
		refillRate: requestsPerMinute,
		stopCh:     make(chan struct{}),
	}
	go t.refill()
	return t
}

// wait blocks until a token is available or the context is canceled.
func (t *throttle) wait(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if t.tryAcquire() {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("throttle canceled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (t *throttle) tryAcquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tokens > 0 {
		t.tokens--
		return true
	}
	return false
}

func (t *throttle) refill() {
	ticker := time.NewTicker(time.Minute / time.Duration(t.refillRate))
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.tokens < t.capacity {
				t.tokens++
			}
			t.mu.Unlock()
		}
	}
}

// Close stops the refill goroutine.
func (t *throttle) Close() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}
