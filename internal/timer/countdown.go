package timer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the tick length of a quiz countdown
const DefaultInterval = time.Second

// Countdown decrements the remaining time once per interval while active and
// calls the timeout handler exactly once when it reaches zero.
type Countdown struct {
	interval  time.Duration
	onTimeout func()

	mu        sync.Mutex
	remaining time.Duration
	active    bool
	fired     bool
	gen       uint64
	cancel    context.CancelFunc
	onTick    func(remaining time.Duration)
}

// NewCountdown creates an inactive countdown. A non-positive interval uses DefaultInterval.
func NewCountdown(duration, interval time.Duration, onTimeout func()) *Countdown {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if duration < 0 {
		duration = 0
	}
	return &Countdown{
		interval:  interval,
		onTimeout: onTimeout,
		remaining: duration,
	}
}

// OnTick registers a handler called after every decrement
func (c *Countdown) OnTick(fn func(remaining time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = fn
}

// Start activates the countdown. It stops when ctx is cancelled, Stop is
// called, or time runs out. Starting an active or expired countdown does nothing.
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	if c.active || c.fired {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.active = true
	expired := c.remaining <= 0
	c.mu.Unlock()

	if expired {
		go c.expire(gen)
		return
	}
	go c.run(ctx, gen)
}

func (c *Countdown) run(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.gen == gen {
				c.active = false
			}
			c.mu.Unlock()
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.gen != gen || !c.active {
				c.mu.Unlock()
				return
			}
			c.remaining -= c.interval
			if c.remaining < 0 {
				c.remaining = 0
			}
			remaining, onTick := c.remaining, c.onTick
			c.mu.Unlock()

			if onTick != nil {
				onTick(remaining)
			}
			if remaining == 0 {
				c.expire(gen)
				return
			}
		}
	}
}

func (c *Countdown) expire(gen uint64) {
	c.mu.Lock()
	if c.fired || !c.active || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.fired = true
	c.active = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.onTimeout != nil {
		c.onTimeout()
	}
}

// Stop deactivates the countdown without firing the timeout handler.
// It is safe to call from inside the handlers.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	if c.cancel != nil {
		c.cancel()
	}
}

// Remaining returns the time left
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Active reports whether the countdown is ticking
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Expired reports whether the timeout handler has fired
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// FormatClock renders d as HH:MM:SS, rounding down to whole seconds
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
