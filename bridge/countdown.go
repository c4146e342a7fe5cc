package bridge

import (
	"sync"
	"time"

	"github.com/jrsteele09/onlyoffice-confluence/internal/clock"
)

// CountdownStart is the first value shown.
const CountdownStart = 59

// Countdown ticks once a second from CountdownStart down to zero and runs
// its final action on the tick after zero. Starting a countdown replaces
// the one in progress.
type Countdown struct {
	clock clock.Clock

	mu         sync.Mutex
	generation int
	timer      clock.Timer
}

func NewCountdown(c clock.Clock) *Countdown {
	return &Countdown{clock: c}
}

// Start begins a countdown. onTick receives each remaining value; onFinal
// runs exactly once, after which nothing ticks.
func (c *Countdown) Start(onTick func(remaining int), onFinal func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.generation++
	c.scheduleLocked(c.generation, -1, onTick, onFinal)
}

// Stop cancels the countdown without running its final action.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.generation++
}

// Running reports whether a countdown is in progress.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Countdown) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// scheduleLocked arms the next tick. current is -1 before the first tick.
func (c *Countdown) scheduleLocked(gen, current int, onTick func(int), onFinal func()) {
	c.timer = c.clock.AfterFunc(time.Second, func() {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}

		next := CountdownStart
		if current >= 0 {
			next = current - 1
		}
		if next < 0 {
			c.timer = nil
			c.generation++
			c.mu.Unlock()
			if onFinal != nil {
				onFinal()
			}
			return
		}
		c.scheduleLocked(gen, next, onTick, onFinal)
		c.mu.Unlock()

		if onTick != nil {
			onTick(next)
		}
	})
}
