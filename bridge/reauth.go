package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/editor"
	"github.com/jrsteele09/onlyoffice-confluence/internal/clock"
)

// DefaultReauthMargin is how long before expiry a session is renewed.
const DefaultReauthMargin = 10 * time.Second

// Authorizer obtains a fresh editor session.
type Authorizer interface {
	Authorize(ctx context.Context) (*editor.Authorization, error)
}

// Reauthorizer renews the editor session shortly before it expires, and
// again before each renewed session expires, until Stop.
type Reauthorizer struct {
	ctx       context.Context
	clock     clock.Clock
	margin    time.Duration
	auth      Authorizer
	onRefresh func(*editor.Authorization)

	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

func NewReauthorizer(ctx context.Context, c clock.Clock, margin time.Duration, auth Authorizer, onRefresh func(*editor.Authorization)) *Reauthorizer {
	return &Reauthorizer{ctx: ctx, clock: c, margin: margin, auth: auth, onRefresh: onRefresh}
}

// Schedule arms the renewal for a session expiring at sessionExpires
// (epoch milliseconds). A session already inside the margin is not renewed.
func (r *Reauthorizer) Schedule(sessionExpires int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}

	fireAt := time.UnixMilli(sessionExpires).Add(-r.margin)
	delay := fireAt.Sub(r.clock.Now())
	if delay <= 0 {
		return
	}
	r.timer = r.clock.AfterFunc(delay, r.renew)
}

// Stop cancels any pending renewal. Schedule does nothing afterwards.
func (r *Reauthorizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Reauthorizer) renew() {
	r.mu.Lock()
	r.timer = nil
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return
	}

	auth, err := r.auth.Authorize(r.ctx)
	if err != nil {
		log.Err(err).Msg("session renewal failed")
		return
	}
	// Stop may have been called while Authorize was running.
	if r.isStopped() {
		return
	}
	if r.onRefresh != nil {
		r.onRefresh(auth)
	}
	r.Schedule(auth.SessionExpires)
}

func (r *Reauthorizer) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}
