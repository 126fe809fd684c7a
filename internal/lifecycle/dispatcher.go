package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier consumes committed transition events (websocket fan-out, event
// stream, cache refresh). Implementations may block up to the context
// deadline; their errors are logged and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, evt Event) error

func (f NotifierFunc) Notify(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Dispatcher fans events out to notifiers without blocking the caller
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	log       zerolog.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(log zerolog.Logger, timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		notifiers: notifiers,
		timeout:   timeout,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
}

// Add registers another notifier. Not safe to call concurrently with Dispatch.
func (d *Dispatcher) Add(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

// Dispatch delivers evt to every notifier in its own goroutine and returns
// immediately
func (d *Dispatcher) Dispatch(evt Event) {
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go d.deliver(n, evt)
	}
}

func (d *Dispatcher) deliver(n Notifier, evt Event) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("order_id", evt.OrderID.String()).
				Str("panic", fmt.Sprint(r)).
				Msg("notifier panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := n.Notify(ctx, evt); err != nil {
		d.log.Warn().Err(err).
			Str("order_id", evt.OrderID.String()).
			Str("stage", string(evt.To)).
			Msg("failed to deliver stage event")
	}
}

// Wait blocks until every in-flight delivery finished. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
