package lifecycle

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/rs/zerolog"
)

func TestDispatchReachesEveryNotifier(t *testing.T) {
	got := make(chan string, 3)
	d := NewDispatcher(zerolog.New(io.Discard), time.Second,
		NotifierFunc(func(ctx context.Context, evt Event) error {
			got <- "a:" + string(evt.To)
			return nil
		}),
		NotifierFunc(func(ctx context.Context, evt Event) error {
			got <- "b:" + string(evt.To)
			return errors.New("broker down")
		}),
		NotifierFunc(func(ctx context.Context, evt Event) error {
			panic("boom")
		}),
	)

	d.Dispatch(Event{OrderID: uuid.New(), To: models.StageConfirmed})
	d.Wait()
	close(got)

	seen := map[string]bool{}
	for s := range got {
		seen[s] = true
	}
	if !seen["a:confirmed"] || !seen["b:confirmed"] {
		t.Fatalf("expected both notifiers to run, got %v", seen)
	}
}

func TestDispatchDoesNotBlockOnSlowNotifier(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(zerolog.New(io.Discard), time.Second,
		NotifierFunc(func(ctx context.Context, evt Event) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return ctx.Err()
		}),
	)

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{OrderID: uuid.New(), To: models.StageReady})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Dispatch blocked on a slow notifier")
	}
	close(release)
	d.Wait()
}
