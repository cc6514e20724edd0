package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func waitAsync(h *Handler, ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(ctx) }()
	return errCh
}

func await(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
		return nil
	}
}

func TestHandler_ReverseOrder(t *testing.T) {
	h := NewHandler(time.Second, nil)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"storage", "sweeper", "metrics"} {
		h.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	errCh := waitAsync(h, context.Background())
	h.Trigger("test")
	if err := await(t, errCh); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	want := []string{"metrics", "sweeper", "storage"}
	if len(order) != len(want) {
		t.Fatalf("hooks ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("hooks ran %v, want %v", order, want)
		}
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done() not closed after Wait")
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second, nil)
	ran := false
	h.OnShutdown("flag", func(context.Context) error {
		ran = true
		return nil
	})

	errCh := waitAsync(h, context.Background())
	time.Sleep(50 * time.Millisecond)
	syscall.Kill(syscall.Getpid(), syscall.SIGTERM)

	if err := await(t, errCh); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !ran {
		t.Error("hook did not run")
	}
}

func TestHandler_ContextDone(t *testing.T) {
	h := NewHandler(time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := waitAsync(h, ctx)
	cancel()
	if err := await(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestHandler_HookErrors(t *testing.T) {
	h := NewHandler(time.Second, nil)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	h.OnShutdown("a", func(context.Context) error { return errA })
	h.OnShutdown("ok", func(context.Context) error { return nil })
	h.OnShutdown("b", func(context.Context) error { return errB })

	errCh := waitAsync(h, context.Background())
	h.Trigger("test")
	err := await(t, errCh)

	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Wait() error = %v, want both hook errors", err)
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(20*time.Millisecond, nil)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(h, context.Background())
	h.Trigger("test")
	if err := await(t, errCh); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestHandler_TriggerTwice(t *testing.T) {
	h := NewHandler(time.Second, nil)
	h.Trigger("first")
	h.Trigger("second")

	if err := h.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}
