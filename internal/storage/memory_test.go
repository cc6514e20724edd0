package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryEngine(t *testing.T) {
	engine := NewMemoryEngine()
	defer engine.Close()

	testEngineConformance(t, engine)
}

func TestMemoryEngine_CopiesValues(t *testing.T) {
	ctx := context.Background()
	engine := NewMemoryEngine()

	value := []byte("abc")
	_ = engine.Set(ctx, []byte("k"), value)
	value[0] = 'x'

	got, _ := engine.Get(ctx, []byte("k"))
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller slice: %s", got)
	}
	got[1] = 'y'
	again, _ := engine.Get(ctx, []byte("k"))
	if string(again) != "abc" {
		t.Errorf("returned value aliased stored slice: %s", again)
	}
}

func TestMemoryEngine_Closed(t *testing.T) {
	ctx := context.Background()
	engine := NewMemoryEngine()
	_ = engine.Set(ctx, []byte("k"), []byte("v"))

	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := engine.Get(ctx, []byte("k")); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after close = %v, want ErrClosed", err)
	}
	if err := engine.Set(ctx, []byte("k"), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Set() after close = %v, want ErrClosed", err)
	}
}
