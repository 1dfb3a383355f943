package duct

import (
	"errors"
	"testing"
)

func TestWorkerJoinReturnsValue(t *testing.T) {
	w := startWorker(func() error { return nil })
	if err := w.join(); err != nil {
		t.Fatalf("join() error = %v, want nil", err)
	}
}

func TestWorkerJoinReraisesError(t *testing.T) {
	want := errors.New("boom")
	w := startWorker(func() error { return want })
	if got := w.join(); got != want {
		t.Errorf("join() = %v, want %v", got, want)
	}
}

func TestWorkerJoinIdempotent(t *testing.T) {
	want := errors.New("boom")
	w := startWorker(func() error { return want })
	w.join()
	if got := w.join(); got != want {
		t.Errorf("second join() = %v, want %v", got, want)
	}
}

func TestJoinAllReapsEveryWorkerBeforeReturningFirstError(t *testing.T) {
	reaped := make([]bool, 3)
	w0 := startWorker(func() error { reaped[0] = true; return nil })
	w1 := startWorker(func() error { reaped[1] = true; return errors.New("left failed") })
	w2 := startWorker(func() error { reaped[2] = true; return errors.New("right failed") })

	err := joinAll([]*worker{w0, w1, w2})
	if err == nil {
		t.Fatal("joinAll() error = nil, want non-nil")
	}
	if err.Error() != "left failed" {
		t.Errorf("joinAll() = %v, want the first worker's error", err)
	}
	for i, r := range reaped {
		if !r {
			t.Errorf("worker %d was not reaped", i)
		}
	}
}
