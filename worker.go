package duct

// worker is a one-shot background task: start launches fn in a new
// goroutine; join blocks until it returns and re-raises its error,
// unchanged, at the join point. join is safe to call more than once;
// only the first call actually waits.
type worker struct {
	done chan struct{}
	err  error
}

// startWorker runs fn in a background goroutine and returns a handle
// that join can be called on.
func startWorker(fn func() error) *worker {
	w := &worker{done: make(chan struct{})}
	go func() {
		defer close(w.done)
		w.err = fn()
	}()
	return w
}

// join waits for the worker to finish and returns its captured error,
// if any. Joining twice is idempotent: the second call observes the
// same result without blocking (the channel is already closed).
func (w *worker) join() error {
	<-w.done
	return w.err
}

// joinAll joins every worker in workers and returns the first non-nil
// error encountered, after joining *all* of them: a failure on one
// stream must not skip reaping the others.
func joinAll(workers []*worker) error {
	var first error
	for _, w := range workers {
		if err := w.join(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
