package loader

import "context"

// Future is the pending value of a load.
// All callers that load a section while its retrieval is outstanding
// share the same Future and observe the same Result.
type Future struct {
	done   chan struct{}
	result Result
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolvedFuture(r Result) *Future {
	f := newFuture()
	f.resolve(r)
	return f
}

// resolve must be called exactly once.
func (f *Future) resolve(r Result) {
	f.result = r
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the load settles.
// Loads always settle: failures and timeouts resolve to fallback results.
func (f *Future) Result() Result {
	<-f.done
	return f.result
}

// Wait blocks until the load settles or ctx is done.
// Giving up on a Future does not cancel the shared retrieval.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, nil
	default:
	}
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
