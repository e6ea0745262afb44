package enumerate

import (
	"context"
	"errors"
	"time"
)

type timeoutEnumerator struct {
	inner   Enumerator
	timeout time.Duration
}

// WithTimeout bounds every Enumerate call on e to d. When the deadline passes
// the call returns ErrEnumerationTimeout; the inner call is left to finish on
// its own goroutine because a blocked native call cannot be interrupted.
func WithTimeout(e Enumerator, d time.Duration) Enumerator {
	return &timeoutEnumerator{inner: e, timeout: d}
}

type enumResult struct {
	devices []RawDescriptor
	err     error
}

func (t *timeoutEnumerator) Enumerate(ctx context.Context) ([]RawDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan enumResult, 1)
	go func() {
		devices, err := t.inner.Enumerate(ctx)
		done <- enumResult{devices: devices, err: err}
	}()

	select {
	case r := <-done:
		return r.devices, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrEnumerationTimeout
		}
		return nil, ctx.Err()
	}
}
