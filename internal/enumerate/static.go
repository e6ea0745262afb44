package enumerate

import (
	"context"
	"sync"
)

// Static is an Enumerator that returns a fixed device list. It stands in for
// the native enumerator on hosts without one and in tests.
type Static struct {
	mu      sync.Mutex
	devices []RawDescriptor
	err     error
}

// NewStatic returns a Static enumerator reporting devices.
func NewStatic(devices ...RawDescriptor) *Static {
	return &Static{devices: devices}
}

// Set replaces the reported device list and clears any error.
func (s *Static) Set(devices ...RawDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = devices
	s.err = nil
}

// Fail makes subsequent Enumerate calls return err.
func (s *Static) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Enumerate returns a copy of the configured devices.
func (s *Static) Enumerate(ctx context.Context) ([]RawDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]RawDescriptor, len(s.devices))
	copy(out, s.devices)
	return out, nil
}
