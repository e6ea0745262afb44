//go:build !windows

package enumerate

import "context"

// SetupAPI is the native enumerator. Outside Windows it reports no devices.
type SetupAPI struct {
	logger Logger
}

// NewSetupAPI returns the native enumerator for this platform.
func NewSetupAPI() *SetupAPI {
	return &SetupAPI{logger: noopLogger{}}
}

// SetLogger sets the logger used for per-device read failures.
func (s *SetupAPI) SetLogger(logger Logger) {
	s.logger = logger
}

// Enumerate returns an empty list and ErrPlatformUnsupported.
func (s *SetupAPI) Enumerate(context.Context) ([]RawDescriptor, error) {
	return []RawDescriptor{}, ErrPlatformUnsupported
}

func nativeCapability() Capability {
	return CapabilityUnsupportedPlatform
}
