package enumerate

import (
	"context"
	"fmt"
)

// RawDescriptor is one device as reported by the OS, before any identity
// parsing or filtering. It lives for a single enumeration call.
type RawDescriptor struct {
	// InstanceID is the OS device-instance path,
	// e.g. USB\VID_046D&PID_C077\5&2B5A4F0&0&2.
	InstanceID string `json:"instance_id"`

	// Description is SPDRP_DEVICEDESC.
	Description string `json:"description"`

	// FriendlyName is SPDRP_FRIENDLYNAME; often empty for HID children.
	FriendlyName string `json:"friendly_name"`

	Manufacturer string `json:"manufacturer"`

	// Class is the setup class name (SPDRP_CLASS), e.g. HIDClass, USB, Image.
	Class string `json:"class"`
}

// Name returns the best human-readable name for the device.
func (d RawDescriptor) Name() string {
	if d.FriendlyName != "" {
		return d.FriendlyName
	}
	return d.Description
}

// Enumerator lists currently attached peripherals.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]RawDescriptor, error)
}

// EnumeratorFunc adapts a plain function to the Enumerator interface.
type EnumeratorFunc func(ctx context.Context) ([]RawDescriptor, error)

// Enumerate calls f.
func (f EnumeratorFunc) Enumerate(ctx context.Context) ([]RawDescriptor, error) {
	return f(ctx)
}

// ReadFailure describes one device that could not be read during a walk.
// It is logged and the device skipped; it never fails the enumeration.
type ReadFailure struct {
	Class string
	Index int
	Step  string
	Err   error
}

func (f ReadFailure) Error() string {
	return fmt.Sprintf("enumerate: reading %s device %d (%s): %v", f.Class, f.Index, f.Step, f.Err)
}

func (f ReadFailure) Unwrap() error {
	return f.Err
}

// Logger defines the logging interface used by enumerators.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
