package enumerate

import "errors"

// Domain errors for enumeration.
var (
	// ErrPlatformUnsupported means the host OS has no device-enumeration
	// facility this package can use.
	ErrPlatformUnsupported = errors.New("enumerate: platform unsupported")

	// ErrNativeLibraryUnavailable means the platform is supported but the
	// native device-setup library could not be loaded.
	ErrNativeLibraryUnavailable = errors.New("enumerate: native device library unavailable")

	// ErrEnumerationTimeout means a native enumeration call did not return
	// within the watchdog deadline.
	ErrEnumerationTimeout = errors.New("enumerate: enumeration timed out")
)
