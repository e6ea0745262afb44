package enumerate

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// Capability says whether native enumeration can run on this host.
type Capability string

const (
	CapabilityReady               Capability = "ready"
	CapabilityUnsupportedPlatform Capability = "unsupported-platform"
	CapabilityLibraryMissing      Capability = "library-missing"
)

// CapabilityReport describes the host and its enumeration capability.
type CapabilityReport struct {
	Capability      Capability `json:"capability"`
	OS              string     `json:"os"`
	Platform        string     `json:"platform"`
	PlatformVersion string     `json:"platform_version"`
	Message         string     `json:"message"`
}

// Compatible reports whether native enumeration is available.
func (r CapabilityReport) Compatible() bool {
	return r.Capability == CapabilityReady
}

// Err maps the capability to its sentinel error, or nil when ready.
func (r CapabilityReport) Err() error {
	switch r.Capability {
	case CapabilityReady:
		return nil
	case CapabilityLibraryMissing:
		return ErrNativeLibraryUnavailable
	default:
		return ErrPlatformUnsupported
	}
}

// DetectCapability checks the platform and native library without
// enumerating any devices. Host details come from gopsutil; if that lookup
// fails the report falls back to runtime.GOOS.
func DetectCapability(ctx context.Context) CapabilityReport {
	report := CapabilityReport{
		Capability: nativeCapability(),
		OS:         runtime.GOOS,
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		report.OS = info.OS
		report.Platform = info.Platform
		report.PlatformVersion = info.PlatformVersion
	}

	switch report.Capability {
	case CapabilityReady:
		report.Message = "USB device detection is available"
	case CapabilityLibraryMissing:
		report.Message = "setupapi.dll could not be loaded; USB device detection is disabled"
	default:
		report.Message = fmt.Sprintf("USB device detection requires Windows (running on %s)", report.OS)
	}
	return report
}

// Hostname returns the host name used as the default PC tag.
func Hostname(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("reading host info: %w", err)
	}
	if info.Hostname == "" {
		return "", fmt.Errorf("reading host info: empty hostname")
	}
	return info.Hostname, nil
}
