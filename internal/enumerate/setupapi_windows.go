//go:build windows

package enumerate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

// Device interface classes walked on every enumeration, in order.
var deviceClasses = []struct {
	name string
	guid windows.GUID
}{
	// GUID_DEVINTERFACE_USB_DEVICE {A5DCBF10-6530-11D2-901F-00C04FB951ED}
	{"usb", windows.GUID{Data1: 0xA5DCBF10, Data2: 0x6530, Data3: 0x11D2, Data4: [8]byte{0x90, 0x1F, 0x00, 0xC0, 0x4F, 0xB9, 0x51, 0xED}}},
	// GUID_DEVINTERFACE_HID {4D1E55B2-F16F-11CF-88CB-001111000030}
	{"hid", windows.GUID{Data1: 0x4D1E55B2, Data2: 0xF16F, Data3: 0x11CF, Data4: [8]byte{0x88, 0xCB, 0x00, 0x11, 0x11, 0x00, 0x00, 0x30}}},
}

var (
	setupAPIOnce sync.Once
	setupAPIErr  error
)

// loadSetupAPI checks once that setupapi.dll loads. The x/sys/windows
// wrappers resolve procedures lazily and panic if the DLL is absent, so this
// must succeed before any SetupDi call.
func loadSetupAPI() error {
	setupAPIOnce.Do(func() {
		setupAPIErr = windows.NewLazySystemDLL("setupapi.dll").Load()
	})
	return setupAPIErr
}

func nativeCapability() Capability {
	if loadSetupAPI() != nil {
		return CapabilityLibraryMissing
	}
	return CapabilityReady
}

// SetupAPI enumerates present USB and HID device interfaces.
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

// Enumerate walks each device class with its own device-info set. A class
// that cannot be opened is logged and skipped; the call fails only when no
// class could be opened.
func (s *SetupAPI) Enumerate(ctx context.Context) ([]RawDescriptor, error) {
	if err := loadSetupAPI(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNativeLibraryUnavailable, err)
	}

	var (
		devices  []RawDescriptor
		firstErr error
		opened   int
	)
	for _, class := range deviceClasses {
		found, err := s.walkClass(ctx, class.name, &class.guid)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("device class walk failed", "class", class.name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		opened++
		devices = append(devices, found...)
	}

	if opened == 0 && firstErr != nil {
		return nil, firstErr
	}
	return devices, nil
}

// walkClass opens a device-info set for guid and reads every member. The set
// is destroyed on every return path.
func (s *SetupAPI) walkClass(ctx context.Context, className string, guid *windows.GUID) ([]RawDescriptor, error) {
	set, err := windows.SetupDiGetClassDevsEx(guid, "", 0,
		windows.DIGCF_PRESENT|windows.DIGCF_DEVICEINTERFACE, 0, "")
	if err != nil {
		return nil, fmt.Errorf("opening %s device set: %w", className, err)
	}
	defer set.Close() //nolint:errcheck // Destroying the set cannot be retried

	var devices []RawDescriptor
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := set.EnumDeviceInfo(idx)
		if err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_ITEMS) {
				break
			}
			s.logger.Warn("skipping device", "error", ReadFailure{Class: className, Index: idx, Step: "enum", Err: err})
			continue
		}

		instanceID, err := set.DeviceInstanceID(data)
		if err != nil || instanceID == "" {
			s.logger.Warn("skipping device", "error", ReadFailure{Class: className, Index: idx, Step: "instance id", Err: err})
			continue
		}

		devices = append(devices, RawDescriptor{
			InstanceID:   instanceID,
			Description:  stringProperty(set, data, windows.SPDRP_DEVICEDESC),
			FriendlyName: stringProperty(set, data, windows.SPDRP_FRIENDLYNAME),
			Manufacturer: stringProperty(set, data, windows.SPDRP_MFG),
			Class:        stringProperty(set, data, windows.SPDRP_CLASS),
		})
	}

	return devices, nil
}

// stringProperty reads a REG_SZ registry property. Absent properties are
// normal (many HID children have no friendly name) and yield "".
func stringProperty(set windows.DevInfo, data *windows.DevInfoData, prop windows.SPDRP) string {
	v, err := set.DeviceRegistryProperty(data, prop)
	if err != nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
