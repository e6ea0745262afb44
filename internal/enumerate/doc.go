// Package enumerate lists the USB and HID peripherals currently attached to
// the host.
//
// On Windows the SetupAPI device-interface classes GUID_DEVINTERFACE_USB_DEVICE
// and GUID_DEVINTERFACE_HID are walked and each present device yields one
// RawDescriptor. Other platforms have no implementation: Enumerate returns an
// empty list with ErrPlatformUnsupported so callers can tell "nothing
// attached" apart from "cannot look".
//
// Native calls can hang on misbehaving drivers. Wrap an Enumerator with
// WithTimeout to bound each call.
package enumerate
