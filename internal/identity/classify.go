package identity

import (
	"strings"

	"github.com/nerrad567/peripheral-core/internal/enumerate"
)

// Classify assigns a DeviceType from the name, class and instance id of raw.
// Rules are checked in order and the first match wins. This order is
// independent of Priority: a single interface matching both printer and
// scanner is a printer, while grouping a device's interfaces still prefers
// a CameraOrScanner member over a Printer one.
func Classify(raw enumerate.RawDescriptor) DeviceType {
	name := strings.ToLower(raw.Description + " " + raw.FriendlyName)
	class := strings.ToLower(raw.Class)
	id := strings.ToLower(raw.InstanceID)

	switch {
	case strings.Contains(name, "keyboard") || strings.Contains(id, "keyboard") || class == "keyboard":
		return Keyboard
	case strings.Contains(name, "mouse") || strings.Contains(id, "mouse") || class == "mouse":
		return Mouse
	case strings.Contains(id, "usbstor") || containsAny(name, "disk", "removable", "mass storage"):
		return FlashDrive
	case strings.Contains(name, "printer") || class == "printer":
		return Printer
	case containsAny(name, "camera", "webcam", "scanner") || class == "image" || class == "camera":
		return CameraOrScanner
	case containsAny(name, "headphone", "headset"):
		return AudioDevice
	case class == "hidclass" && strings.HasPrefix(id, `hid\`):
		// Top-level HID input collections ("USB Input Device") are almost
		// always the keyboard half of a receiver or combo.
		return Keyboard
	default:
		return UnknownDevice
	}
}
