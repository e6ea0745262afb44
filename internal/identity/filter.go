package identity

import (
	"strings"

	"github.com/nerrad567/peripheral-core/internal/enumerate"
)

// builtInKeywords mark integrated hardware when found in the device name or
// manufacturer.
var builtInKeywords = []string{
	"intel",
	"wireless bluetooth",
	"bluetooth adapter",
	"synaptics",
	"touchpad",
	"touch pad",
	"pointstyk",
	"stykfhid",
	"hid-compliant touch pad",
	"hid-compliant touchpad",
	"system controller",
	"vendor-defined device",
	"consumer control",
	"hid-compliant vendor-defined device",
	"hid-compliant system controller",
	"microsoft input configuration",
	"wireless radio controls",
	"usb root hub",
	"usb hub",
	"realtek",
	"high definition audio",
}

// audioChipsetKeywords identify onboard audio codecs. A headset reported
// through one of them is still an external device.
var audioChipsetKeywords = []string{"realtek", "high definition audio", "conexant"}

// hidOnlyKeywords are filtered for HIDClass devices only.
var hidOnlyKeywords = []string{"touchpad", "touch pad", "vendor-defined", "system controller", "consumer control"}

// genericHIDNames are the names Windows gives HID collections of composite
// devices. On their own they say nothing about the physical unit.
var genericHIDNames = []string{"hid keyboard device", "hid-compliant keyboard", "hid-compliant mouse"}

// IsBuiltIn reports whether raw describes integrated hardware that should
// never be tracked. vendorID and productID are the parsed ids of raw.
func IsBuiltIn(raw enumerate.RawDescriptor, vendorID, productID string) bool {
	name := strings.ToLower(strings.TrimSpace(raw.Description + " " + raw.FriendlyName))
	mfg := strings.ToLower(strings.TrimSpace(raw.Manufacturer))
	class := strings.ToLower(strings.TrimSpace(raw.Class))

	if containsAny(name, "headphone", "headset") &&
		(containsAny(mfg, audioChipsetKeywords...) || containsAny(name, audioChipsetKeywords...)) {
		return false
	}

	if containsAny(name, builtInKeywords...) || containsAny(mfg, builtInKeywords...) {
		return true
	}

	if class == "hidclass" && containsAny(name, hidOnlyKeywords...) {
		return true
	}

	unknownIDs := vendorID == Unknown || productID == Unknown
	if unknownIDs && containsAny(name, genericHIDNames...) {
		return true
	}
	if unknownIDs && isGenericManufacturer(mfg) && hasCompositeLineage(raw, name, mfg) {
		return true
	}

	return false
}

func isGenericManufacturer(mfg string) bool {
	return mfg == "" || strings.Contains(mfg, "standard") || strings.Contains(mfg, "generic")
}

// hasCompositeLineage reports whether the device is a child interface of a
// composite USB device (MI_xx in the instance id) or says so in its name.
func hasCompositeLineage(raw enumerate.RawDescriptor, name, mfg string) bool {
	return strings.Contains(strings.ToUpper(raw.InstanceID), "&MI_") ||
		strings.Contains(name, "composite") ||
		strings.Contains(mfg, "composite")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
