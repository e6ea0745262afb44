package identity

// DeviceType is the coarse category assigned to a peripheral.
type DeviceType string

const (
	Keyboard        DeviceType = "Keyboard"
	Mouse           DeviceType = "Mouse"
	FlashDrive      DeviceType = "Flash Drive"
	Printer         DeviceType = "Printer"
	CameraOrScanner DeviceType = "Camera / Scanner"
	AudioDevice     DeviceType = "Audio Device"
	UnknownDevice   DeviceType = "Unknown Device"
)

// typePriority ranks types when merging a group; higher wins.
var typePriority = map[DeviceType]int{
	Keyboard:        7,
	Mouse:           6,
	FlashDrive:      5,
	CameraOrScanner: 4,
	Printer:         3,
	AudioDevice:     2,
	UnknownDevice:   1,
}

// Priority returns the merge rank of t. Unrecognised types rank lowest.
func (t DeviceType) Priority() int {
	return typePriority[t]
}

// Descriptor is a resolved, de-duplicated peripheral identity. It lives for
// one polling cycle.
type Descriptor struct {
	VendorID      string     `json:"vendor_id"`
	ProductID     string     `json:"product_id"`
	InstanceToken string     `json:"instance_token"`
	Type          DeviceType `json:"type"`
	UniqueID      string     `json:"unique_id"`

	Name         string `json:"name"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	Class        string `json:"class"`
	InstanceID   string `json:"instance_id"`
}

// ModelKey returns the descriptor's model key; see ModelKey.
func (d Descriptor) ModelKey() (string, bool) {
	return ModelKey(d.VendorID, d.ProductID)
}

// GroupKey returns the key the descriptor was merged under.
func (d Descriptor) GroupKey() string {
	return GroupKey(d.VendorID, d.ProductID, d.InstanceToken)
}
