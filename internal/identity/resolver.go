package identity

import (
	"strings"

	"github.com/nerrad567/peripheral-core/internal/enumerate"
)

// trackedPrefixes are the instance-id buses that carry user-attachable
// peripherals.
var trackedPrefixes = []string{`USB\`, `HID\`}

// Logger defines the logging interface used by the Resolver.
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

// Resolver parses, filters, classifies and groups raw descriptors.
// It holds no state between calls and is safe for concurrent use.
type Resolver struct {
	logger Logger
}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{logger: noopLogger{}}
}

// SetLogger sets the logger used to report filtered devices.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// Resolve turns a single raw descriptor into a Descriptor. ok is false when
// the device is built-in hardware.
func (r *Resolver) Resolve(raw enumerate.RawDescriptor) (d Descriptor, ok bool) {
	vid, pid, token := ParseInstanceID(raw.InstanceID)
	if IsBuiltIn(raw, vid, pid) {
		r.logger.Debug("filtered built-in device", "instance_id", raw.InstanceID, "name", raw.Name())
		return Descriptor{}, false
	}

	return Descriptor{
		VendorID:      vid,
		ProductID:     pid,
		InstanceToken: token,
		Type:          Classify(raw),
		UniqueID:      UniqueID(vid, pid, token),
		Name:          raw.Name(),
		Description:   raw.Description,
		Manufacturer:  raw.Manufacturer,
		Class:         raw.Class,
		InstanceID:    raw.InstanceID,
	}, true
}

// group accumulates the descriptors sharing one group key.
type group struct {
	first Descriptor
	best  DeviceType
}

// ResolveAll resolves every USB and HID descriptor in raws and merges those
// that share vendor, product and token. Each group keeps the metadata of its
// first member and the highest-priority member type. Groups that stay
// UnknownDevice and are named as vendor-defined or system-controller
// collections are dropped. Output order follows first appearance.
func (r *Resolver) ResolveAll(raws []enumerate.RawDescriptor) []Descriptor {
	groups := make(map[string]*group)
	var order []string

	for _, raw := range raws {
		if !hasTrackedPrefix(raw.InstanceID) {
			continue
		}
		d, ok := r.Resolve(raw)
		if !ok {
			continue
		}

		key := d.GroupKey()
		g, seen := groups[key]
		if !seen {
			groups[key] = &group{first: d, best: d.Type}
			order = append(order, key)
			continue
		}
		if d.Type.Priority() > g.best.Priority() {
			g.best = d.Type
		}
	}

	out := make([]Descriptor, 0, len(order))
	for _, key := range order {
		g := groups[key]
		d := g.first
		d.Type = g.best

		if d.Type == UnknownDevice {
			name := strings.ToLower(d.Name + " " + d.Description)
			if containsAny(name, "vendor-defined", "system controller") {
				r.logger.Debug("dropped unclassified collection", "unique_id", d.UniqueID, "name", d.Name)
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

func hasTrackedPrefix(instanceID string) bool {
	upper := strings.ToUpper(instanceID)
	for _, p := range trackedPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}
