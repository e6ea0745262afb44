package monitor

import "github.com/nerrad567/peripheral-core/internal/identity"

// Diff returns the devices in current whose unique id is not in previous,
// in current's order.
func Diff(previous, current []identity.Descriptor) []identity.Descriptor {
	seen := make(map[string]bool, len(previous))
	for _, d := range previous {
		seen[d.UniqueID] = true
	}

	var added []identity.Descriptor
	for _, d := range current {
		if seen[d.UniqueID] {
			continue
		}
		seen[d.UniqueID] = true
		added = append(added, d)
	}
	return added
}
