// Package reconcile diffs the devices enumerated on a PC against the
// peripherals registered to it.
//
// Reconcile is a pure function: it performs no I/O and its report depends
// only on its input. Devices are matched by model key (vendor and product);
// a peripheral without a known model falls back to its unique id. Unknown
// models never match each other.
package reconcile

import (
	"github.com/nerrad567/peripheral-core/internal/identity"
	"github.com/nerrad567/peripheral-core/internal/peripheral"
)

// Input is one PC's registry snapshot and live device set.
type Input struct {
	LabScope   string
	PCTag      string
	Registered []peripheral.Peripheral
	Live       []identity.Descriptor
}

// Report is the outcome of one reconciliation pass. The three sets are
// disjoint.
type Report struct {
	LabScope string `json:"lab_scope"`
	PCTag    string `json:"pc_tag"`

	// Unregistered holds live devices whose model is not registered to the
	// PC, one entry per model.
	Unregistered []identity.Descriptor `json:"unregistered"`

	// Disconnected holds registered peripherals absent from the live set.
	Disconnected []peripheral.Peripheral `json:"disconnected"`

	// Reconnected holds registered peripherals that are unplugged or missing
	// but present in the live set again.
	Reconnected []peripheral.Peripheral `json:"reconnected"`

	// Live is the number of live devices considered.
	Live int `json:"live"`
}

// Empty reports whether the pass found nothing to act on.
func (r Report) Empty() bool {
	return len(r.Unregistered) == 0 && len(r.Disconnected) == 0 && len(r.Reconnected) == 0
}

// Reconcile computes the report for in.
func Reconcile(in Input) Report {
	report := Report{
		LabScope:     in.LabScope,
		PCTag:        in.PCTag,
		Unregistered: []identity.Descriptor{},
		Disconnected: []peripheral.Peripheral{},
		Reconnected:  []peripheral.Peripheral{},
		Live:         len(in.Live),
	}

	registeredIDs := make(map[string]bool, len(in.Registered))
	registeredModels := make(map[string]bool, len(in.Registered))
	for _, p := range in.Registered {
		if p.UniqueID != "" {
			registeredIDs[p.UniqueID] = true
		}
		if key, ok := p.ModelKey(); ok {
			registeredModels[key] = true
		}
	}

	liveIDs := make(map[string]bool, len(in.Live))
	liveModels := make(map[string]bool, len(in.Live))
	reported := make(map[string]bool)
	for _, d := range in.Live {
		liveIDs[d.UniqueID] = true
		key, known := d.ModelKey()
		if known {
			liveModels[key] = true
		}

		if registeredIDs[d.UniqueID] {
			continue
		}
		if known && registeredModels[key] {
			continue
		}

		dedup := d.UniqueID
		if known {
			dedup = key
		}
		if reported[dedup] {
			continue
		}
		reported[dedup] = true
		report.Unregistered = append(report.Unregistered, d)
	}

	for _, p := range in.Registered {
		var present bool
		if key, ok := p.ModelKey(); ok {
			present = liveModels[key]
		} else {
			present = p.UniqueID != "" && liveIDs[p.UniqueID]
		}

		switch {
		case !present:
			report.Disconnected = append(report.Disconnected, p)
		case p.Status == peripheral.StatusUnplugged || p.Status == peripheral.StatusMissing:
			report.Reconnected = append(report.Reconnected, p)
		}
	}

	return report
}
