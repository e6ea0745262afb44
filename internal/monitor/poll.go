package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/peripheral-core/internal/alert"
	"github.com/nerrad567/peripheral-core/internal/identity"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/peripheral-core/internal/peripheral"
	"github.com/nerrad567/peripheral-core/internal/reconcile"
)

// PollResult is the outcome of one Poll.
type PollResult struct {
	Report reconcile.Report

	// Appeared and Removed are the presence changes since the previous poll.
	// Both are empty on the first poll.
	Appeared []identity.Descriptor
	Removed  []identity.Descriptor

	// NewUnregistered holds unregistered devices not reported by the
	// previous poll.
	NewUnregistered []identity.Descriptor

	// Changed holds the status changes reconciliation applied.
	Changed []peripheral.StatusResult

	// Alerts raised by synthetic events and the missing sweep.
	Alerts []alert.Alert
}

// Poll runs one detection pass. An enumeration failure aborts the pass
// before the registry is touched. Registry write failures do not stop the
// pass; they are joined into the returned error.
func (m *Monitor) Poll(ctx context.Context) (PollResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		res  PollResult
		errs []error
	)

	raws, err := m.opts.Enumerator.Enumerate(ctx)
	if err != nil {
		return res, fmt.Errorf("enumerating devices: %w", err)
	}
	live := m.opts.Resolver.ResolveAll(raws)

	if m.primed {
		res.Appeared = Diff(m.previous, live)
		res.Removed = Diff(live, m.previous)
	}
	m.previous = live
	m.primed = true

	for _, d := range res.Removed {
		if err := m.recordPresence(ctx, d, alert.EventDisconnected, &res); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range res.Appeared {
		if err := m.recordPresence(ctx, d, alert.EventConnected, &res); err != nil {
			errs = append(errs, err)
		}
	}

	registered, err := m.opts.Registry.ListForPC(ctx, m.opts.LabScope, m.opts.PCTag)
	if err != nil {
		errs = append(errs, fmt.Errorf("listing peripherals for %s: %w", m.opts.PCTag, err))
		return res, errors.Join(errs...)
	}

	res.Report = reconcile.Reconcile(reconcile.Input{
		LabScope:   m.opts.LabScope,
		PCTag:      m.opts.PCTag,
		Registered: registered,
		Live:       live,
	})
	errs = append(errs, m.apply(ctx, res.Report, &res)...)

	swept, err := m.opts.Recorder.SweepMissing(ctx, m.opts.LabScope, m.opts.PCTag)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweeping for missing units: %w", err))
	}
	res.Alerts = append(res.Alerts, swept...)

	res.NewUnregistered = Diff(m.unregistered, res.Report.Unregistered)
	m.unregistered = res.Report.Unregistered
	for _, d := range res.NewUnregistered {
		m.logger.Info("unregistered device attached",
			"unique_id", d.UniqueID, "name", d.Name, "type", d.Type)
	}

	m.publishReport(res.Report)

	m.logger.Debug("poll complete",
		"live", res.Report.Live,
		"unregistered", len(res.Report.Unregistered),
		"disconnected", len(res.Report.Disconnected),
		"reconnected", len(res.Report.Reconnected),
		"alerts", len(res.Alerts),
	)
	return res, errors.Join(errs...)
}

func (m *Monitor) recordPresence(ctx context.Context, d identity.Descriptor, typ alert.EventType, res *PollResult) error {
	r, err := m.opts.Recorder.RecordEvent(ctx, alert.EventInput{
		UniqueID:   d.UniqueID,
		Type:       typ,
		DeviceType: string(d.Type),
		DeviceName: d.Name,
		VendorID:   d.VendorID,
		ProductID:  d.ProductID,
		LabScope:   m.opts.LabScope,
		PCTag:      m.opts.PCTag,
	})
	res.Alerts = append(res.Alerts, r.Alerts...)
	if err != nil {
		return fmt.Errorf("recording %s of %s: %w", typ, d.UniqueID, err)
	}
	return nil
}

// apply moves connected units that are gone to unplugged, and unplugged or
// missing units that are back to connected. It returns one error per failed
// update.
func (m *Monitor) apply(ctx context.Context, report reconcile.Report, res *PollResult) []error {
	var errs []error
	for _, p := range report.Disconnected {
		if p.Status != peripheral.StatusConnected {
			continue
		}
		if err := m.setStatus(ctx, p, peripheral.StatusUnplugged, "not detected on pc", res); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range report.Reconnected {
		if err := m.setStatus(ctx, p, peripheral.StatusConnected, "detected on pc", res); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (m *Monitor) setStatus(ctx context.Context, p peripheral.Peripheral, st peripheral.Status, reason string, res *PollResult) error {
	results, err := m.opts.Registry.SetStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusChange{
		Status: st,
		Reason: reason,
		Actor:  reconcileActor,
		At:     m.now(),
	})
	if err != nil {
		return fmt.Errorf("reconciling peripheral %d to %s: %w", p.ID, st, err)
	}
	for _, r := range results {
		if r.Changed {
			res.Changed = append(res.Changed, r)
			m.logger.Info("peripheral status reconciled",
				"peripheral_id", r.Peripheral.ID, "from", r.Previous, "to", st)
		}
	}
	return nil
}

func (m *Monitor) publishReport(report reconcile.Report) {
	if m.opts.Telemetry != nil {
		m.opts.Telemetry.WriteReconcileStats(influxdb.ReconcilePoint{
			LabScope:     report.LabScope,
			PCTag:        report.PCTag,
			Live:         report.Live,
			Unregistered: len(report.Unregistered),
			Disconnected: len(report.Disconnected),
			Reconnected:  len(report.Reconnected),
			Timestamp:    m.now(),
		})
	}

	if m.opts.Publisher == nil || !m.opts.Publisher.IsConnected() {
		return
	}
	topic := mqtt.Topics{}.Report(report.LabScope, report.PCTag)
	if err := m.opts.Publisher.PublishJSON(topic, report, true); err != nil {
		m.logger.Warn("publishing reconciliation report failed", "topic", topic, "error", err)
	}
}
