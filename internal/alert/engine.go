package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/peripheral-core/internal/identity"
	"github.com/nerrad567/peripheral-core/internal/peripheral"
)

// Actor recorded on status changes the engine makes on its own.
const systemActor = "system"

// Thresholds tune the anomaly classifiers.
type Thresholds struct {
	// FaultyCycles connect→disconnect pairs within FaultyWindow mark a unit faulty.
	FaultyCycles int
	FaultyWindow time.Duration

	// MissingAfter is how long a unit may stay disconnected before it is missing.
	MissingAfter time.Duration
}

// DefaultThresholds returns 3 cycles in 10 minutes and 600 seconds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FaultyCycles: 3,
		FaultyWindow: 10 * time.Minute,
		MissingAfter: 600 * time.Second,
	}
}

// EventInput is an event as reported by a PC agent or the poller.
type EventInput struct {
	UniqueID   string
	Type       EventType
	DeviceType string
	DeviceName string
	VendorID   string
	ProductID  string
	LabScope   string
	PCTag      string
	Principal  string

	// Timestamp defaults to the engine clock when zero.
	Timestamp time.Time
}

// Engine drives peripheral statuses from events and raises alerts.
type Engine struct {
	registry   Registry
	machine    *peripheral.StateMachine
	thresholds Thresholds
	notifier   Notifier
	logger     Logger
	now        func() time.Time
}

// NewEngine creates an Engine over registry.
func NewEngine(registry Registry, thresholds Thresholds) *Engine {
	return &Engine{
		registry:   registry,
		machine:    peripheral.NewStateMachine(registry),
		thresholds: thresholds,
		notifier:   noopNotifier{},
		logger:     noopLogger{},
		now:        time.Now,
	}
}

// SetLogger sets the logger for the engine and its state machine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
	e.machine.SetLogger(logger)
}

// SetNotifier sets the receiver for recorded events and raised alerts.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// SetClock replaces the engine's time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.machine.SetClock(now)
}

// target is the registered peripheral an event refers to.
type target struct {
	p *peripheral.Peripheral

	// exact is true when the unique ids match, false for a same-model
	// unit on a different port.
	exact bool
}

// RecordEvent processes one connect/disconnect event. Every Registry write
// failure is returned. Read failures inside the faulty and missing
// classifiers are logged and skip that classifier.
func (e *Engine) RecordEvent(ctx context.Context, in EventInput) (Result, error) {
	ev, err := e.newEvent(in)
	if err != nil {
		return Result{}, err
	}

	if rejected, err := e.checkSession(ctx, ev); err != nil {
		return Result{}, err
	} else if rejected {
		e.logger.Warn("event rejected: session bound to another pc",
			"principal", ev.Principal, "pc_tag", ev.PCTag, "unique_id", ev.UniqueID)
		return Result{Rejected: true, RejectReason: ErrSessionMismatch}, nil
	}

	if err := e.registry.AppendEvent(ctx, ev); err != nil {
		return Result{}, fmt.Errorf("appending event: %w", err)
	}
	e.notifier.EventRecorded(ctx, *ev)

	res := Result{Event: ev}

	peripherals, err := e.registry.ListForPC(ctx, ev.LabScope, ev.PCTag)
	if err != nil {
		return res, fmt.Errorf("listing peripherals for %s: %w", ev.PCTag, err)
	}
	tgt, spare, err := e.findTarget(ctx, peripherals, ev)
	if err != nil {
		return res, err
	}

	switch ev.Type {
	case EventConnected:
		err = e.handleConnect(ctx, ev, tgt, spare, peripherals, &res)
	case EventDisconnected:
		err = e.handleDisconnect(ctx, ev, tgt, &res)
	}
	if err != nil {
		return res, err
	}

	if tgt != nil {
		if err := e.classifyFaulty(ctx, ev, tgt.p, &res); err != nil {
			return res, err
		}
		if err := e.classifyMissing(ctx, ev.UniqueID, tgt.p, &res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func (e *Engine) newEvent(in EventInput) (*Event, error) {
	if strings.TrimSpace(in.UniqueID) == "" {
		return nil, fmt.Errorf("%w: unique id is required", ErrInvalidEvent)
	}
	typ, err := ParseEventType(string(in.Type))
	if err != nil {
		return nil, err
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}

	vid, pid := in.VendorID, in.ProductID
	if vid == "" && pid == "" {
		// Agents may omit ids; recover them from the fingerprint.
		vid, pid = parseUniqueIDModel(in.UniqueID)
	}

	return &Event{
		UniqueID:   strings.TrimSpace(in.UniqueID),
		Type:       typ,
		DeviceType: in.DeviceType,
		DeviceName: in.DeviceName,
		VendorID:   strings.ToUpper(vid),
		ProductID:  strings.ToUpper(pid),
		LabScope:   in.LabScope,
		PCTag:      in.PCTag,
		Principal:  in.Principal,
		// Stored with second precision; keep the in-memory copy identical.
		Timestamp: ts.UTC().Truncate(time.Second),
	}, nil
}

// parseUniqueIDModel extracts vendor and product from a VID_x_PID_y_INST_z
// fingerprint.
func parseUniqueIDModel(uniqueID string) (vid, pid string) {
	vid, pid, _ = identity.ParseInstanceID(uniqueID)
	if vid == identity.Unknown {
		vid = ""
	}
	if pid == identity.Unknown {
		pid = ""
	}
	return vid, pid
}

func (e *Engine) checkSession(ctx context.Context, ev *Event) (rejected bool, err error) {
	if ev.Principal == "" || ev.PCTag == "" {
		return false, nil
	}
	pc, ok, err := e.registry.ActivePC(ctx, ev.Principal)
	if err != nil {
		return false, fmt.Errorf("looking up session for %s: %w", ev.Principal, err)
	}
	return ok && pc != ev.PCTag, nil
}

// findTarget returns the registered unit the event is about. An exact
// unique-id match wins. Otherwise a registered unit of the same model on the
// PC is the target when it is not attached under its own id, i.e. it moved
// port. When it is attached, spare is true: the event comes from a second
// unit of a registered model and belongs to no registered peripheral.
func (e *Engine) findTarget(ctx context.Context, peripherals []peripheral.Peripheral, ev *Event) (tgt *target, spare bool, err error) {
	for i := range peripherals {
		if peripherals[i].UniqueID != "" && peripherals[i].UniqueID == ev.UniqueID {
			return &target{p: &peripherals[i], exact: true}, false, nil
		}
	}
	key, ok := identity.ModelKey(ev.VendorID, ev.ProductID)
	if !ok {
		return nil, false, nil
	}
	for i := range peripherals {
		p := &peripherals[i]
		if pk, ok := p.ModelKey(); !ok || pk != key {
			continue
		}
		attached, err := e.attachedUnderOwnID(ctx, p)
		if err != nil {
			return nil, false, err
		}
		if attached {
			return nil, true, nil
		}
		return &target{p: p}, false, nil
	}
	return nil, false, nil
}

// attachedUnderOwnID reports whether p's registered unique id is plugged in:
// its latest event is a connect or, with no events yet, p is connected.
func (e *Engine) attachedUnderOwnID(ctx context.Context, p *peripheral.Peripheral) (bool, error) {
	if p.UniqueID == "" {
		return false, nil
	}
	latest, err := e.registry.LatestEvent(ctx, p.UniqueID)
	if err != nil {
		return false, fmt.Errorf("reading latest event of %s: %w", p.UniqueID, err)
	}
	if latest == nil {
		return p.Status == peripheral.StatusConnected, nil
	}
	return latest.Type == EventConnected, nil
}

// refresh copies p's row after a status change out of results.
func refresh(p *peripheral.Peripheral, results []peripheral.StatusResult) {
	for _, r := range results {
		if r.Peripheral.ID == p.ID {
			*p = r.Peripheral
		}
	}
}

// slotOccupant returns the registered unit holding the device-type slot the
// event's device would fill. Units not currently connected are preferred.
func slotOccupant(peripherals []peripheral.Peripheral, deviceType string) *peripheral.Peripheral {
	if deviceType == "" {
		return nil
	}
	var first *peripheral.Peripheral
	for i := range peripherals {
		p := &peripherals[i]
		if !strings.EqualFold(p.DeviceType, deviceType) {
			continue
		}
		if p.Status != peripheral.StatusConnected {
			return p
		}
		if first == nil {
			first = p
		}
	}
	return first
}

func (e *Engine) handleConnect(ctx context.Context, ev *Event, tgt *target, spare bool, peripherals []peripheral.Peripheral, res *Result) error {
	if tgt != nil {
		results, err := e.setStatus(ctx, tgt.selector(ev), peripheral.StatusConnected, "device connected", ev, res)
		if err != nil {
			return err
		}
		refresh(tgt.p, results)
		return nil
	}
	if spare {
		e.logger.Debug("another unit of a registered model connected", "unique_id", ev.UniqueID, "pc_tag", ev.PCTag)
		return nil
	}

	occupant := slotOccupant(peripherals, ev.DeviceType)
	if occupant == nil {
		e.logger.Debug("unregistered device connected", "unique_id", ev.UniqueID, "pc_tag", ev.PCTag)
		return nil
	}

	reason := fmt.Sprintf("slot taken by %s", ev.UniqueID)
	results, err := e.setStatus(ctx, peripheral.ByID(occupant.ID), peripheral.StatusReplaced, reason, ev, res)
	if err != nil {
		return err
	}
	for _, r := range results {
		if !r.Changed {
			continue
		}
		if err := e.raise(ctx, TypeReplaced, ev.UniqueID, r.Peripheral, ev, systemActor, res); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) handleDisconnect(ctx context.Context, ev *Event, tgt *target, res *Result) error {
	if tgt == nil {
		return nil
	}
	results, err := e.setStatus(ctx, tgt.selector(ev), peripheral.StatusUnplugged, "device disconnected", ev, res)
	if err != nil {
		return err
	}
	refresh(tgt.p, results)
	return nil
}

// selector picks the target by identity within the event's lab and PC for
// exact matches, and by primary key for a unit that moved port.
func (t *target) selector(ev *Event) peripheral.Selector {
	if t.exact {
		return peripheral.ByIdentity(ev.PCTag, ev.UniqueID).InLab(ev.LabScope)
	}
	return peripheral.ByID(t.p.ID)
}

// classifyFaulty counts connect→disconnect pairs in the window ending at the
// event. While the count is at or above the threshold the unit is held
// faulty; an alert is raised only on the event that crosses the threshold.
// Only write failures are returned.
func (e *Engine) classifyFaulty(ctx context.Context, ev *Event, p *peripheral.Peripheral, res *Result) error {
	since := ev.Timestamp.Add(-e.thresholds.FaultyWindow)
	events, err := e.registry.EventsSince(ctx, ev.UniqueID, since)
	if err != nil {
		e.logger.Error("faulty classification skipped", "unique_id", ev.UniqueID, "error", err)
		return nil
	}

	var upTo, before []Event
	for _, x := range events {
		if x.Timestamp.After(ev.Timestamp) {
			continue
		}
		upTo = append(upTo, x)
		if x.ID != ev.ID {
			before = append(before, x)
		}
	}

	cycles := CountCycles(upTo)
	if cycles < e.thresholds.FaultyCycles {
		return nil
	}
	crossed := CountCycles(before) < e.thresholds.FaultyCycles

	reason := fmt.Sprintf("%d connect/disconnect cycles within %s", cycles, e.thresholds.FaultyWindow)
	results, err := e.setStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusFaulty, reason, ev, res)
	if err != nil {
		return err
	}
	refresh(p, results)
	for _, r := range results {
		if !r.Changed || !crossed {
			continue
		}
		if err := e.raise(ctx, TypeFaulty, ev.UniqueID, r.Peripheral, ev, systemActor, res); err != nil {
			return err
		}
	}
	return nil
}

// CountCycles counts adjacent connected→disconnected pairs in events, which
// must be in chronological order.
func CountCycles(events []Event) int {
	n := 0
	for i := 0; i+1 < len(events); i++ {
		if events[i].Type == EventConnected && events[i+1].Type == EventDisconnected {
			n++
		}
	}
	return n
}

// classifyMissing marks an unplugged p missing when uniqueID's latest event
// is a disconnect and p has been unplugged for at least MissingAfter since
// the later of that disconnect and its last status change. Only write
// failures are returned.
func (e *Engine) classifyMissing(ctx context.Context, uniqueID string, p *peripheral.Peripheral, res *Result) error {
	if p.Status != peripheral.StatusUnplugged {
		return nil
	}
	latest, err := e.registry.LatestEvent(ctx, uniqueID)
	if err != nil {
		e.logger.Error("missing classification skipped", "unique_id", uniqueID, "error", err)
		return nil
	}
	if latest == nil || latest.Type != EventDisconnected {
		return nil
	}

	since := latest.Timestamp
	if p.StatusUpdatedAt != nil && p.StatusUpdatedAt.After(since) {
		since = *p.StatusUpdatedAt
	}
	elapsed := e.now().Sub(since)
	if elapsed < e.thresholds.MissingAfter {
		return nil
	}

	reason := fmt.Sprintf("disconnected for %s", elapsed.Truncate(time.Second))
	// Stamped with the time the absence was noticed, not the disconnect.
	results, err := e.setStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusMissing, reason, nil, res)
	if err != nil {
		return err
	}
	refresh(p, results)
	for _, r := range results {
		if !r.Changed {
			continue
		}
		if err := e.raise(ctx, TypeMissing, uniqueID, r.Peripheral, latest, systemActor, res); err != nil {
			return err
		}
	}
	return nil
}

// SweepMissing runs the missing classifier for every unplugged peripheral
// registered to pcTag. It returns the alerts raised together with any write
// failures; one peripheral failing does not stop the sweep.
func (e *Engine) SweepMissing(ctx context.Context, labScope, pcTag string) ([]Alert, error) {
	peripherals, err := e.registry.ListForPC(ctx, labScope, pcTag)
	if err != nil {
		return nil, fmt.Errorf("listing peripherals for %s: %w", pcTag, err)
	}

	var (
		res  Result
		errs []error
	)
	for i := range peripherals {
		p := &peripherals[i]
		if p.UniqueID == "" {
			continue
		}
		if err := e.classifyMissing(ctx, p.UniqueID, p, &res); err != nil {
			errs = append(errs, fmt.Errorf("peripheral %d: %w", p.ID, err))
		}
	}
	return res.Alerts, errors.Join(errs...)
}

// OverrideStatus applies an operator status change under the transition
// table and raises an alert when the peripheral enters an alerting status.
func (e *Engine) OverrideStatus(ctx context.Context, id int64, status, reason, actor string) (peripheral.StatusResult, *Alert, error) {
	sr, err := e.machine.Apply(ctx, id, status, reason, actor)
	if err != nil {
		return sr, nil, err
	}
	if !sr.Changed {
		return sr, nil, nil
	}
	t, ok := TypeForStatus(sr.Peripheral.Status)
	if !ok {
		return sr, nil, nil
	}

	var res Result
	key := sr.Peripheral.UniqueID
	if key == "" {
		key = fmt.Sprintf("peripheral-%d", sr.Peripheral.ID)
	}
	if err := e.raise(ctx, t, key, sr.Peripheral, nil, actor, &res); err != nil {
		return sr, nil, err
	}
	return sr, &res.Alerts[0], nil
}

// BulkSummary reports BulkOverrideStatus results.
type BulkSummary struct {
	Success int              `json:"success"`
	Errors  int              `json:"errors"`
	Failed  map[int64]string `json:"failed,omitempty"`
}

// BulkOverrideStatus applies OverrideStatus to every id.
func (e *Engine) BulkOverrideStatus(ctx context.Context, ids []int64, status, reason, actor string) BulkSummary {
	sum := BulkSummary{Failed: make(map[int64]string)}
	for _, id := range ids {
		if _, _, err := e.OverrideStatus(ctx, id, status, reason, actor); err != nil {
			sum.Errors++
			sum.Failed[id] = err.Error()
			continue
		}
		sum.Success++
	}
	return sum
}

// DeleteAlert soft-deletes an alert. Returns ErrAlertNotFound if id does not exist.
func (e *Engine) DeleteAlert(ctx context.Context, id int64) error {
	return e.setDeleted(ctx, id, true)
}

// RestoreAlert clears an alert's soft-delete flag. Returns ErrAlertNotFound
// if id does not exist.
func (e *Engine) RestoreAlert(ctx context.Context, id int64) error {
	return e.setDeleted(ctx, id, false)
}

func (e *Engine) setDeleted(ctx context.Context, id int64, deleted bool) error {
	found, err := e.registry.SetAlertDeleted(ctx, id, deleted)
	if err != nil {
		return fmt.Errorf("updating alert %d: %w", id, err)
	}
	if !found {
		return ErrAlertNotFound
	}
	return nil
}

func (e *Engine) setStatus(ctx context.Context, sel peripheral.Selector, st peripheral.Status, reason string, ev *Event, res *Result) ([]peripheral.StatusResult, error) {
	at := e.now()
	if ev != nil {
		at = ev.Timestamp
	}
	results, err := e.registry.SetStatus(ctx, sel, peripheral.StatusChange{
		Status: st,
		Reason: reason,
		Actor:  systemActor,
		At:     at.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("setting status %s: %w", st, err)
	}
	for _, r := range results {
		res.Status = r.Peripheral.Status
		if r.Changed {
			e.logger.Info("peripheral status changed",
				"peripheral_id", r.Peripheral.ID, "from", r.Previous, "to", st, "reason", reason)
		}
	}
	return results, nil
}

// raise creates an alert and hands it to the notifier. The status change it
// reports is already committed when the insert fails.
func (e *Engine) raise(ctx context.Context, t Type, key string, p peripheral.Peripheral, ev *Event, actor string, res *Result) error {
	a := Alert{
		PeripheralKey: key,
		Type:          t,
		Timestamp:     e.now().UTC().Truncate(time.Second),
		DeviceName:    p.Name,
		DeviceType:    p.DeviceType,
		Scope:         p.LabScope,
		PCTag:         p.AssignedPC,
		Actor:         actor,
	}
	if ev != nil {
		a.EventType = string(ev.Type)
		if ev.DeviceName != "" {
			a.DeviceName = ev.DeviceName
		}
		if ev.DeviceType != "" {
			a.DeviceType = ev.DeviceType
		}
	}

	if err := e.registry.CreateAlert(ctx, &a); err != nil {
		return fmt.Errorf("creating %s alert for %s: %w", t, key, err)
	}
	e.logger.Warn("alert raised", "type", t, "peripheral_key", key, "pc_tag", a.PCTag)
	res.Alerts = append(res.Alerts, a)
	e.notifier.AlertRaised(ctx, a)
	return nil
}
