package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/peripheral-core/internal/peripheral"
)

// Type is the anomaly an alert reports.
type Type string

const (
	TypeFaulty   Type = "faulty"
	TypeMissing  Type = "missing"
	TypeReplaced Type = "replaced"
)

// TypeForStatus returns the alert type raised when a peripheral enters
// status. ok is false for statuses that raise no alert.
func TypeForStatus(s peripheral.Status) (t Type, ok bool) {
	switch s {
	case peripheral.StatusFaulty:
		return TypeFaulty, true
	case peripheral.StatusMissing:
		return TypeMissing, true
	case peripheral.StatusReplaced:
		return TypeReplaced, true
	default:
		return "", false
	}
}

// EventType is the kind of a peripheral event.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
)

// ParseEventType parses s case-insensitively.
func ParseEventType(s string) (EventType, error) {
	switch EventType(strings.ToLower(strings.TrimSpace(s))) {
	case EventConnected:
		return EventConnected, nil
	case EventDisconnected:
		return EventDisconnected, nil
	default:
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, s)
	}
}

// Event is one entry in the connect/disconnect log.
type Event struct {
	ID         int64     `json:"id"`
	UniqueID   string    `json:"unique_id"`
	Type       EventType `json:"event_type"`
	DeviceType string    `json:"device_type,omitempty"`
	DeviceName string    `json:"device_name,omitempty"`
	VendorID   string    `json:"vendor_id,omitempty"`
	ProductID  string    `json:"product_id,omitempty"`
	LabScope   string    `json:"lab_scope,omitempty"`
	PCTag      string    `json:"pc_tag"`
	Principal  string    `json:"principal,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Alert is an anomaly notification. Alerts are never hard-deleted.
type Alert struct {
	ID            int64     `json:"id"`
	PeripheralKey string    `json:"peripheral_key"`
	Type          Type      `json:"alert_type"`
	Timestamp     time.Time `json:"timestamp"`
	DeviceName    string    `json:"device_name,omitempty"`
	DeviceType    string    `json:"device_type,omitempty"`
	EventType     string    `json:"event_type,omitempty"`
	Scope         string    `json:"lab_scope"`
	PCTag         string    `json:"pc_tag,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	Deleted       bool      `json:"deleted"`
}

// Result is the outcome of RecordEvent.
type Result struct {
	// Rejected is set when the event was refused; nothing was written.
	Rejected     bool  `json:"rejected"`
	RejectReason error `json:"-"`

	Event *Event `json:"event,omitempty"`

	// Status is the affected peripheral's status after the event, empty if
	// no registered peripheral matched.
	Status peripheral.Status `json:"status,omitempty"`

	Alerts []Alert `json:"alerts,omitempty"`
}

// EventLog stores connect/disconnect events.
type EventLog interface {
	// AppendEvent inserts ev and sets its ID.
	AppendEvent(ctx context.Context, ev *Event) error

	// EventsSince returns uniqueID's events at or after since, oldest first,
	// ties broken by insertion order.
	EventsSince(ctx context.Context, uniqueID string, since time.Time) ([]Event, error)

	// LatestEvent returns uniqueID's most recent event, or nil if none.
	LatestEvent(ctx context.Context, uniqueID string) (*Event, error)
}

// Store persists alerts.
type Store interface {
	// CreateAlert inserts a and sets its ID.
	CreateAlert(ctx context.Context, a *Alert) error

	// SetAlertDeleted flips the soft-delete flag. found is false if id does
	// not exist.
	SetAlertDeleted(ctx context.Context, id int64, deleted bool) (found bool, err error)
}

// PeripheralStore is the slice of the peripheral registry the engine needs.
type PeripheralStore interface {
	peripheral.StatusStore

	// ListForPC returns the peripherals registered to pcTag. An empty
	// labScope matches any lab.
	ListForPC(ctx context.Context, labScope, pcTag string) ([]peripheral.Peripheral, error)
}

// SessionLookup resolves a principal's active session.
type SessionLookup interface {
	// ActivePC returns the PC the principal is logged in on. ok is false
	// when the principal has no active session.
	ActivePC(ctx context.Context, principal string) (pcTag string, ok bool, err error)
}

// Registry is everything the engine reads and writes.
type Registry interface {
	PeripheralStore
	EventLog
	Store
	SessionLookup
}

// Notifier receives recorded events and raised alerts, e.g. to publish them.
// Implementations must not block.
type Notifier interface {
	EventRecorded(ctx context.Context, ev Event)
	AlertRaised(ctx context.Context, a Alert)
}

type noopNotifier struct{}

func (noopNotifier) EventRecorded(context.Context, Event) {}
func (noopNotifier) AlertRaised(context.Context, Alert)   {}

// Logger defines the logging interface used by the Engine.
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
