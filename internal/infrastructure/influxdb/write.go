package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEvents         = "peripheral_events"
	MeasurementAlerts         = "peripheral_alerts"
	MeasurementReconciliation = "reconciliation"
)

// EventPoint is one connect/disconnect event.
type EventPoint struct {
	UniqueID   string
	EventType  string
	DeviceType string
	LabScope   string
	PCTag      string
	Timestamp  time.Time
}

// AlertPoint is one raised alert.
type AlertPoint struct {
	AlertType     string
	PeripheralKey string
	LabScope      string
	PCTag         string
	Timestamp     time.Time
}

// ReconcilePoint summarises one reconciliation pass on a PC.
type ReconcilePoint struct {
	LabScope     string
	PCTag        string
	Live         int
	Unregistered int
	Disconnected int
	Reconnected  int
	Timestamp    time.Time
}

// WritePeripheralEvent queues an event point. Dropped silently when the
// client is closed.
func (c *Client) WritePeripheralEvent(p EventPoint) {
	c.write(eventPoint(p))
}

// WriteAlert queues an alert point.
func (c *Client) WriteAlert(p AlertPoint) {
	c.write(alertPoint(p))
}

// WriteReconcileStats queues a reconciliation summary point.
func (c *Client) WriteReconcileStats(p ReconcilePoint) {
	c.write(reconcilePoint(p))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

// The unique id is a field, not a tag: it is unbounded.
func eventPoint(p EventPoint) *write.Point {
	return write.NewPoint(MeasurementEvents,
		map[string]string{
			"event_type":  p.EventType,
			"device_type": tagValue(p.DeviceType),
			"lab":         tagValue(p.LabScope),
			"pc":          tagValue(p.PCTag),
		},
		map[string]any{
			"unique_id": p.UniqueID,
			"count":     1,
		},
		stamp(p.Timestamp))
}

func alertPoint(p AlertPoint) *write.Point {
	return write.NewPoint(MeasurementAlerts,
		map[string]string{
			"alert_type": p.AlertType,
			"lab":        tagValue(p.LabScope),
			"pc":         tagValue(p.PCTag),
		},
		map[string]any{
			"peripheral_key": p.PeripheralKey,
			"count":          1,
		},
		stamp(p.Timestamp))
}

func reconcilePoint(p ReconcilePoint) *write.Point {
	return write.NewPoint(MeasurementReconciliation,
		map[string]string{
			"lab": tagValue(p.LabScope),
			"pc":  tagValue(p.PCTag),
		},
		map[string]any{
			"live":         p.Live,
			"unregistered": p.Unregistered,
			"disconnected": p.Disconnected,
			"reconnected":  p.Reconnected,
		},
		stamp(p.Timestamp))
}

// tagValue substitutes a placeholder for empty tags, which line protocol
// drops.
func tagValue(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
