package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/peripheral-core/internal/alert"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/mqtt"
)

const defaultNotifyQueue = 256

// AlertMessage is the JSON body published to periphcore/alert/{lab}/{pc}.
type AlertMessage struct {
	MessageID string      `json:"message_id"`
	SentAt    time.Time   `json:"sent_at"`
	Alert     alert.Alert `json:"alert"`
}

// Notifier fans recorded events and raised alerts out to MQTT and InfluxDB.
// It implements alert.Notifier. Deliveries are queued and sent by Run; when
// the queue is full the delivery is dropped and logged.
type Notifier struct {
	publisher Publisher
	telemetry Telemetry
	logger    Logger
	now       func() time.Time

	queue chan func()
}

var _ alert.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier. Either sink may be nil.
func NewNotifier(publisher Publisher, telemetry Telemetry, logger Logger) *Notifier {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Notifier{
		publisher: publisher,
		telemetry: telemetry,
		logger:    logger,
		now:       time.Now,
		queue:     make(chan func(), defaultNotifyQueue),
	}
}

// Run delivers queued notifications until ctx is cancelled, then drains
// what is already queued.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case deliver := <-n.queue:
					deliver()
				default:
					return ctx.Err()
				}
			}
		case deliver := <-n.queue:
			deliver()
		}
	}
}

// EventRecorded implements alert.Notifier.
func (n *Notifier) EventRecorded(_ context.Context, ev alert.Event) {
	if n.telemetry == nil {
		return
	}
	n.enqueue("event", func() {
		n.telemetry.WritePeripheralEvent(influxdb.EventPoint{
			UniqueID:   ev.UniqueID,
			EventType:  string(ev.Type),
			DeviceType: ev.DeviceType,
			LabScope:   ev.LabScope,
			PCTag:      ev.PCTag,
			Timestamp:  ev.Timestamp,
		})
	})
}

// AlertRaised implements alert.Notifier.
func (n *Notifier) AlertRaised(_ context.Context, a alert.Alert) {
	n.enqueue("alert", func() {
		if n.telemetry != nil {
			n.telemetry.WriteAlert(influxdb.AlertPoint{
				AlertType:     string(a.Type),
				PeripheralKey: a.PeripheralKey,
				LabScope:      a.Scope,
				PCTag:         a.PCTag,
				Timestamp:     a.Timestamp,
			})
		}
		n.publishAlert(a)
	})
}

func (n *Notifier) publishAlert(a alert.Alert) {
	if n.publisher == nil || !n.publisher.IsConnected() {
		return
	}
	msg := AlertMessage{
		MessageID: uuid.NewString(),
		SentAt:    n.now().UTC(),
		Alert:     a,
	}
	topic := mqtt.Topics{}.Alert(a.Scope, a.PCTag)
	if err := n.publisher.PublishJSON(topic, msg, false); err != nil {
		n.logger.Warn("publishing alert failed", "topic", topic, "alert_id", a.ID, "error", err)
	}
}

func (n *Notifier) enqueue(kind string, deliver func()) {
	select {
	case n.queue <- deliver:
	default:
		n.logger.Warn("notification queue full, dropping", "kind", kind)
	}
}
