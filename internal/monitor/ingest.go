package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/peripheral-core/internal/alert"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/mqtt"
)

// ErrBadMessage is returned by HandleEvent for topics or payloads it cannot
// decode.
var ErrBadMessage = errors.New("monitor: malformed event message")

// ingestTimeout bounds the registry work for one inbound message.
const ingestTimeout = 10 * time.Second

// EventMessage is the JSON body PC agents publish to
// periphcore/event/{lab}/{pc}.
type EventMessage struct {
	UniqueID   string     `json:"unique_id"`
	EventType  string     `json:"event_type"`
	DeviceType string     `json:"device_type,omitempty"`
	DeviceName string     `json:"device_name,omitempty"`
	VendorID   string     `json:"vendor_id,omitempty"`
	ProductID  string     `json:"product_id,omitempty"`
	Principal  string     `json:"principal,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// HandleEvent decodes an agent event and records it. Lab scope and PC tag
// come from the topic. It matches mqtt.MessageHandler.
func (m *Monitor) HandleEvent(topic string, payload []byte) error {
	in, err := decodeEvent(topic, payload)
	if err != nil {
		m.logger.Warn("dropping event message", "topic", topic, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	res, err := m.opts.Recorder.RecordEvent(ctx, in)
	if err != nil {
		m.logger.Error("recording agent event failed",
			"topic", topic, "unique_id", in.UniqueID, "error", err)
		return err
	}
	if res.Rejected {
		m.logger.Warn("agent event rejected",
			"pc_tag", in.PCTag, "principal", in.Principal, "reason", res.RejectReason)
		return nil
	}

	m.logger.Debug("agent event recorded",
		"pc_tag", in.PCTag, "unique_id", in.UniqueID, "event_type", in.Type, "status", res.Status)
	return nil
}

func decodeEvent(topic string, payload []byte) (alert.EventInput, error) {
	lab, pc, ok := mqtt.ParseEventTopic(topic)
	if !ok {
		return alert.EventInput{}, fmt.Errorf("%w: not an event topic: %q", ErrBadMessage, topic)
	}

	var msg EventMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return alert.EventInput{}, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}

	typ, err := alert.ParseEventType(msg.EventType)
	if err != nil {
		return alert.EventInput{}, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}

	in := alert.EventInput{
		UniqueID:   msg.UniqueID,
		Type:       typ,
		DeviceType: msg.DeviceType,
		DeviceName: msg.DeviceName,
		VendorID:   msg.VendorID,
		ProductID:  msg.ProductID,
		LabScope:   lab,
		PCTag:      pc,
		Principal:  msg.Principal,
	}
	if msg.Timestamp != nil {
		in.Timestamp = *msg.Timestamp
	}
	return in, nil
}
