package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/peripheral-core/internal/alert"
	"github.com/nerrad567/peripheral-core/internal/enumerate"
	"github.com/nerrad567/peripheral-core/internal/identity"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/peripheral-core/internal/peripheral"
)

// Actor recorded on status changes made by reconciliation.
const reconcileActor = "system"

const (
	defaultPollInterval  = 10 * time.Second
	defaultPruneInterval = time.Hour
)

// Registry is the slice of the peripheral registry the monitor needs.
type Registry interface {
	ListForPC(ctx context.Context, labScope, pcTag string) ([]peripheral.Peripheral, error)
	SetStatus(ctx context.Context, sel peripheral.Selector, change peripheral.StatusChange) ([]peripheral.StatusResult, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
}

// Recorder processes events and sweeps for missing units. *alert.Engine
// implements it.
type Recorder interface {
	RecordEvent(ctx context.Context, in alert.EventInput) (alert.Result, error)
	SweepMissing(ctx context.Context, labScope, pcTag string) ([]alert.Alert, error)
}

// Publisher sends JSON messages to the broker. *mqtt.Client implements it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
	IsConnected() bool
}

// Subscriber registers topic handlers. *mqtt.Client implements it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Telemetry records points in a time-series store. *influxdb.Client
// implements it.
type Telemetry interface {
	WritePeripheralEvent(p influxdb.EventPoint)
	WriteAlert(p influxdb.AlertPoint)
	WriteReconcileStats(p influxdb.ReconcilePoint)
}

// Logger defines the logging interface used by the Monitor.
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

// Options configures a Monitor. Enumerator, Registry and Recorder are
// required; the rest are optional.
type Options struct {
	LabScope string
	PCTag    string

	// Enumerator is nil when the host cannot enumerate; polling is then
	// disabled and only ingestion runs.
	Enumerator enumerate.Enumerator
	Resolver   *identity.Resolver
	Registry   Registry
	Recorder   Recorder

	Publisher  Publisher
	Subscriber Subscriber
	Telemetry  Telemetry

	PollInterval time.Duration

	// EventRetention of zero keeps events forever.
	EventRetention time.Duration
	PruneInterval  time.Duration

	// IngestTopic defaults to every event topic.
	IngestTopic string
	IngestQoS   byte

	Logger Logger
}

// Monitor polls one PC and ingests agent events.
type Monitor struct {
	opts   Options
	logger Logger
	now    func() time.Time

	mu           sync.Mutex
	previous     []identity.Descriptor
	unregistered []identity.Descriptor
	primed       bool
}

// New validates opts and creates a Monitor.
func New(opts Options) (*Monitor, error) {
	if opts.Registry == nil || opts.Recorder == nil {
		return nil, errors.New("monitor: registry and recorder are required")
	}
	if opts.Enumerator != nil && opts.PCTag == "" {
		return nil, errors.New("monitor: pc tag is required for polling")
	}
	if opts.Resolver == nil {
		opts.Resolver = identity.NewResolver()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = defaultPruneInterval
	}
	if opts.IngestTopic == "" {
		opts.IngestTopic = mqtt.Topics{}.AllEvents()
	}

	m := &Monitor{
		opts:   opts,
		logger: opts.Logger,
		now:    time.Now,
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}
	return m, nil
}

// SetClock replaces the monitor's time source.
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// Run starts the enabled loops and blocks until ctx ends or a loop fails.
// Returns nil when ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if m.opts.Enumerator != nil {
		g.Go(func() error { return m.pollLoop(ctx) })
	} else {
		m.logger.Warn("polling disabled: no enumerator")
	}

	if m.opts.Subscriber != nil {
		g.Go(func() error { return m.ingest(ctx) })
	}

	if m.opts.EventRetention > 0 {
		g.Go(func() error { return m.pruneLoop(ctx) })
	}

	if err := g.Wait(); err != nil && !isShutdown(err) {
		return err
	}
	return nil
}

// isShutdown reports whether err only says the run context ended.
func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Monitor) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := m.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Error("poll failed", "pc_tag", m.opts.PCTag, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) ingest(ctx context.Context) error {
	if err := m.opts.Subscriber.Subscribe(m.opts.IngestTopic, m.opts.IngestQoS, m.HandleEvent); err != nil {
		return fmt.Errorf("subscribing to %s: %w", m.opts.IngestTopic, err)
	}
	m.logger.Info("ingesting agent events", "topic", m.opts.IngestTopic)

	<-ctx.Done()

	if err := m.opts.Subscriber.Unsubscribe(m.opts.IngestTopic); err != nil {
		m.logger.Warn("unsubscribe failed", "topic", m.opts.IngestTopic, "error", err)
	}
	return ctx.Err()
}

func (m *Monitor) pruneLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.PruneInterval)
	defer ticker.Stop()

	for {
		if _, err := m.Prune(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("event pruning failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Prune deletes events older than the retention horizon and returns how
// many were removed.
func (m *Monitor) Prune(ctx context.Context) (int64, error) {
	if m.opts.EventRetention <= 0 {
		return 0, nil
	}
	before := m.now().Add(-m.opts.EventRetention)
	n, err := m.opts.Registry.PruneEvents(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("pruning events before %s: %w", before.Format(time.RFC3339), err)
	}
	if n > 0 {
		m.logger.Info("pruned events", "count", n, "before", before)
	}
	return n, nil
}
