package peripheral

import (
	"context"
	"fmt"
	"time"
)

// Logger defines the logging interface used by the StateMachine.
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

// StateMachine applies operator-requested status changes under the
// transition table.
type StateMachine struct {
	store  StatusStore
	logger Logger
	now    func() time.Time
}

// NewStateMachine creates a StateMachine writing through store.
func NewStateMachine(store StatusStore) *StateMachine {
	return &StateMachine{
		store:  store,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the state machine.
func (m *StateMachine) SetLogger(logger Logger) {
	m.logger = logger
}

// SetClock replaces the time source used to stamp changes.
func (m *StateMachine) SetClock(now func() time.Time) {
	m.now = now
}

// Apply moves peripheral id to status. status is parsed case-insensitively.
//
// Returns ErrInvalidStatus for an unknown status, ErrPeripheralNotFound if id
// does not exist, and an *InvalidTransitionError (errors.Is
// ErrInvalidTransition) when the table forbids the move; in every error case
// the peripheral is left unchanged. Applying the current status is a no-op
// reported with Changed false.
func (m *StateMachine) Apply(ctx context.Context, id int64, status, reason, actor string) (StatusResult, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return StatusResult{}, err
	}

	results, err := m.store.SetStatus(ctx, ByID(id), StatusChange{
		Status:  st,
		Reason:  reason,
		Actor:   actor,
		At:      m.now().UTC(),
		Enforce: true,
	})
	if err != nil {
		return StatusResult{}, fmt.Errorf("applying status to peripheral %d: %w", id, err)
	}
	if len(results) == 0 {
		return StatusResult{}, ErrPeripheralNotFound
	}

	res := results[0]
	if res.Changed {
		m.logger.Info("peripheral status changed",
			"peripheral_id", id, "from", res.Previous, "to", st, "actor", actor)
	}
	return res, nil
}

// BulkResult summarises ApplyAll.
type BulkResult struct {
	Succeeded []int64         `json:"succeeded"`
	Failed    map[int64]error `json:"-"`
}

// ApplyAll applies the same status to every id. Failures are collected per
// id and do not stop the remaining ids.
func (m *StateMachine) ApplyAll(ctx context.Context, ids []int64, status, reason, actor string) (BulkResult, []StatusResult) {
	out := BulkResult{Failed: make(map[int64]error)}
	var changed []StatusResult
	for _, id := range ids {
		res, err := m.Apply(ctx, id, status, reason, actor)
		if err != nil {
			out.Failed[id] = err
			continue
		}
		out.Succeeded = append(out.Succeeded, id)
		if res.Changed {
			changed = append(changed, res)
		}
	}
	return out, changed
}
