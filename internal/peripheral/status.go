package peripheral

import (
	"fmt"
	"strings"
)

// Status is the lifecycle status of a registered peripheral.
// The zero value means no status has been applied yet.
type Status string

const (
	StatusConnected Status = "connected"
	StatusUnplugged Status = "unplugged"
	StatusMissing   Status = "missing"
	StatusFaulty    Status = "faulty"
	StatusReplaced  Status = "replaced"
)

// AllStatuses lists every valid status.
var AllStatuses = []Status{StatusConnected, StatusUnplugged, StatusMissing, StatusFaulty, StatusReplaced}

var transitions = map[Status][]Status{
	StatusConnected: {StatusUnplugged, StatusFaulty, StatusReplaced},
	StatusUnplugged: {StatusConnected, StatusMissing, StatusFaulty},
	StatusMissing:   {StatusConnected, StatusReplaced},
	StatusFaulty:    {StatusConnected, StatusReplaced},
	StatusReplaced:  {StatusConnected},
}

// ParseStatus parses s case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Valid reports whether s is one of the five statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from → to is allowed. Any status is allowed
// from the zero status, and from == to is always allowed as a no-op.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == "" || from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Plan decides what applying change to a peripheral currently in current
// does. changed is false for a no-op. err is an *InvalidTransitionError when
// change.Enforce is set and the table forbids the move.
func Plan(current Status, change StatusChange) (changed bool, err error) {
	if !change.Status.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, change.Status)
	}
	if current == change.Status {
		return false, nil
	}
	if change.Enforce && !CanTransition(current, change.Status) {
		return false, &InvalidTransitionError{From: current, To: change.Status}
	}
	return true, nil
}

// StatusFromStorage converts a stored status column to a Status. Legacy
// upper-case values are accepted; anything unrecognised is treated as no
// status.
func StatusFromStorage(s string) Status {
	st, err := ParseStatus(s)
	if err != nil {
		return ""
	}
	return st
}
