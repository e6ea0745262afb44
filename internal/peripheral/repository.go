package peripheral

import "context"

// StatusStore applies status changes atomically.
//
// SetStatus selects the matching peripherals, runs Plan against each one's
// current status, and for every change writes the new status and one history
// entry, all in one transaction. If Plan rejects any peripheral nothing is
// written and the *InvalidTransitionError is returned. A selector matching
// nothing returns an empty slice and no error.
type StatusStore interface {
	SetStatus(ctx context.Context, sel Selector, change StatusChange) ([]StatusResult, error)
}

// Repository defines persistence for registered peripherals.
type Repository interface {
	StatusStore

	// CreatePeripheral inserts p and sets its ID and timestamps.
	// Returns ErrDuplicateModel if the model is already on p's PC.
	CreatePeripheral(ctx context.Context, p *Peripheral) error

	// GetPeripheral returns ErrPeripheralNotFound if id does not exist.
	GetPeripheral(ctx context.Context, id int64) (*Peripheral, error)

	// ListForPC returns the peripherals registered to pcTag in labScope.
	ListForPC(ctx context.Context, labScope, pcTag string) ([]Peripheral, error)

	// ListByLab returns every peripheral in labScope.
	ListByLab(ctx context.Context, labScope string) ([]Peripheral, error)

	// UpdateDetails writes descriptive fields; status columns are untouched.
	UpdateDetails(ctx context.Context, p *Peripheral) error

	// DeletePeripheral removes the peripheral and its history.
	DeletePeripheral(ctx context.Context, id int64) error

	// StatusHistory returns up to limit entries for id, newest first.
	StatusHistory(ctx context.Context, id int64, limit int) ([]StatusHistoryEntry, error)

	// RecentStatusHistory returns up to limit entries across labScope, newest first.
	RecentStatusHistory(ctx context.Context, labScope string, limit int) ([]StatusHistoryEntry, error)
}
