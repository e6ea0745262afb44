package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/peripheral-core/internal/alert"
)

const eventColumns = `
	id, unique_id, event_type, device_type, device_name, vendor_id,
	product_id, lab_scope, pc_tag, principal, timestamp`

// AppendEvent inserts ev and sets its ID.
func (s *Store) AppendEvent(ctx context.Context, ev *alert.Event) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO peripheral_events (
			unique_id, event_type, device_type, device_name, vendor_id,
			product_id, lab_scope, pc_tag, principal, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.UniqueID,
		string(ev.Type),
		ev.DeviceType,
		ev.DeviceName,
		nullableString(ev.VendorID),
		nullableString(ev.ProductID),
		ev.LabScope,
		ev.PCTag,
		ev.Principal,
		formatTime(ev.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event id: %w", err)
	}
	ev.ID = id
	return nil
}

// EventsSince returns uniqueID's events at or after since, oldest first.
func (s *Store) EventsSince(ctx context.Context, uniqueID string, since time.Time) ([]alert.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM peripheral_events
		WHERE unique_id = ? AND timestamp >= ?
		ORDER BY timestamp, id`,
		uniqueID, formatTime(since))
}

// LatestEvent returns uniqueID's most recent event, or nil if it has none.
func (s *Store) LatestEvent(ctx context.Context, uniqueID string) (*alert.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM peripheral_events
		WHERE unique_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`,
		uniqueID)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying latest event: %w", err)
	}
	return ev, nil
}

// RecentEvents returns up to limit events for pcTag in labScope, newest first.
func (s *Store) RecentEvents(ctx context.Context, labScope, pcTag string, limit int) ([]alert.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM peripheral_events
		WHERE pc_tag = ? AND (? = '' OR lab_scope = ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		pcTag, labScope, labScope, clampLimit(limit))
}

// PruneEvents deletes events older than before and returns the number removed.
func (s *Store) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM peripheral_events WHERE timestamp < ?", formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("deleting events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]alert.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []alert.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}

func scanEvent(scanner rowScanner) (*alert.Event, error) {
	var (
		ev       alert.Event
		typ, ts  string
		vid, pid sql.NullString
	)
	err := scanner.Scan(
		&ev.ID, &ev.UniqueID, &typ, &ev.DeviceType, &ev.DeviceName, &vid,
		&pid, &ev.LabScope, &ev.PCTag, &ev.Principal, &ts,
	)
	if err != nil {
		return nil, err
	}
	ev.Type = alert.EventType(typ)
	ev.VendorID = vid.String
	ev.ProductID = pid.String
	if ev.Timestamp, err = parseTime("timestamp", ts); err != nil {
		return nil, err
	}
	return &ev, nil
}
