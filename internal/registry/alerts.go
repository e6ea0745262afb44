package registry

import (
	"context"
	"fmt"

	"github.com/nerrad567/peripheral-core/internal/alert"
)

// CreateAlert inserts a and sets its ID.
func (s *Store) CreateAlert(ctx context.Context, a *alert.Alert) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now().UTC().Truncate(timeUnit)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO peripheral_alerts (
			peripheral_key, alert_type, timestamp, device_name, device_type,
			event_type, lab_scope, pc_tag, actor, deleted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.PeripheralKey,
		string(a.Type),
		formatTime(a.Timestamp),
		a.DeviceName,
		a.DeviceType,
		a.EventType,
		a.Scope,
		a.PCTag,
		a.Actor,
		boolToInt(a.Deleted),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading alert id: %w", err)
	}
	a.ID = id
	return nil
}

// SetAlertDeleted flips an alert's soft-delete flag. found is false when id
// does not exist.
func (s *Store) SetAlertDeleted(ctx context.Context, id int64, deleted bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE peripheral_alerts SET deleted = ? WHERE id = ?", boolToInt(deleted), id)
	if err != nil {
		return false, fmt.Errorf("updating alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

// ListAlerts returns up to limit alerts in labScope, newest first. deleted
// selects the soft-deleted alerts instead of the active ones.
func (s *Store) ListAlerts(ctx context.Context, labScope string, deleted bool, limit int) ([]alert.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, peripheral_key, alert_type, timestamp, device_name, device_type,
			event_type, lab_scope, pc_tag, actor, deleted
		FROM peripheral_alerts
		WHERE lab_scope = ? AND deleted = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		labScope, boolToInt(deleted), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var out []alert.Alert
	for rows.Next() {
		var (
			a       alert.Alert
			typ, ts string
			del     int
		)
		if err := rows.Scan(&a.ID, &a.PeripheralKey, &typ, &ts, &a.DeviceName, &a.DeviceType,
			&a.EventType, &a.Scope, &a.PCTag, &a.Actor, &del); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		a.Type = alert.Type(typ)
		a.Deleted = del != 0
		if a.Timestamp, err = parseTime("timestamp", ts); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return out, nil
}

// CountActiveAlerts returns the number of alerts in labScope that are not
// soft-deleted.
func (s *Store) CountActiveAlerts(ctx context.Context, labScope string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM peripheral_alerts WHERE lab_scope = ? AND deleted = 0",
		labScope,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting alerts: %w", err)
	}
	return n, nil
}
