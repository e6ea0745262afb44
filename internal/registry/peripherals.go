package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/peripheral-core/internal/identity"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/database"
	"github.com/nerrad567/peripheral-core/internal/peripheral"
)

const peripheralColumns = `
	id, name, brand, unique_id, serial_number, vendor_id, product_id,
	device_type, assigned_pc, lab_scope, status, status_updated_by,
	status_updated_at, status_reason, remarks, created_at, updated_at`

// CreatePeripheral inserts p and sets its ID and timestamps.
func (s *Store) CreatePeripheral(ctx context.Context, p *peripheral.Peripheral) error {
	if err := p.Normalize(); err != nil {
		return err
	}

	now := s.now().UTC().Truncate(timeUnit)
	p.CreatedAt, p.UpdatedAt = now, now

	var statusAt sql.NullString
	if p.Status != "" {
		statusAt = nullableString(formatTime(now))
		p.StatusUpdatedAt = &now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO peripherals (
			name, brand, unique_id, serial_number, vendor_id, product_id,
			device_type, assigned_pc, lab_scope, status, status_updated_by,
			status_updated_at, status_reason, remarks, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name,
		nullableString(p.Brand),
		nullableString(p.UniqueID),
		nullableString(p.SerialNumber),
		nullableString(p.VendorID),
		nullableString(p.ProductID),
		p.DeviceType,
		p.AssignedPC,
		p.LabScope,
		nullableString(string(p.Status)),
		nullableString(p.StatusUpdatedBy),
		statusAt,
		nullableString(p.StatusReason),
		nullableString(p.Remarks),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return peripheral.ErrDuplicateModel
		}
		return fmt.Errorf("inserting peripheral: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading peripheral id: %w", err)
	}
	p.ID = id
	return nil
}

// GetPeripheral retrieves a peripheral by id.
func (s *Store) GetPeripheral(ctx context.Context, id int64) (*peripheral.Peripheral, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+peripheralColumns+" FROM peripherals WHERE id = ?", id)
	p, err := scanPeripheral(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, peripheral.ErrPeripheralNotFound
		}
		return nil, fmt.Errorf("querying peripheral by id: %w", err)
	}
	return p, nil
}

// ListForPC returns the peripherals registered to pcTag. An empty labScope
// matches any lab.
func (s *Store) ListForPC(ctx context.Context, labScope, pcTag string) ([]peripheral.Peripheral, error) {
	return queryPeripherals(ctx, s.db, `
		SELECT `+peripheralColumns+`
		FROM peripherals
		WHERE assigned_pc = ? AND (? = '' OR lab_scope = ?)
		ORDER BY id`,
		pcTag, labScope, labScope)
}

// ListByLab returns every peripheral in labScope ordered by PC then name.
func (s *Store) ListByLab(ctx context.Context, labScope string) ([]peripheral.Peripheral, error) {
	return queryPeripherals(ctx, s.db, `
		SELECT `+peripheralColumns+`
		FROM peripherals
		WHERE lab_scope = ?
		ORDER BY assigned_pc, name, id`,
		labScope)
}

// UpdateDetails writes the descriptive fields of p. Status columns are left
// alone; status only moves through SetStatus.
func (s *Store) UpdateDetails(ctx context.Context, p *peripheral.Peripheral) error {
	if err := p.Normalize(); err != nil {
		return err
	}

	now := s.now().UTC().Truncate(timeUnit)
	res, err := s.db.ExecContext(ctx, `
		UPDATE peripherals SET
			name = ?, brand = ?, unique_id = ?, serial_number = ?,
			vendor_id = ?, product_id = ?, device_type = ?,
			assigned_pc = ?, lab_scope = ?, remarks = ?, updated_at = ?
		WHERE id = ?`,
		p.Name,
		nullableString(p.Brand),
		nullableString(p.UniqueID),
		nullableString(p.SerialNumber),
		nullableString(p.VendorID),
		nullableString(p.ProductID),
		p.DeviceType,
		p.AssignedPC,
		p.LabScope,
		nullableString(p.Remarks),
		formatTime(now),
		p.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return peripheral.ErrDuplicateModel
		}
		return fmt.Errorf("updating peripheral: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return peripheral.ErrPeripheralNotFound
	}
	p.UpdatedAt = now
	return nil
}

// DeletePeripheral removes a peripheral and its status history.
func (s *Store) DeletePeripheral(ctx context.Context, id int64) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM peripheral_status_history WHERE peripheral_id = ?", id,
		); err != nil {
			return fmt.Errorf("deleting status history: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM peripherals WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting peripheral: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return peripheral.ErrPeripheralNotFound
		}
		return nil
	})
}

// SetStatus applies change to every peripheral sel matches, all or nothing.
func (s *Store) SetStatus(ctx context.Context, sel peripheral.Selector, change peripheral.StatusChange) ([]peripheral.StatusResult, error) {
	at := change.At
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC().Truncate(timeUnit)

	var out []peripheral.StatusResult
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		matched, err := selectForUpdate(ctx, tx, sel)
		if err != nil {
			return err
		}

		// Validate every row before writing any.
		changed := make([]bool, len(matched))
		for i := range matched {
			if changed[i], err = peripheral.Plan(matched[i].Status, change); err != nil {
				return err
			}
		}

		for i := range matched {
			p := &matched[i]
			prev := p.Status
			if changed[i] {
				if err := writeStatus(ctx, tx, p, change, at); err != nil {
					return err
				}
			}
			out = append(out, peripheral.StatusResult{Peripheral: *p, Previous: prev, Changed: changed[i]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func selectForUpdate(ctx context.Context, tx *sql.Tx, sel peripheral.Selector) ([]peripheral.Peripheral, error) {
	base := "SELECT " + peripheralColumns + " FROM peripherals WHERE "

	switch sel.Kind {
	case peripheral.SelectByID:
		return queryPeripherals(ctx, tx, base+"id = ?", sel.ID)

	case peripheral.SelectByIdentity:
		if sel.UniqueID == "" {
			return nil, nil
		}
		return queryPeripherals(ctx, tx,
			base+"unique_id = ? AND (? = '' OR assigned_pc = ?) AND (? = '' OR lab_scope = ?) ORDER BY id",
			sel.UniqueID, sel.PCTag, sel.PCTag, sel.LabScope, sel.LabScope)

	case peripheral.SelectByModel:
		if _, ok := identity.ModelKey(sel.VendorID, sel.ProductID); !ok {
			return nil, nil
		}
		return queryPeripherals(ctx, tx,
			base+"vendor_id = ? AND product_id = ? AND (? = '' OR assigned_pc = ?) AND (? = '' OR lab_scope = ?) ORDER BY id",
			strings.ToUpper(sel.VendorID), strings.ToUpper(sel.ProductID), sel.PCTag, sel.PCTag, sel.LabScope, sel.LabScope)

	default:
		return nil, fmt.Errorf("unknown selector kind %d", sel.Kind)
	}
}

func writeStatus(ctx context.Context, tx *sql.Tx, p *peripheral.Peripheral, change peripheral.StatusChange, at time.Time) error {
	ts := formatTime(at)
	if _, err := tx.ExecContext(ctx, `
		UPDATE peripherals SET
			status = ?, status_updated_by = ?, status_updated_at = ?,
			status_reason = ?, updated_at = ?
		WHERE id = ?`,
		string(change.Status),
		nullableString(change.Actor),
		ts,
		nullableString(change.Reason),
		ts,
		p.ID,
	); err != nil {
		return fmt.Errorf("updating status of peripheral %d: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO peripheral_status_history
			(peripheral_id, old_status, new_status, changed_by, changed_at, reason)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID,
		nullableString(string(p.Status)),
		string(change.Status),
		change.Actor,
		ts,
		change.Reason,
	); err != nil {
		return fmt.Errorf("recording status history of peripheral %d: %w", p.ID, err)
	}

	p.Status = change.Status
	p.StatusUpdatedBy = change.Actor
	p.StatusReason = change.Reason
	p.StatusUpdatedAt = &at
	p.UpdatedAt = at
	return nil
}

// StatusHistory returns up to limit history entries for id, newest first.
// limit defaults to 50 and is capped at 200.
func (s *Store) StatusHistory(ctx context.Context, id int64, limit int) ([]peripheral.StatusHistoryEntry, error) {
	return s.queryHistory(ctx, `
		SELECT id, peripheral_id, old_status, new_status, changed_by, changed_at, reason
		FROM peripheral_status_history
		WHERE peripheral_id = ?
		ORDER BY changed_at DESC, id DESC
		LIMIT ?`,
		id, clampLimit(limit))
}

// RecentStatusHistory returns up to limit history entries across labScope,
// newest first.
func (s *Store) RecentStatusHistory(ctx context.Context, labScope string, limit int) ([]peripheral.StatusHistoryEntry, error) {
	return s.queryHistory(ctx, `
		SELECT h.id, h.peripheral_id, h.old_status, h.new_status, h.changed_by, h.changed_at, h.reason
		FROM peripheral_status_history h
		JOIN peripherals p ON p.id = h.peripheral_id
		WHERE p.lab_scope = ?
		ORDER BY h.changed_at DESC, h.id DESC
		LIMIT ?`,
		labScope, clampLimit(limit))
}

func (s *Store) queryHistory(ctx context.Context, query string, args ...any) ([]peripheral.StatusHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	var entries []peripheral.StatusHistoryEntry
	for rows.Next() {
		var (
			e         peripheral.StatusHistoryEntry
			oldStatus sql.NullString
			newStatus string
			changedAt string
		)
		if err := rows.Scan(&e.ID, &e.PeripheralID, &oldStatus, &newStatus, &e.ChangedBy, &changedAt, &e.Reason); err != nil {
			return nil, fmt.Errorf("scanning status history: %w", err)
		}
		e.OldStatus = peripheral.StatusFromStorage(oldStatus.String)
		e.NewStatus = peripheral.StatusFromStorage(newStatus)
		if e.ChangedAt, err = parseTime("changed_at", changedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status history: %w", err)
	}
	return entries, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryPeripherals(ctx context.Context, q querier, query string, args ...any) ([]peripheral.Peripheral, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying peripherals: %w", err)
	}
	defer rows.Close()

	var out []peripheral.Peripheral
	for rows.Next() {
		p, err := scanPeripheral(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning peripheral: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating peripherals: %w", err)
	}
	return out, nil
}

func scanPeripheral(scanner rowScanner) (*peripheral.Peripheral, error) {
	var (
		p                    peripheral.Peripheral
		brand, uniqueID      sql.NullString
		serial, vid, pid     sql.NullString
		status, statusBy     sql.NullString
		statusAt, statusWhy  sql.NullString
		remarks              sql.NullString
		createdAt, updatedAt string
	)
	err := scanner.Scan(
		&p.ID, &p.Name, &brand, &uniqueID, &serial, &vid, &pid,
		&p.DeviceType, &p.AssignedPC, &p.LabScope, &status, &statusBy,
		&statusAt, &statusWhy, &remarks, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Brand = brand.String
	p.UniqueID = uniqueID.String
	p.SerialNumber = serial.String
	p.VendorID = vid.String
	p.ProductID = pid.String
	p.Status = peripheral.StatusFromStorage(status.String)
	p.StatusUpdatedBy = statusBy.String
	p.StatusReason = statusWhy.String
	p.Remarks = remarks.String

	if statusAt.Valid {
		if t, err := parseTime("status_updated_at", statusAt.String); err == nil {
			p.StatusUpdatedAt = &t
		}
	}
	if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
