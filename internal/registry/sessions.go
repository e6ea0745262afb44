package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSession is returned when a session is missing its principal or PC.
var ErrInvalidSession = errors.New("registry: session needs a principal and a pc tag")

// BindSession records that principal is logged in on pcTag, replacing any
// earlier binding.
func (s *Store) BindSession(ctx context.Context, principal, pcTag, labScope string) error {
	principal, pcTag = strings.TrimSpace(principal), strings.TrimSpace(pcTag)
	if principal == "" || pcTag == "" {
		return ErrInvalidSession
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_sessions (principal, pc_tag, lab_scope, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(principal) DO UPDATE SET
			pc_tag = excluded.pc_tag,
			lab_scope = excluded.lab_scope,
			started_at = excluded.started_at`,
		principal, pcTag, labScope, s.stamp())
	if err != nil {
		return fmt.Errorf("binding session: %w", err)
	}
	return nil
}

// UnbindSession ends principal's session. Ending a session that does not
// exist is not an error.
func (s *Store) UnbindSession(ctx context.Context, principal string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM active_sessions WHERE principal = ?", strings.TrimSpace(principal),
	); err != nil {
		return fmt.Errorf("unbinding session: %w", err)
	}
	return nil
}

// ActivePC returns the PC principal is logged in on.
func (s *Store) ActivePC(ctx context.Context, principal string) (string, bool, error) {
	var pc string
	err := s.db.QueryRowContext(ctx,
		"SELECT pc_tag FROM active_sessions WHERE principal = ?", principal,
	).Scan(&pc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying session: %w", err)
	}
	return pc, true, nil
}
