// Package registry is the SQLite-backed store for registered peripherals,
// their status history, the connect/disconnect event log, alerts and active
// operator sessions.
//
// Store implements peripheral.Repository and alert.Registry. Every status
// change runs in one transaction that reads the selected rows, validates the
// move and writes both the row and its history entry, so a rejected change
// leaves nothing behind. The database is opened with a single connection, so
// all statements inside a transaction go through that transaction.
//
// Timestamps are stored as RFC3339 UTC text with second precision, which
// sorts lexically in chronological order.
package registry
