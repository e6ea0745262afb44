// Package peripheral defines registered peripherals and their status
// lifecycle.
//
// A peripheral moves between five statuses:
//
//	connected → unplugged, faulty, replaced
//	unplugged → connected, missing, faulty
//	missing   → connected, replaced
//	faulty    → connected, replaced
//	replaced  → connected
//
// A peripheral with no status yet may take any status. Every status change
// appends one StatusHistoryEntry in the same transaction as the change;
// applying the current status again changes nothing.
//
// Manual changes go through StateMachine.Apply, which enforces the table
// above. Event-driven updates (disconnects, anomaly classification) write
// through Store.SetStatus with Enforce unset.
package peripheral
