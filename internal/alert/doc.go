// Package alert records peripheral connect/disconnect events and raises
// anomaly alerts from them.
//
// For every event Engine.RecordEvent:
//
//  1. rejects it if the principal's active session is on a different PC;
//  2. appends it to the event log;
//  3. on connect, marks the registered unit connected, or marks the slot's
//     unit replaced when a different model appears in its place;
//  4. on disconnect, marks the unit unplugged;
//  5. marks the unit faulty once it completes the configured number of
//     connect→disconnect cycles within the faulty window;
//  6. marks the unit missing when its last event is a disconnect older than
//     the missing threshold.
//
// Alerts are raised only when the status actually changes, so repeated
// evaluation never duplicates them. Alerts are soft-deleted and can be
// restored.
package alert
