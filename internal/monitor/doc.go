// Package monitor drives the peripheral engine for one PC.
//
// A Monitor runs three loops under one errgroup:
//
//   - poll: enumerate → resolve → reconcile against the registry → apply
//     status changes → sweep for missing units → publish the report
//   - ingest: consume events published by PC agents over MQTT
//   - prune: drop events older than the retention horizon
//
// Devices that appear or disappear between two polls are recorded as
// synthetic connected/disconnected events, so the alert engine sees the
// same history whether events come from an agent or from polling.
package monitor
