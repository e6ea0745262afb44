// Package influxdb records peripheral telemetry in InfluxDB 2.x.
//
// Three measurements are written:
//
//	peripheral_events    one point per connect/disconnect (tags: event_type, device_type, lab, pc)
//	peripheral_alerts    one point per raised alert (tags: alert_type, lab, pc)
//	reconciliation       one point per poll (fields: live, unregistered, disconnected, reconnected)
//
// Writes are batched and non-blocking. Telemetry is optional: when the
// client is closed, writes are dropped rather than failing the caller.
package influxdb
