package influxdb

import "errors"

// Errors returned by Client. Match with errors.Is.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when the influxdb section is off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
