package influxdb

import "errors"

// Errors returned by the metrics client. Match them with errors.Is.
var (
	// ErrNotConnected means a health check ran without a live client.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps a failed ping during Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps batch write errors passed to the SetOnError
	// callback.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled is returned by Connect when metrics are turned off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
