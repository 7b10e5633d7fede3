package sensor

import "github.com/process1183/rpi-fanctl/internal/errors"

const (
	ErrOpenFailed  = errors.ErrorCode("sensor_open_failed")
	ErrReadFailed  = errors.ErrorCode("sensor_read_failed")
	ErrParseFailed = errors.ErrorCode("sensor_parse_failed")

	// ErrUnavailable is reported by the controller once the sensor has
	// failed too many consecutive ticks to keep holding the last speed.
	ErrUnavailable = errors.ErrorCode("sensor_unavailable")
)
