package fan

import "github.com/process1183/rpi-fanctl/internal/errors"

const (
	ErrPWMInit = errors.ErrorCode("fan_pwm_init_failed")
)
