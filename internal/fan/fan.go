// Package fan drives a 4-wire cooling fan over a hardware PWM pin.
package fan

import (
	"fmt"

	"github.com/process1183/rpi-fanctl/internal/errors"
	"github.com/process1183/rpi-fanctl/internal/logger"
)

const (
	// DefaultPWMFreq is the ideal PWM carrier for Noctua fans (see page 6
	// of the Noctua PWM specifications white paper) and keeps most 4-wire
	// fans out of the audible range.
	DefaultPWMFreq = 25000

	maxSpeedPercent = 100

	// Duty cycle units follow the pigpio hardware PWM convention of a
	// 0-1,000,000 full scale, rescaled to the backend cycle length.
	dutyFullScale  = 1000000
	dutyPerPercent = dutyFullScale / maxSpeedPercent
	pwmCycleLen    = 100
	dutyPerStep    = dutyFullScale / pwmCycleLen
)

// Fan is a PWM-controlled fan on a single pin. It records the last
// commanded speed so the controller can derive its activation state.
type Fan struct {
	backend pwmBackend
	pin     int
	freq    int
	speed   int
}

// New maps the GPIO registers and configures hardware PWM on the given BCM
// pin at pwmFreq Hz, with the fan initially stopped.
func New(pin, pwmFreq int) (*Fan, error) {
	backend, err := newRPIOBackend(pin)
	if err != nil {
		return nil, err
	}

	return newFan(backend, pin, pwmFreq), nil
}

func newFan(backend pwmBackend, pin, pwmFreq int) *Fan {
	f := &Fan{
		backend: backend,
		pin:     pin,
		freq:    pwmFreq,
	}

	f.backend.SetFrequency(pwmFreq * pwmCycleLen)
	f.backend.SetDutyCycle(0, pwmCycleLen)

	return f
}

func (f *Fan) SetSpeed(percent int) error {
	errFactory := errors.New()

	if percent < 0 || percent > maxSpeedPercent {
		return errFactory.WithData(errors.ErrInvalidArgument,
			fmt.Sprintf("fan speed %d%% out of range", percent))
	}

	duty := uint32(percent * dutyPerPercent)
	f.backend.SetDutyCycle(duty/dutyPerStep, pwmCycleLen)
	f.speed = percent

	logger.Debug().Msgf("Set fan speed: %d%%", percent)

	return nil
}

func (f *Fan) GetSpeed() int {
	return f.speed
}

func (f *Fan) Close() error {
	return f.backend.Close()
}
