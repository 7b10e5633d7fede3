package fan

import (
	"github.com/process1183/rpi-fanctl/internal/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

// rpioBackend drives the Raspberry Pi hardware PWM through /dev/gpiomem.
type rpioBackend struct {
	pin rpio.Pin
}

func newRPIOBackend(pin int) (*rpioBackend, error) {
	errFactory := errors.New()

	if err := rpio.Open(); err != nil {
		return nil, errFactory.Wrap(ErrPWMInit, err)
	}

	p := rpio.Pin(pin)
	p.Mode(rpio.Pwm)

	return &rpioBackend{pin: p}, nil
}

// SetFrequency sets the PWM clock source frequency. The carrier seen by the
// fan is this divided by the cycle length.
func (b *rpioBackend) SetFrequency(hz int) {
	b.pin.Freq(hz)
}

func (b *rpioBackend) SetDutyCycle(duty, cycle uint32) {
	b.pin.DutyCycle(duty, cycle)
}

func (b *rpioBackend) Close() error {
	errFactory := errors.New()

	if err := rpio.Close(); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}
