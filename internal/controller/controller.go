// Package controller implements the hysteresis fan control decision.
package controller

import (
	"math"
	"time"

	"github.com/process1183/rpi-fanctl/internal/config"
	"github.com/process1183/rpi-fanctl/internal/curve"
	"github.com/process1183/rpi-fanctl/internal/errors"
	"github.com/process1183/rpi-fanctl/internal/fan"
	"github.com/process1183/rpi-fanctl/internal/logger"
	"github.com/process1183/rpi-fanctl/internal/sensor"
)

// State is the controller's activation state. It is tracked explicitly and
// updated only after a successful fan command, so a failed command cannot
// leave it out of sync with the hardware.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}

	return "idle"
}

const (
	// maxConsecutiveFailures bounds how long the controller holds the last
	// commanded speed on a failing sensor before giving up on it.
	maxConsecutiveFailures = 10

	// failSafeSpeed is commanded when the sensor is declared unavailable.
	// With no temperature to go on, full cooling is the safe direction.
	failSafeSpeed = 100

	maxSpeed = 100.0
)

// Controller samples the temperature, smooths it and commands the fan,
// applying hysteresis around the trigger temperature.
type Controller struct {
	cfg      *config.Config
	source   sensor.Source
	fan      fan.Controller
	state    State
	failures int
}

func New(cfg *config.Config, source sensor.Source, fanCtl fan.Controller) *Controller {
	c := &Controller{
		cfg:    cfg,
		source: source,
		fan:    fanCtl,
	}

	if fanCtl.GetSpeed() > 0 {
		c.state = Active
	}

	return c
}

func (c *Controller) State() State {
	return c.state
}

// Tick runs one control decision. While the smoothed temperature is below
// the trigger the fan stays off. Once it reaches the trigger, the fan starts
// at the configured minimum active speed and the trigger drops by the
// hysteresis band until the temperature falls back below it. Above the
// trigger the speed scales linearly, reaching 100% at the maximum
// temperature.
//
// A sensor read failure aborts the tick and leaves the last commanded speed
// in place.
func (c *Controller) Tick() error {
	errFactory := errors.New()

	temp, err := c.sampleTemperature()
	if err != nil {
		c.failures++
		if c.failures >= maxConsecutiveFailures {
			if cmdErr := c.fan.SetSpeed(failSafeSpeed); cmdErr != nil {
				return cmdErr
			}
			c.state = Active
			logger.Error().Msgf("Sensor failed %d consecutive ticks, fan at %d%%", c.failures, failSafeSpeed)

			return errFactory.Wrap(sensor.ErrUnavailable, err)
		}

		return err
	}
	c.failures = 0

	effectiveTrigger := c.cfg.TriggerTemp
	if c.state == Active {
		effectiveTrigger -= c.cfg.Hysteresis
	}

	logger.Info().Msgf("Current fan speed: %d%%, trigger: %g°C", c.fan.GetSpeed(), effectiveTrigger)

	if temp < effectiveTrigger {
		if err := c.fan.SetSpeed(0); err != nil {
			return err
		}
		c.state = Idle
		logger.Info().Msg("Set fan speed to 0%")

		return nil
	}

	speed := int(curve.Map(temp, effectiveTrigger, c.cfg.CPUTempMax,
		float64(c.cfg.FanActiveMinSpeed), maxSpeed))
	if err := c.fan.SetSpeed(speed); err != nil {
		return err
	}
	if speed > 0 {
		c.state = Active
	} else {
		c.state = Idle
	}
	logger.Info().Msgf("Set fan speed to %d%%", speed)

	return nil
}

// sampleTemperature takes the configured number of readings, each rounded to
// the nearest degree and separated by the sample delay, then rounds their
// average again. The double rounding matches the controller's long-standing
// observed behavior. Ties round half away from zero (math.Round), not to
// even.
func (c *Controller) sampleTemperature() (float64, error) {
	count := c.cfg.CPUTempSampleCount
	delay := time.Duration(c.cfg.CPUTempSampleDelay * float64(time.Second))

	samples := make([]int, 0, count)
	sum := 0
	for i := 0; i < count; i++ {
		value, err := c.source.Read()
		if err != nil {
			return 0, err
		}
		rounded := int(math.Round(value))
		samples = append(samples, rounded)
		sum += rounded

		if delay > 0 {
			time.Sleep(delay)
		}
	}

	average := math.Round(float64(sum) / float64(count))
	logger.Info().Ints("samples", samples).Float64("average", average).Msg("CPU temperature")

	return average, nil
}

// IsFatal reports whether a tick error must terminate the control loop. A
// plain sensor read failure only aborts one tick; anything else means the
// process cannot safely continue.
func IsFatal(err error) bool {
	switch errors.CodeOf(err) {
	case sensor.ErrReadFailed, sensor.ErrParseFailed:
		return false
	}

	return true
}
