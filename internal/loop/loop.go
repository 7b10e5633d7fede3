// Package loop drives the controller at a fixed cadence until shutdown.
package loop

import (
	"context"
	"time"

	"github.com/process1183/rpi-fanctl/internal/controller"
	"github.com/process1183/rpi-fanctl/internal/errors"
	"github.com/process1183/rpi-fanctl/internal/logger"
)

const (
	targetCadence = time.Second

	// minInterval keeps the loop breathing when sampling alone consumes the
	// full cadence.
	minInterval = 10 * time.Millisecond
)

// Ticker runs one control decision per call.
type Ticker interface {
	Tick() error
}

type Loop struct {
	controller Ticker
	interval   time.Duration
}

func New(ctl Ticker, sampleCount int, sampleDelay float64) *Loop {
	return &Loop{
		controller: ctl,
		interval:   Interval(sampleCount, sampleDelay),
	}
}

// Interval returns the inter-tick sleep: the ~1 Hz cadence minus the time
// the sampling itself already takes, floored at minInterval.
func Interval(sampleCount int, sampleDelay float64) time.Duration {
	sampling := time.Duration(float64(sampleCount) * sampleDelay * float64(time.Second))
	if sampling >= targetCadence {
		return minInterval
	}

	return targetCadence - sampling
}

// Run ticks the controller until ctx is cancelled. Cancellation is observed
// only between ticks; an in-progress tick runs to completion.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := l.controller.Tick(); err != nil {
			if controller.IsFatal(err) {
				return err
			}
			var appErr errors.Error
			if errors.As(err, &appErr) {
				logger.ErrorWithCode(appErr).Msg("Tick aborted, keeping current fan speed")
			} else {
				logger.Error().Err(err).Msg("Tick aborted, keeping current fan speed")
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.interval):
		}
	}
}
