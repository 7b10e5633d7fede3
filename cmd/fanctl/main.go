package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/process1183/rpi-fanctl/internal/config"
	"github.com/process1183/rpi-fanctl/internal/controller"
	"github.com/process1183/rpi-fanctl/internal/errors"
	"github.com/process1183/rpi-fanctl/internal/fan"
	"github.com/process1183/rpi-fanctl/internal/logger"
	"github.com/process1183/rpi-fanctl/internal/loop"
	"github.com/process1183/rpi-fanctl/internal/pid"
	"github.com/process1183/rpi-fanctl/internal/sensor"
)

func main() {
	logger.Init(false, false, logger.IsService())

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if !cfg.Debug && !cfg.Verbose {
		logger.SetLogLevelFromName(cfg.LogLevel)
	}
	logger.Debug().Msg("Config loaded")

	if err := run(cfg); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Msg("fanctl terminated")
		}
		logger.Fatal().Err(err).Msg("fanctl terminated")
	}
}

func run(cfg *config.Config) error {
	errFactory := errors.New()

	if err := pid.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	source, err := sensor.New(cfg.CPUTempFile)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close temperature source")
		}
	}()

	fanCtl, err := fan.New(cfg.FanPWMPin, fan.DefaultPWMFreq)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	defer func() {
		if err := fanCtl.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release PWM pin")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	return serve(ctx, cfg, source, fanCtl)
}

// serve runs the control loop and stops the fan only on a clean shutdown. A
// fatal exit leaves the last commanded duty latched on the hardware; after a
// sensor failure that is the fail-safe full speed, which must survive the
// process.
func serve(ctx context.Context, cfg *config.Config, source sensor.Source, fanCtl fan.Controller) error {
	errFactory := errors.New()

	ctl := controller.New(cfg, source, fanCtl)
	l := loop.New(ctl, cfg.CPUTempSampleCount, cfg.CPUTempSampleDelay)

	logger.Info().Msgf("Controlling fan on pin %d from %s", cfg.FanPWMPin, cfg.CPUTempFile)

	if err := l.Run(ctx); err != nil {
		return errFactory.Wrap(errors.ErrMainLoop, err)
	}

	if err := fanCtl.SetSpeed(0); err != nil {
		logger.Warn().Err(err).Msg("Failed to stop fan")
	}
	logger.Info().Msg("Exiting...")

	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
