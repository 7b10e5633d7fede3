// Package config loads and validates the control parameters.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/process1183/rpi-fanctl/internal/errors"
	"github.com/process1183/rpi-fanctl/internal/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName   = "fanctl"
	configType   = "toml"
	configDir    = "/etc"
	configEnvVar = "FANCTL_CONFIG"
)

// Built-in defaults, applied for any key the configuration file does not
// override.
const (
	DefaultTempFile       = "/sys/class/thermal/thermal_zone0/temp"
	DefaultTempMax        = 80.0
	DefaultSampleCount    = 5
	DefaultSampleDelay    = 0.1
	DefaultActiveMinSpeed = 20
	DefaultPWMPin         = 13
	DefaultHysteresis     = 5.0
	DefaultTriggerTemp    = 50.0
	DefaultLogLevel       = "info"
)

// Config holds the control parameters for one run. Immutable after Load.
type Config struct {
	CPUTempFile        string  `mapstructure:"cpu_temp_file"`
	CPUTempMax         float64 `mapstructure:"cpu_temp_max"`
	CPUTempSampleCount int     `mapstructure:"cpu_temp_sample_count"`
	CPUTempSampleDelay float64 `mapstructure:"cpu_temp_sample_delay"`
	FanActiveMinSpeed  int     `mapstructure:"fan_active_min_speed"`
	FanPWMPin          int     `mapstructure:"fan_pwm_pin"`
	Hysteresis         float64 `mapstructure:"hysteresis"`
	TriggerTemp        float64 `mapstructure:"trigger_temp"`
	LogLevel           string  `mapstructure:"log_level"`
	Debug              bool    `mapstructure:"debug"`
	Verbose            bool    `mapstructure:"verbose"`
}

// BCM pins wired to the Pi's two hardware PWM channels.
var validPWMPins = map[int]bool{12: true, 13: true, 18: true, 19: true}

func defaults() map[string]any {
	return map[string]any{
		"cpu_temp_file":         DefaultTempFile,
		"cpu_temp_max":          DefaultTempMax,
		"cpu_temp_sample_count": DefaultSampleCount,
		"cpu_temp_sample_delay": DefaultSampleDelay,
		"fan_active_min_speed":  DefaultActiveMinSpeed,
		"fan_pwm_pin":           DefaultPWMPin,
		"hysteresis":            DefaultHysteresis,
		"trigger_temp":          DefaultTriggerTemp,
		"log_level":             DefaultLogLevel,
		"debug":                 false,
		"verbose":               false,
	}
}

// Load reads configuration from the built-in defaults, the TOML config file
// and the command line, in increasing order of precedence. An unreadable or
// malformed config file is not fatal: the built-in defaults apply instead.
// Invalid parameter values in the merged result are fatal.
func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("fanctl", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	configPath := flags.StringP("config", "c", "", "Path to the configuration file")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.BoolP("verbose", "v", false, "Enable verbose output")
	flags.Bool("debug", false, "Enable debugging mode")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := newViper(*configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			logger.Debug().Msg("No config file found, using built-in defaults")
		} else {
			logger.Warn().Err(err).Msg("Unable to read config file, using built-in defaults")
			v = defaultsOnly()
		}
	}

	applyFlags(v, flags)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		logger.Warn().Err(err).Msg("Malformed config value, using built-in defaults")
		v = defaultsOnly()
		applyFlags(v, flags)
		if err := v.Unmarshal(config); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaultsOnly() *viper.Viper {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	return v
}

func newViper(configPath string) *viper.Viper {
	v := defaultsOnly()

	switch {
	case configPath != "":
		v.SetConfigFile(configPath)
	case os.Getenv(configEnvVar) != "":
		v.SetConfigFile(os.Getenv(configEnvVar))
	default:
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(configDir)
	}

	return v
}

// applyFlags overrides config file values with command line flags that were
// explicitly set.
func applyFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})
}

// Validate checks the parameter invariants. The strict trigger/max ordering
// also guarantees the speed mapping never divides by zero.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.CPUTempSampleCount < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("cpu_temp_sample_count must be at least 1, got %d", c.CPUTempSampleCount))
	}

	if c.CPUTempSampleDelay < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("cpu_temp_sample_delay must not be negative, got %g", c.CPUTempSampleDelay))
	}

	if c.FanActiveMinSpeed < 0 || c.FanActiveMinSpeed > 100 {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("fan_active_min_speed must be within 0-100, got %d", c.FanActiveMinSpeed))
	}

	if c.Hysteresis < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("hysteresis must not be negative, got %g", c.Hysteresis))
	}

	if c.TriggerTemp >= c.CPUTempMax {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("trigger_temp (%g) must be below cpu_temp_max (%g)", c.TriggerTemp, c.CPUTempMax))
	}

	if !validPWMPins[c.FanPWMPin] {
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("fan_pwm_pin %d is not a hardware PWM pin", c.FanPWMPin))
	}

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}
