package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/process1183/rpi-fanctl/internal/config"
	"github.com/process1183/rpi-fanctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetArgs strips the test binary's flags so Load only sees what the test
// sets up.
func resetArgs(t *testing.T, args ...string) {
	t.Helper()

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = append([]string{"fanctl"}, args...)
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fanctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	resetArgs(t)

	configPath := writeConfigFile(t, `
cpu_temp_file = "/tmp/faketemp"
cpu_temp_max = 75.0
cpu_temp_sample_count = 3
cpu_temp_sample_delay = 0.2
fan_active_min_speed = 25
fan_pwm_pin = 18
hysteresis = 4.0
trigger_temp = 55.0
log_level = "debug"
`)
	t.Setenv("FANCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/faketemp", cfg.CPUTempFile)
	assert.Equal(t, 75.0, cfg.CPUTempMax)
	assert.Equal(t, 3, cfg.CPUTempSampleCount)
	assert.Equal(t, 0.2, cfg.CPUTempSampleDelay)
	assert.Equal(t, 25, cfg.FanActiveMinSpeed)
	assert.Equal(t, 18, cfg.FanPWMPin)
	assert.Equal(t, 4.0, cfg.Hysteresis)
	assert.Equal(t, 55.0, cfg.TriggerTemp)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	resetArgs(t)
	t.Setenv("FANCTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultTempFile, cfg.CPUTempFile)
	assert.Equal(t, config.DefaultTempMax, cfg.CPUTempMax)
	assert.Equal(t, config.DefaultSampleCount, cfg.CPUTempSampleCount)
	assert.Equal(t, config.DefaultSampleDelay, cfg.CPUTempSampleDelay)
	assert.Equal(t, config.DefaultActiveMinSpeed, cfg.FanActiveMinSpeed)
	assert.Equal(t, config.DefaultPWMPin, cfg.FanPWMPin)
	assert.Equal(t, config.DefaultHysteresis, cfg.Hysteresis)
	assert.Equal(t, config.DefaultTriggerTemp, cfg.TriggerTemp)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.Verbose)
}

func TestLoadPartialOverride(t *testing.T) {
	resetArgs(t)

	configPath := writeConfigFile(t, `
trigger_temp = 60.0
`)
	t.Setenv("FANCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 60.0, cfg.TriggerTemp)
	assert.Equal(t, config.DefaultTempMax, cfg.CPUTempMax)
	assert.Equal(t, config.DefaultPWMPin, cfg.FanPWMPin)
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	resetArgs(t)

	configPath := writeConfigFile(t, `
This is not a valid TOML file
`)
	t.Setenv("FANCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTriggerTemp, cfg.TriggerTemp)
}

func TestMalformedValueFallsBackToDefaults(t *testing.T) {
	resetArgs(t)

	configPath := writeConfigFile(t, `
cpu_temp_max = "scorching"
`)
	t.Setenv("FANCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTempMax, cfg.CPUTempMax)
}

func TestFlagsOverrideFile(t *testing.T) {
	resetArgs(t, "--log-level", "error", "--verbose")

	configPath := writeConfigFile(t, `
log_level = "info"
trigger_temp = 60.0
`)
	t.Setenv("FANCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 60.0, cfg.TriggerTemp)
}

func TestConfigFlagSelectsFile(t *testing.T) {
	configPath := writeConfigFile(t, `
trigger_temp = 65.0
`)
	resetArgs(t, "--config", configPath)
	t.Setenv("FANCTL_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 65.0, cfg.TriggerTemp)
}

func TestInvalidLogLevel(t *testing.T) {
	resetArgs(t, "--log-level", "chatty")
	t.Setenv("FANCTL_CONFIG", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidLogLevel, errors.CodeOf(err))
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			CPUTempFile:        config.DefaultTempFile,
			CPUTempMax:         80,
			CPUTempSampleCount: 5,
			CPUTempSampleDelay: 0.1,
			FanActiveMinSpeed:  20,
			FanPWMPin:          13,
			Hysteresis:         5,
			TriggerTemp:        50,
			LogLevel:           "info",
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   errors.ErrorCode
	}{
		{"zero sample count", func(c *config.Config) { c.CPUTempSampleCount = 0 }, errors.ErrInvalidConfig},
		{"negative sample delay", func(c *config.Config) { c.CPUTempSampleDelay = -0.1 }, errors.ErrInvalidConfig},
		{"min speed above 100", func(c *config.Config) { c.FanActiveMinSpeed = 101 }, errors.ErrInvalidConfig},
		{"negative min speed", func(c *config.Config) { c.FanActiveMinSpeed = -1 }, errors.ErrInvalidConfig},
		{"negative hysteresis", func(c *config.Config) { c.Hysteresis = -1 }, errors.ErrInvalidConfig},
		{"trigger at max", func(c *config.Config) { c.TriggerTemp = 80 }, errors.ErrInvalidConfig},
		{"trigger above max", func(c *config.Config) { c.TriggerTemp = 90 }, errors.ErrInvalidConfig},
		{"non-PWM pin", func(c *config.Config) { c.FanPWMPin = 17 }, errors.ErrInvalidConfig},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }, errors.ErrInvalidLogLevel},
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}
