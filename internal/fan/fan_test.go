package fan

import (
	"testing"

	"github.com/process1183/rpi-fanctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dutyCommand struct {
	duty, cycle uint32
}

// fakeBackend records every PWM command.
type fakeBackend struct {
	freq     int
	commands []dutyCommand
	closed   bool
}

func (b *fakeBackend) SetFrequency(hz int) {
	b.freq = hz
}

func (b *fakeBackend) SetDutyCycle(duty, cycle uint32) {
	b.commands = append(b.commands, dutyCommand{duty, cycle})
}

func (b *fakeBackend) Close() error {
	b.closed = true

	return nil
}

func TestNewConfiguresCarrierAndStopsFan(t *testing.T) {
	b := &fakeBackend{}
	f := newFan(b, 13, DefaultPWMFreq)

	assert.Equal(t, DefaultPWMFreq*pwmCycleLen, b.freq)
	assert.Equal(t, []dutyCommand{{0, pwmCycleLen}}, b.commands)
	assert.Equal(t, 0, f.GetSpeed())
}

func TestSetSpeedCommandsProportionalDuty(t *testing.T) {
	b := &fakeBackend{}
	f := newFan(b, 13, DefaultPWMFreq)

	require.NoError(t, f.SetSpeed(37))

	last := b.commands[len(b.commands)-1]
	assert.Equal(t, dutyCommand{37, pwmCycleLen}, last)
	assert.Equal(t, 37, f.GetSpeed())
}

func TestSetSpeedBounds(t *testing.T) {
	b := &fakeBackend{}
	f := newFan(b, 13, DefaultPWMFreq)

	require.NoError(t, f.SetSpeed(0))
	require.NoError(t, f.SetSpeed(100))
	assert.Equal(t, dutyCommand{100, pwmCycleLen}, b.commands[len(b.commands)-1])
}

func TestSetSpeedRejectsOutOfRange(t *testing.T) {
	b := &fakeBackend{}
	f := newFan(b, 13, DefaultPWMFreq)
	require.NoError(t, f.SetSpeed(42))
	issued := len(b.commands)

	for _, percent := range []int{-1, 101, 1000} {
		err := f.SetSpeed(percent)
		require.Error(t, err, "percent=%d", percent)
		assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
	}

	// No hardware command was issued and the recorded speed is unchanged.
	assert.Len(t, b.commands, issued)
	assert.Equal(t, 42, f.GetSpeed())
}

func TestSetSpeedAlwaysReissuesCommand(t *testing.T) {
	b := &fakeBackend{}
	f := newFan(b, 13, DefaultPWMFreq)

	require.NoError(t, f.SetSpeed(55))
	require.NoError(t, f.SetSpeed(55))

	// One initial stop command plus two identical speed commands: no
	// debouncing.
	assert.Len(t, b.commands, 3)
}

func TestCloseReleasesBackend(t *testing.T) {
	b := &fakeBackend{}
	f := newFan(b, 13, DefaultPWMFreq)

	require.NoError(t, f.Close())
	assert.True(t, b.closed)
}
