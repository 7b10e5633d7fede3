package fan

// Controller commands a percentage-speed cooling fan.
type Controller interface {
	// SetSpeed commands the fan to percent (0-100). The hardware command is
	// re-issued even when percent matches the current speed, so hardware
	// state matches software state after any fault recovery.
	SetSpeed(percent int) error

	// GetSpeed returns the last successfully commanded percent, initially 0.
	GetSpeed() int

	// Close releases the underlying PWM resources.
	Close() error
}

// pwmBackend is the minimal interface the fan needs from a PWM driver.
// Duty is expressed against an explicit cycle length.
type pwmBackend interface {
	SetFrequency(hz int)
	SetDutyCycle(duty, cycle uint32)
	Close() error
}
