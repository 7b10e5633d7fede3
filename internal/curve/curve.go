// Package curve provides the temperature to fan speed mapping.
package curve

// Map re-maps x from the range [inMin, inMax] to [outMin, outMax] by linear
// interpolation, clamping the result to outMin below inMin and to outMax
// above inMax. inMin must not equal inMax; configuration validation
// guarantees this for the ranges the controller passes in.
func Map(x, inMin, inMax, outMin, outMax float64) float64 {
	if x < inMin {
		return outMin
	}

	if x > inMax {
		return outMax
	}

	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}
