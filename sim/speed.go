package sim

import (
	"math"
	"time"
)

const (
	// MaxSpeed is the fastest speed. At MaxSpeed the scheduler does not sleep
	// between cycles.
	MaxSpeed = 100

	// DefaultSpeed is the speed of a newly built scheduler.
	DefaultSpeed = 50

	minSpeedDelay = 30 * time.Microsecond
	maxSpeedDelay = 10 * time.Second
)

// ClampSpeed limits a speed to the range [0, MaxSpeed].
func ClampSpeed(speed int) int {
	if speed < 0 {
		return 0
	}

	if speed > MaxSpeed {
		return MaxSpeed
	}

	return speed
}

// DelayForSpeed converts a speed into the delay between cycle starts. The
// delay grows exponentially from 30µs at MaxSpeed-1 to 10s at speed 0.
func DelayForSpeed(speed int) time.Duration {
	raw := MaxSpeed - ClampSpeed(speed)
	if raw <= 0 {
		return 0
	}

	a := math.Pow(
		float64(maxSpeedDelay)/float64(minSpeedDelay),
		1/float64(MaxSpeed-1),
	)

	return time.Duration(math.Pow(a, float64(raw-1)) * float64(minSpeedDelay))
}
