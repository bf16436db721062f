package pipeline

import "time"

// Config carries the pipeline tuning knobs. Constructed once at startup and
// treated as immutable; tests inject their own values.
type Config struct {
	// Frames to discard at startup while the camera auto-exposes.
	WarmupFrames int

	// Pixel intensity change that counts as motion.
	MotionThreshold uint8

	// Minimum changed-region area (px²) that counts as "item placed".
	MotionMinArea int

	// Time with no detected motion before the item is considered settled.
	SettleTime time.Duration

	// Pause after a sort before watching for the next item.
	Cooldown time.Duration

	// Client-side bound on one classification call.
	ClassifyTimeout time.Duration

	// Cadence of the orchestration tick loop.
	TickInterval time.Duration

	// UseArm disables actuation entirely when false (vision-only mode).
	UseArm bool
}

func DefaultConfig() Config {
	return Config{
		WarmupFrames:    60,
		MotionThreshold: 30,
		MotionMinArea:   5000,
		SettleTime:      1500 * time.Millisecond,
		Cooldown:        5 * time.Second,
		ClassifyTimeout: 30 * time.Second,
		TickInterval:    33 * time.Millisecond,
		UseArm:          true,
	}
}
