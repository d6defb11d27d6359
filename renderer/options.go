package renderer

import "github.com/benbjohnson/clock"

type Options struct {
	// Upper bound on rendered frames per second; 0 renders as fast as
	// possible.
	FPSCap uint32

	// Stop after this many frames; 0 renders until cancelled.
	MaxFrames uint64

	// Time source used for frame pacing. Defaults to the wall clock.
	Clock clock.Clock
}
