package renderer

import "time"

type FrameStats struct {
	// Number of rendered frames.
	Frames uint64

	// Frames that picked up a new simulation snapshot and frames that
	// reused the previous one.
	Updates uint64
	Reused  uint64

	// Simulation ticks that were published but never rendered.
	SkippedTicks uint64

	// Sequence number of the last rendered snapshot.
	LastSeq uint64

	// Triangle count of the last rendered snapshot.
	Triangles int

	// Time spent uploading snapshots to the sink.
	UploadTime time.Duration

	// Total render time across all frames.
	RenderTime time.Duration
}
