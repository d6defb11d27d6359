package renderer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/latr-engine/latr/engine"
	"github.com/latr-engine/latr/log"
	"github.com/pkg/errors"
)

type Renderer interface {
	// Render frames until the context is cancelled, the frame limit is
	// reached or the simulation disconnects.
	Render(ctx context.Context) error

	// Shutdown renderer and release the attached sink.
	Close()

	// Get render statistics.
	Stats() FrameStats
}

// FrameSink receives the frames produced by a renderer. Upload is called
// whenever a new simulation snapshot is available and Draw once per frame.
// Sinks that hold resources may also implement io.Closer; Close is invoked
// when the renderer shuts down.
type FrameSink interface {
	Upload(engine.GpuUniformParams, *engine.TriangleBuffer) error
	Draw() error
}

type headlessRenderer struct {
	logger log.Logger
	sub    *engine.Subscriber
	sink   FrameSink
	opts   Options
	clock  clock.Clock
	period time.Duration

	mu       sync.Mutex
	stats    FrameStats
	uploaded bool
}

// NewHeadless creates a renderer that drains the handoff subscriber each
// frame and forwards new snapshots to sink without opening a window.
func NewHeadless(sub *engine.Subscriber, sink FrameSink, opts Options) (Renderer, error) {
	if sub == nil {
		return nil, ErrNoSubscriber
	}
	if sink == nil {
		return nil, ErrNoSink
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	r := &headlessRenderer{
		logger: log.New("renderer"),
		sub:    sub,
		sink:   sink,
		opts:   opts,
		clock:  clk,
	}
	if opts.FPSCap > 0 {
		r.period = time.Second / time.Duration(opts.FPSCap)
	}
	return r, nil
}

func (r *headlessRenderer) Render(ctx context.Context) error {
	r.logger.Noticef("rendering headless; fps cap: %d, frame limit: %d", r.opts.FPSCap, r.opts.MaxFrames)

	for r.opts.MaxFrames == 0 || r.Stats().Frames < r.opts.MaxFrames {
		if ctx.Err() != nil {
			return nil
		}

		start := r.clock.Now()
		if err := r.renderFrame(); err != nil {
			return err
		}
		work := r.clock.Since(start)

		r.mu.Lock()
		r.stats.RenderTime += work
		r.mu.Unlock()

		if r.period == 0 || work >= r.period {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-r.clock.After(r.period - work):
		}
	}
	return nil
}

func (r *headlessRenderer) renderFrame() error {
	frame, updated, err := r.sub.Latest()
	if err != nil {
		r.logger.Errorf("lost connection to the simulation after %d frames", r.Stats().Frames)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Frames++
	if !updated {
		r.stats.Reused++
	} else {
		if r.stats.LastSeq != 0 && frame.Params.Seq > r.stats.LastSeq+1 {
			r.stats.SkippedTicks += frame.Params.Seq - r.stats.LastSeq - 1
		}
		r.stats.LastSeq = frame.Params.Seq
		r.stats.Updates++
		r.stats.Triangles = len(frame.Triangles.Triangles)

		uploadStart := r.clock.Now()
		if err = r.sink.Upload(engine.FromEngineParams(frame.Params), &frame.Triangles); err != nil {
			return errors.Wrapf(err, "renderer: upload of tick %d failed", frame.Params.Seq)
		}
		r.stats.UploadTime += r.clock.Since(uploadStart)
		r.uploaded = true
	}

	// Nothing to draw until the first snapshot arrives.
	if !r.uploaded {
		return nil
	}
	if err = r.sink.Draw(); err != nil {
		return errors.Wrap(err, "renderer: draw failed")
	}
	return nil
}

func (r *headlessRenderer) Close() {
	if closer, ok := r.sink.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			r.logger.Warningf("could not release frame sink: %v", err)
		}
	}

	stats := r.Stats()
	r.logger.Infof("renderer closed after %d frames (%d updates)", stats.Frames, stats.Updates)
}

func (r *headlessRenderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
