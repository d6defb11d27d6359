package engine

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/latr-engine/latr/log"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// SimulationOptions configure a Simulation.
type SimulationOptions struct {
	// The fixed tick period.
	TickPeriod time.Duration

	// The time source; defaults to the wall clock.
	Clock clock.Clock

	// The capacity of the handoff channels.
	ChannelDepth int
}

// Simulation drives a PhysicsLoop on its own goroutine at a fixed tick rate
// and publishes the resulting state through a Handoff.
type Simulation struct {
	logger  log.Logger
	loop    PhysicsLoop
	physics *Physics
	pub     *Publisher
	clock   clock.Clock
	period  time.Duration

	ticks  atomic.Uint64
	lagged atomic.Uint64
	err    atomic.Error
	done   chan struct{}
}

// NewSimulation creates a simulation for loop and returns it along with the
// subscriber end of its handoff.
func NewSimulation(loop PhysicsLoop, physics *Physics, opts SimulationOptions) (*Simulation, *Subscriber) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	pub, sub := NewHandoff(opts.ChannelDepth)
	physics.deltaTime = opts.TickPeriod

	return &Simulation{
		logger:  log.New("simulation"),
		loop:    loop,
		physics: physics,
		pub:     pub,
		clock:   clk,
		period:  opts.TickPeriod,
		done:    make(chan struct{}),
	}, sub
}

// Start runs the simulation on a new goroutine until ctx is cancelled, the
// physics loop fails or it panics.
func (s *Simulation) Start(ctx context.Context) {
	go s.run(ctx)
}

// Done is closed once the simulation goroutine exits.
func (s *Simulation) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that stopped the simulation, if any. Context
// cancellation is not reported as an error.
func (s *Simulation) Err() error {
	return s.err.Load()
}

// Ticks returns the number of completed ticks.
func (s *Simulation) Ticks() uint64 {
	return s.ticks.Load()
}

// Lagged returns the number of ticks whose work exceeded the tick period.
func (s *Simulation) Lagged() uint64 {
	return s.lagged.Load()
}

// Dropped returns the number of handoff messages dropped due to a slow
// renderer.
func (s *Simulation) Dropped() uint64 {
	return s.pub.Dropped()
}

func (s *Simulation) run(ctx context.Context) {
	defer close(s.done)
	defer s.pub.Close()
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("engine: physics loop panicked: %v", r)
			s.logger.Errorf("%v\n%s", err, debug.Stack())
			s.err.Store(err)
		}
	}()

	if err := s.loop.Init(s.physics); err != nil {
		s.fail(errors.Wrap(err, "engine: physics init failed"))
		return
	}
	s.pub.Publish(&s.physics.triangles, s.physics.params)

	s.logger.Infof("simulation started; tick period: %s", s.period)
	for {
		if ctx.Err() != nil {
			s.logger.Infof("simulation stopped after %d ticks (%d lagged)", s.ticks.Load(), s.lagged.Load())
			return
		}

		start := s.clock.Now()
		s.physics.tick++
		if err := s.loop.Update(s.physics); err != nil {
			s.fail(errors.Wrapf(err, "engine: physics update failed at tick %d", s.physics.tick))
			return
		}
		s.pub.Publish(&s.physics.triangles, s.physics.params)
		s.ticks.Inc()

		work := s.clock.Since(start)
		if s.period > 0 && work > s.period {
			// No catch-up; the next tick starts right away.
			s.lagged.Inc()
			s.logger.Warningf("tick %d took %s; exceeds tick period %s", s.physics.tick, work, s.period)
			continue
		}

		select {
		case <-ctx.Done():
		case <-s.clock.After(s.period - work):
		}
	}
}

func (s *Simulation) fail(err error) {
	s.logger.Error(err)
	s.err.Store(err)
}
