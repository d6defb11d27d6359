package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/latr-engine/latr/asset/compiler"
	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/config"
	"github.com/latr-engine/latr/engine"
	"github.com/latr-engine/latr/renderer"
	"github.com/latr-engine/latr/types"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// ErrGUIUnavailable is returned when the engine config asks for a window.
var ErrGUIUnavailable = errors.New("gui run mode is not available in this build; set run_mode = \"headless\" or pass --headless")

// Run the simulation and a headless render loop.
func Simulate(ctx *cli.Context) error {
	cfg := config.DefaultEngine()
	if ctx.NArg() == 1 {
		var err error
		if cfg, err = config.LoadEngine(ctx.Args().First()); err != nil {
			return err
		}
	}
	if err := setupLogging(ctx, cfg.LogLevel); err != nil {
		return err
	}

	if ctx.Bool("headless") {
		cfg.RunMode = config.RunModeHeadless
	}
	if model := ctx.String("models"); model != "" {
		cfg.AttachModels(model)
	}
	if cfg.RunMode != config.RunModeHeadless {
		return ErrGUIUnavailable
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := ctx.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, d)
		defer cancel()
	}

	sc, err := loadModels(runCtx, cfg.ModelFile)
	if err != nil {
		return err
	}

	loop := &orbitCamera{
		scene: sc,
		speed: float32(ctx.Float64("orbit-speed")),
	}
	sim, sub := engine.NewSimulation(loop, engine.NewPhysics(cfg.Resolution[0], cfg.Resolution[1]), engine.SimulationOptions{
		TickPeriod: cfg.TickPeriod(),
	})

	sink := &renderer.BufferSink{}
	r, err := renderer.NewHeadless(sub, sink, renderer.Options{
		FPSCap:    cfg.FPSCap,
		MaxFrames: ctx.Uint64("frames"),
	})
	if err != nil {
		return err
	}
	defer r.Close()

	// Stop the simulation as soon as the render loop exits.
	simCtx, stopSim := context.WithCancel(runCtx)
	sim.Start(simCtx)

	renderErr := r.Render(runCtx)
	stopSim()
	<-sim.Done()

	logger.Noticef(
		"simulation ran %d ticks (%d lagged, %d handoff messages dropped); uploaded %s",
		sim.Ticks(), sim.Lagged(), sim.Dropped(), units.BytesSize(float64(sink.BytesUploaded())),
	)
	displayFrameStats(r.Stats())

	if err = sim.Err(); err != nil {
		return err
	}
	// Both loops observe the deadline; the render loop may see the
	// simulation exit first.
	if errors.Is(renderErr, engine.ErrSimulationDisconnected) && runCtx.Err() != nil {
		return nil
	}
	return renderErr
}

// Compile the models listed by the model config into an in-memory scene.
func loadModels(ctx context.Context, modelFile string) (*scene.Scene, error) {
	if modelFile == "" {
		logger.Warning("no model config specified; simulating an empty scene")
		return &scene.Scene{}, nil
	}

	cfg, err := config.LoadModelConfig(modelFile)
	if err != nil {
		return nil, err
	}

	var w compiler.MemoryWriter
	if _, err = compiler.BuildModels(ctx, cfg, &w); err != nil {
		return nil, err
	}
	sc := w.Scene()
	logger.Noticef("scene information:\n%s", sc.Stats())
	return sc, nil
}

// orbitCamera loads a scene and spins the camera around the scene center.
type orbitCamera struct {
	scene *scene.Scene

	// Radians per second.
	speed float32
}

func (o *orbitCamera) Init(p *engine.Physics) error {
	p.LoadScene(o.scene)

	bounds := types.EmptyAABB()
	for _, m := range o.scene.Meshes {
		bounds.Grow(m.Bounds)
	}
	if bounds.IsEmpty() {
		return nil
	}

	// Back off along -X so the whole scene is in view at zero yaw.
	center := bounds.Center()
	p.SetCameraPosition(center.Sub(types.XYZ(bounds.Extent().Len(), 0, 0)))
	return nil
}

func (o *orbitCamera) Update(p *engine.Physics) error {
	p.RotateCamera(0, o.speed*float32(p.DeltaTime().Seconds()))
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frames", "Updates", "Reused", "Skipped ticks", "Triangles", "Upload time", "Render time"})

	avg := time.Duration(0)
	if stats.Frames > 0 {
		avg = stats.RenderTime / time.Duration(stats.Frames)
	}
	table.Append([]string{
		fmt.Sprintf("%d", stats.Frames),
		fmt.Sprintf("%d", stats.Updates),
		fmt.Sprintf("%d", stats.Reused),
		fmt.Sprintf("%d", stats.SkippedTicks),
		fmt.Sprintf("%d", stats.Triangles),
		stats.UploadTime.String(),
		stats.RenderTime.String(),
	})
	table.SetFooter([]string{"", "", "", "", "", "AVG FRAME", avg.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
