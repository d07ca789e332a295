package demo

import (
	"fmt"
	"io"
	"time"

	"github.com/gekko3d/framepipe"
	"github.com/gekko3d/framepipe/pipeline/headless"
	"github.com/gekko3d/framepipe/pipeline/scene"
)

// Resize pushes a window size change before the given frame (1-based).
type Resize struct {
	Frame         uint64
	Width, Height int
}

type HeadlessOptions struct {
	Frames int
	Boxes  int
	Seed   uint64
	// FrameInterval is how far the fake clock advances per frame.
	FrameInterval time.Duration
	Resizes       []Resize
	Logger        *framepipe.DefaultLogger
}

// Report summarises a headless run.
type Report struct {
	Frames    int
	Ticks     uint64
	Allocated int
	Visible   int
	Mutations int
	Errors    int
	Totals    scene.FrameStats
	History   []scene.FrameStats
	Profile   string
}

func (r Report) Write(out io.Writer) error {
	_, err := fmt.Fprintf(out,
		"frames %d  ticks %d\nnodes allocated %d  visible %d\nprovider calls %d  upsert errors %d\n"+
			"created %d  rebuilt %d  skipped %d  shown %d  hidden %d  ephemeral %d\n\n%s",
		r.Frames, r.Ticks,
		r.Allocated, r.Visible,
		r.Mutations, r.Errors,
		r.Totals.Created, r.Totals.Rebuilt, r.Totals.Skipped, r.Totals.Shown, r.Totals.Hidden, r.Totals.Ephemeral,
		r.Profile,
	)
	return err
}

// RunHeadless runs the whole frame pipeline against a recording provider on
// a fake clock. The simulation steps in the Simulate stage and publishes on
// the frame thread, so runs are deterministic for a given seed.
func RunHeadless(cfg framepipe.Config, opts HeadlessOptions) (Report, error) {
	if opts.Frames <= 0 {
		return Report{}, fmt.Errorf("headless: frames must be positive, got %d", opts.Frames)
	}
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = time.Second / 60
	}
	logger := opts.Logger
	if logger == nil {
		logger = framepipe.NewDefaultLoggerTo(io.Discard, io.Discard, cfg.Logging.Prefix, false)
	}

	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	rec := headless.NewRecorder()
	sim := NewSim(opts.Boxes, float32(cfg.Design.Width), float32(cfg.Design.Height), opts.Seed)
	view := NewScene(float32(cfg.Design.Width), float32(cfg.Design.Height), cfg.Window.Title)

	report := Report{History: make([]scene.FrameStats, 0, opts.Frames)}
	resizes := opts.Resizes

	app := framepipe.NewAppBuilder().
		UseModule(
			framepipe.LoggingModule{Logger: logger},
			framepipe.ProfilerModule{},
			fakeClockModule{advance: func(frame uint64, q *framepipe.ResizeQueue) {
				now = now.Add(interval)
				for len(resizes) > 0 && resizes[0].Frame <= frame {
					q.Push(windowSize{Width: resizes[0].Width, Height: resizes[0].Height})
					resizes = resizes[1:]
				}
			}},
			framepipe.TimeModule{
				StepHz:           cfg.Step.RateHz,
				MaxStepsPerFrame: cfg.Step.MaxStepsPerFrame,
				Clock:            clock,
			},
			framepipe.ViewportModule{
				DesignWidth:    cfg.Design.Width,
				DesignHeight:   cfg.Design.Height,
				PreserveAspect: cfg.Design.PreserveAspect,
				WindowWidth:    float64(cfg.Window.Width),
				WindowHeight:   float64(cfg.Window.Height),
			},
			SimModule{Sim: sim},
			framepipe.SnapshotModule[World]{Clone: CloneWorld},
			DrawModule{Scene: view},
			framepipe.SceneModule{Provider: rec},
		).
		Build()

	app.UseSystem(framepipe.System(func(s *framepipe.SceneState) {
		report.History = append(report.History, s.Last)
		report.Totals = addStats(report.Totals, s.Last)
	}).InStage(framepipe.PostRender))

	report.Frames = app.RunFrames(opts.Frames)

	state, _ := framepipe.Resource[framepipe.SceneState](app)
	profiler, _ := framepipe.Resource[framepipe.Profiler](app)
	report.Ticks = sim.Tick()
	report.Allocated = rec.Allocated()
	report.Visible = len(rec.Visible())
	report.Mutations = rec.Mutations()
	report.Errors = state.Errors
	report.Profile = profiler.String()

	app.Close()
	return report, nil
}

// windowSize is the resize payload the headless runner queues.
type windowSize struct {
	Width, Height int
}

type fakeClockModule struct {
	advance func(frame uint64, q *framepipe.ResizeQueue)
}

func (m fakeClockModule) Install(app *framepipe.App, cmd *framepipe.Commands) {
	cmd.UseSystem(framepipe.System(func(q *framepipe.ResizeQueue) {
		m.advance(app.Frame()+1, q)
	}).InStage(framepipe.Prelude))
}

// SimModule steps Sim once per fixed step and publishes its live world on
// frames that advanced it. The live world shares box storage with Sim, so the
// SnapshotModule must be installed with Clone: CloneWorld.
type SimModule struct {
	Sim *Sim
}

func (m SimModule) Install(app *framepipe.App, cmd *framepipe.Commands) {
	cmd.UseSystem(framepipe.System(func(fixed *framepipe.FixedTime) {
		m.Sim.Step(float32(fixed.Step.Seconds()))
	}).InStage(framepipe.Simulate))

	cmd.UseSystem(framepipe.System(func(fixed *framepipe.FixedTime, bus *framepipe.SnapshotBus[World]) {
		if fixed.Steps == 0 {
			return
		}
		bus.Publish(m.Sim.World())
	}).InStage(framepipe.PostUpdate))
}

func addStats(a, b scene.FrameStats) scene.FrameStats {
	a.Created += b.Created
	a.Rebuilt += b.Rebuilt
	a.Skipped += b.Skipped
	a.Shown += b.Shown
	a.Hidden += b.Hidden
	a.Ephemeral += b.Ephemeral
	a.Nodes = b.Nodes
	return a
}
