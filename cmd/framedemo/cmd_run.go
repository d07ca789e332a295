package main

import (
	"fmt"
	"time"

	"github.com/gekko3d/framepipe"
	"github.com/gekko3d/framepipe/internal/demo"
	"github.com/gekko3d/framepipe/pipeline/fixedstep"
	"github.com/gekko3d/framepipe/platform"
	"github.com/gekko3d/framepipe/render/gpu"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a window and render the simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if feed, _ := cmd.Flags().GetString("feed"); feed != "" {
				cfg.Feed.URL = feed
			}
			boxes, _ := cmd.Flags().GetInt("boxes")
			seed, _ := cmd.Flags().GetUint64("seed")
			return runWindow(cfg, boxes, seed)
		},
	}

	cmd.Flags().String("feed", "", "Render snapshots from a websocket feed instead of the local simulation")
	cmd.Flags().Int("boxes", 32, "Number of boxes in the local simulation")
	cmd.Flags().Uint64("seed", 1, "Simulation seed")

	return cmd
}

func runWindow(cfg framepipe.Config, boxes int, seed uint64) error {
	logger := framepipe.NewDefaultLogger(cfg.Logging.Prefix, cfg.Logging.Debug)

	win, err := platform.Open(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title)
	if err != nil {
		return err
	}
	defer win.Destroy()

	fw, fh := win.FramebufferSize()
	gfx, err := gpu.NewContext(win.SurfaceDescriptor(), fw, fh)
	if err != nil {
		return err
	}
	defer gfx.Release()

	provider, err := gpu.NewProvider(gfx.Device, gfx.Format(), fw, fh, logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	producer, err := newProducer(cfg, boxes, seed, logger)
	if err != nil {
		return err
	}

	var report uint64
	if cfg.Logging.Debug {
		report = 300
	}

	app := framepipe.NewAppBuilder().
		UseModule(
			framepipe.LoggingModule{Logger: logger},
			framepipe.ProfilerModule{ReportEvery: report},
			windowModule{window: win, gfx: gfx, provider: provider},
			framepipe.TimeModule{
				StepHz:           cfg.Step.RateHz,
				MaxStepsPerFrame: cfg.Step.MaxStepsPerFrame,
			},
			framepipe.ViewportModule{
				DesignWidth:    cfg.Design.Width,
				DesignHeight:   cfg.Design.Height,
				PreserveAspect: cfg.Design.PreserveAspect,
			},
			framepipe.SnapshotModule[demo.World]{Producer: producer, Recycle: true},
			demo.DrawModule{Scene: demo.NewScene(float32(cfg.Design.Width), float32(cfg.Design.Height), cfg.Window.Title)},
			framepipe.SceneModule{Provider: provider},
		).
		Build()

	logger.Infof("rendering %dx%d, design %vx%v", fw, fh, cfg.Design.Width, cfg.Design.Height)
	app.Run()
	return nil
}

// newProducer feeds the bus from cfg.Feed.URL when set, otherwise from a
// local simulation stepped on its own goroutine.
func newProducer(cfg framepipe.Config, boxes int, seed uint64, logger framepipe.Logger) (framepipe.Producer[demo.World], error) {
	if cfg.Feed.URL != "" {
		logger.Infof("subscribing to %s", cfg.Feed.URL)
		return demo.RemoteProducer(cfg.Feed.URL, time.Second, logger), nil
	}

	acc, err := fixedstep.NewHz(cfg.Step.RateHz, cfg.Step.MaxStepsPerFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation clock: %w", err)
	}
	sim := demo.NewSim(boxes, float32(cfg.Design.Width), float32(cfg.Design.Height), seed)
	return demo.LocalProducer(sim, acc), nil
}
