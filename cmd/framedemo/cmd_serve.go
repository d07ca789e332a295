package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gekko3d/framepipe"
	"github.com/gekko3d/framepipe/internal/demo"
	"github.com/gekko3d/framepipe/netfeed"
	"github.com/gekko3d/framepipe/pipeline/fixedstep"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and broadcast snapshots over a websocket",
		Long: `serve steps the simulation in real time and broadcasts a snapshot to
every client connected to /feed. Point "framedemo run --feed" at it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				cfg.Feed.Listen = listen
			}
			boxes, _ := cmd.Flags().GetInt("boxes")
			seed, _ := cmd.Flags().GetUint64("seed")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, cfg, boxes, seed)
		},
	}

	cmd.Flags().String("listen", "", "Listen address (overrides feed.listen)")
	cmd.Flags().Int("boxes", 32, "Number of boxes in the simulation")
	cmd.Flags().Uint64("seed", 1, "Simulation seed")

	return cmd
}

func serve(ctx context.Context, cfg framepipe.Config, boxes int, seed uint64) error {
	logger := framepipe.NewDefaultLogger(cfg.Logging.Prefix, cfg.Logging.Debug)

	acc, err := fixedstep.NewHz(cfg.Step.RateHz, cfg.Step.MaxStepsPerFrame)
	if err != nil {
		return fmt.Errorf("failed to create simulation clock: %w", err)
	}
	sim := demo.NewSim(boxes, float32(cfg.Design.Width), float32(cfg.Design.Height), seed)

	b := netfeed.NewBroadcaster(logger)
	defer b.Close()

	mux := http.NewServeMux()
	mux.Handle("/feed", b)
	srv := &http.Server{Addr: cfg.Feed.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errs := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("failed to serve feed: %w", err)
		}
	}()
	go func() {
		interval := time.Duration(float64(time.Second) / cfg.Feed.RateHz)
		if err := demo.Broadcast(ctx, sim, acc, b, interval); err != nil {
			errs <- err
		}
	}()
	logger.Infof("serving feed on %s/feed at %v Hz", cfg.Feed.Listen, cfg.Feed.RateHz)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("feed shutdown: %v", err)
	}
	logger.Infof("served %d snapshots", b.Seq())
	return runErr
}
