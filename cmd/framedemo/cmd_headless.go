package main

import (
	"github.com/gekko3d/framepipe"
	"github.com/gekko3d/framepipe/internal/demo"
	"github.com/spf13/cobra"
)

func newHeadlessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headless",
		Short: "Run the pipeline without a window and report cache activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			frames, _ := cmd.Flags().GetInt("frames")
			boxes, _ := cmd.Flags().GetInt("boxes")
			seed, _ := cmd.Flags().GetUint64("seed")

			opts := demo.HeadlessOptions{Frames: frames, Boxes: boxes, Seed: seed}
			if cfg.Logging.Debug {
				opts.Logger = framepipe.NewDefaultLoggerTo(cmd.ErrOrStderr(), cmd.ErrOrStderr(), cfg.Logging.Prefix, true)
			}
			report, err := demo.RunHeadless(cfg, opts)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int("frames", 600, "Number of frames to run")
	cmd.Flags().Int("boxes", 32, "Number of boxes in the simulation")
	cmd.Flags().Uint64("seed", 1, "Simulation seed")

	return cmd
}
