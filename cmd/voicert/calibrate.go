package main

import (
	"context"
	"time"

	"github.com/codewandler/voicert-go/audio"
	"github.com/spf13/cobra"
)

func newCalibrateCmd(a *app) *cobra.Command {
	var seconds float64

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure the background noise level",
		Long: `Record a few seconds of silence and print the mean RMS level.

Put the result into config.json as silence_threshold, a little above the
measured value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.cfg.CalibrationDuration()
			if seconds > 0 {
				d = time.Duration(seconds * float64(time.Second))
			}
			return a.calibrate(cmd.Context(), d)
		},
	}
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "how long to listen (default from config)")
	return cmd
}

func (a *app) calibrate(ctx context.Context, d time.Duration) error {
	backend, err := a.backend()
	if err != nil {
		return err
	}
	defer backend.Close()

	a.printf("Listening for %s, stay quiet...\n", d)
	threshold, err := audio.NewCalibrator(backend, a.captureConfig()).Calibrate(ctx, d)
	if err != nil {
		return err
	}
	a.printf("Ambient RMS: %.1f (configured silence_threshold: %.1f)\n", threshold, a.cfg.SilenceThreshold)
	return nil
}
