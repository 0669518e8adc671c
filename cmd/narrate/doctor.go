package main

import (
	"fmt"

	"github.com/example/go-narrate/internal/doctor"
	"github.com/example/go-narrate/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg, the API key, and the encoding table are available",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			res := doctor.Run(doctor.Config{
				FFmpegVersion: doctor.FFmpegVersionFromPath(cfg.FFmpeg.Path),
				APIKeySet:     cfg.TTS.APIKey != "",
				LoadEncoding: func() error {
					_, err := tokenizer.New()
					return err
				},
			}, cmd.OutOrStdout())

			if res.Failed() {
				return fmt.Errorf("%d doctor check(s) failed", len(res.Failures()))
			}
			return nil
		},
	}

	return cmd
}
