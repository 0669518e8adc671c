package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/go-narrate/internal/audio"
	"github.com/example/go-narrate/internal/config"
	"github.com/example/go-narrate/internal/merge"
	"github.com/example/go-narrate/internal/pipeline"
	textpkg "github.com/example/go-narrate/internal/text"
	"github.com/example/go-narrate/internal/tokenizer"
	"github.com/example/go-narrate/internal/tts"
	"github.com/example/go-narrate/internal/validate"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "synth <input.txt>",
		Short: "Convert a text file into a single narrated audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if cfg.TTS.APIKey == "" {
				return fmt.Errorf("no API key configured (set OPENAI_API_KEY or tts.api_key)")
			}
			return runSynth(cmd.Context(), cfg, args[0], out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file path (default: <input stem>_merged.<ext> next to the input)")

	return cmd
}

func runSynth(ctx context.Context, cfg config.Config, inputPath, outPath string) error {
	content, err := validate.ReadFile(inputPath, validate.Options{
		MaxBytes:    cfg.Paths.MaxInputBytes,
		AllowedRoot: cfg.Paths.AllowedRoot,
	})
	if err != nil {
		return err
	}

	tok, err := tokenizer.New()
	if err != nil {
		return err
	}

	segments := textpkg.Split(content, cfg.Pipeline.TokenBudget, tok.Count)
	if len(segments) == 0 {
		return fmt.Errorf("no synthesizable text in %s", inputPath)
	}
	slog.Info("text split into segments",
		"segments", len(segments), "token_budget", cfg.Pipeline.TokenBudget)
	for _, seg := range segments {
		slog.Debug("segment",
			"index", seg.Index, "chars", len(seg.Text), "tokens", seg.TokenCount)
	}

	format, err := config.NormalizeFormat(cfg.TTS.ResponseFormat)
	if err != nil {
		return err
	}
	ext := config.Extension(format)

	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	if outPath == "" {
		outPath = filepath.Join(dir, stem+"_merged."+ext)
	}

	client := tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		APIBase:        cfg.TTS.APIBase,
		Model:          cfg.TTS.Model,
		Voice:          cfg.TTS.Voice,
		Speed:          cfg.TTS.Speed,
		ResponseFormat: format,
		Instructions:   cfg.TTS.Instructions,
		Timeout:        time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
		MaxRetries:     cfg.Pipeline.MaxRetries,
		BaseRetryDelay: time.Duration(cfg.Pipeline.RetryDelaySeconds) * time.Second,
	})

	runner := &pipeline.Runner{
		Synth:       client,
		Concurrency: cfg.Pipeline.Concurrency,
		OutputDir:   dir,
		Prefix:      stem,
		Extension:   ext,
		OnProgress: func(done, total int, part pipeline.Part) {
			slog.Info("part synthesized", "done", done, "total", total, "path", part.Path)
		},
	}

	parts, err := runner.Run(ctx, segments)
	if err != nil {
		return err
	}

	if format == config.FormatWAV {
		paths := make([]string, len(parts))
		for i, p := range parts {
			paths[i] = p.Path
		}
		// Mismatched parts would merge into a broken file; leave them on
		// disk for inspection, exactly like a merge failure.
		if err := audio.VerifyWAVParts(paths); err != nil {
			return err
		}
	}

	merger := &merge.Merger{FFmpegPath: cfg.FFmpeg.Path}
	if err := merger.Merge(ctx, parts, outPath); err != nil {
		// Unmerged parts stay on disk when the merge stage fails.
		return err
	}
	merger.CleanupParts(parts)

	slog.Info("narration complete", "output", outPath, "parts", len(parts))
	return nil
}
