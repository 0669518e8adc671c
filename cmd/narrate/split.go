package main

import (
	"fmt"
	"io"

	textpkg "github.com/example/go-narrate/internal/text"
	"github.com/example/go-narrate/internal/tokenizer"
	"github.com/example/go-narrate/internal/validate"
	"github.com/spf13/cobra"
)

func newSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <input.txt>",
		Short: "Preview how a text file would be segmented, without synthesizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			content, err := validate.ReadFile(args[0], validate.Options{
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
			printSegments(cmd.OutOrStdout(), segments, cfg.Pipeline.TokenBudget)
			return nil
		},
	}

	return cmd
}

func printSegments(w io.Writer, segments []textpkg.Segment, budget int) {
	totalTokens := 0
	for _, seg := range segments {
		marker := ""
		if seg.TokenCount > budget {
			marker = "  (oversized sentence)"
		}
		fmt.Fprintf(w, "%4d  %6d chars  %6d tokens  %s%s\n",
			seg.Index+1, len(seg.Text), seg.TokenCount, segmentPreview(seg.Text, 48), marker)
		totalTokens += seg.TokenCount
	}
	fmt.Fprintf(w, "\n%d segments, %d tokens total, budget %d tokens/segment\n",
		len(segments), totalTokens, budget)
}

func segmentPreview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
