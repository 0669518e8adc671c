// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    ffmpeg := testutil.RequireFFmpeg(t)
//	    ...
//	}
package testutil

import (
	"os"
	"os/exec"
	"testing"

	"github.com/example/go-narrate/internal/tokenizer"
)

// RequireFFmpeg skips the test if the ffmpeg binary is not found in PATH or
// at the path given by the NARRATE_FFMPEG_PATH environment variable, and
// returns the resolved path otherwise.
func RequireFFmpeg(tb testing.TB) string {
	tb.Helper()

	exe := os.Getenv("NARRATE_FFMPEG_PATH")
	if exe == "" {
		exe = "ffmpeg"
	}

	path, err := exec.LookPath(exe)
	if err != nil {
		tb.Skipf("ffmpeg binary not available (%q not in PATH); set NARRATE_FFMPEG_PATH to override", exe)
	}
	return path
}

// RequireAPIKey skips the test unless a synthesis API key is configured via
// NARRATE_TTS_API_KEY or OPENAI_API_KEY.
func RequireAPIKey(tb testing.TB) string {
	tb.Helper()

	for _, env := range []string{"NARRATE_TTS_API_KEY", "OPENAI_API_KEY"} {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	tb.Skip("no synthesis API key set; set NARRATE_TTS_API_KEY or OPENAI_API_KEY")
	return ""
}

// RequireEncoding skips the test when the tiktoken encoding table cannot be
// loaded, e.g. offline with an unpopulated encoding cache.
func RequireEncoding(tb testing.TB) *tokenizer.Tiktoken {
	tb.Helper()

	tok, err := tokenizer.New()
	if err != nil {
		tb.Skipf("tiktoken %s encoding not available: %v", tokenizer.EncodingName, err)
	}
	return tok
}
