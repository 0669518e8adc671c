package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Response formats the speech API can return. All of them support
// stream-copy concatenation; raw PCM does not and is deliberately absent.
const (
	FormatMP3  = "mp3"
	FormatOpus = "opus"
	FormatAAC  = "aac"
	FormatFLAC = "flac"
	FormatWAV  = "wav"
)

func NormalizeFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	if format == "" {
		format = FormatMP3
	}
	switch format {
	case FormatMP3, FormatOpus, FormatAAC, FormatFLAC, FormatWAV:
		return format, nil
	default:
		return "", fmt.Errorf(
			"invalid response format %q (expected %s|%s|%s|%s|%s)",
			raw,
			FormatMP3,
			FormatOpus,
			FormatAAC,
			FormatFLAC,
			FormatWAV,
		)
	}
}

// Extension returns the file extension used for part and output files of a
// response format. Opus audio arrives in an Ogg container.
func Extension(format string) string {
	if format == FormatOpus {
		return "ogg"
	}
	return format
}

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}
