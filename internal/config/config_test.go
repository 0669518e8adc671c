package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}

	if cfg.Paths.MaxInputBytes != 100*1024*1024 {
		t.Errorf("Paths.MaxInputBytes = %d; want 100MiB", cfg.Paths.MaxInputBytes)
	}

	if cfg.Paths.AllowedRoot != "" {
		t.Errorf("Paths.AllowedRoot = %q; want empty", cfg.Paths.AllowedRoot)
	}

	if cfg.TTS.Model != "gpt-4o-mini-tts" {
		t.Errorf("TTS.Model = %q; want %q", cfg.TTS.Model, "gpt-4o-mini-tts")
	}

	if cfg.TTS.Voice != "alloy" {
		t.Errorf("TTS.Voice = %q; want %q", cfg.TTS.Voice, "alloy")
	}

	if cfg.TTS.ResponseFormat != FormatMP3 {
		t.Errorf("TTS.ResponseFormat = %q; want %q", cfg.TTS.ResponseFormat, FormatMP3)
	}

	if cfg.Pipeline.TokenBudget != 1600 {
		t.Errorf("Pipeline.TokenBudget = %d; want 1600", cfg.Pipeline.TokenBudget)
	}

	if cfg.Pipeline.MaxRetries != 3 {
		t.Errorf("Pipeline.MaxRetries = %d; want 3", cfg.Pipeline.MaxRetries)
	}

	if cfg.Pipeline.RetryDelaySeconds != 2 {
		t.Errorf("Pipeline.RetryDelaySeconds = %d; want 2", cfg.Pipeline.RetryDelaySeconds)
	}

	if cfg.Pipeline.Concurrency != 4 {
		t.Errorf("Pipeline.Concurrency = %d; want 4", cfg.Pipeline.Concurrency)
	}

	if cfg.FFmpeg.Path != "ffmpeg" {
		t.Errorf("FFmpeg.Path = %q; want %q", cfg.FFmpeg.Path, "ffmpeg")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig does not validate: %v", err)
	}
}

// --- Load ---

func TestLoad_DefaultsOnly(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.Model != "gpt-4o-mini-tts" {
		t.Errorf("TTS.Model = %q", cfg.TTS.Model)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	chdir(t, t.TempDir())

	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)
	if err := binder.fs.Parse([]string{"--tts-voice", "nova", "--pipeline-concurrency", "2"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.Voice != "nova" {
		t.Errorf("TTS.Voice = %q; want %q", cfg.TTS.Voice, "nova")
	}
	if cfg.Pipeline.Concurrency != 2 {
		t.Errorf("Pipeline.Concurrency = %d; want 2", cfg.Pipeline.Concurrency)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NARRATE_TTS_MODEL", "tts-1-hd")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.Model != "tts-1-hd" {
		t.Errorf("TTS.Model = %q; want env override", cfg.TTS.Model)
	}
}

func TestLoad_APIKeyFromOpenAIEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.APIKey != "sk-test" {
		t.Errorf("TTS.APIKey = %q; want value from OPENAI_API_KEY", cfg.TTS.APIKey)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("OPENAI_API_KEY", "") // restore the ambient value after gotenv writes it

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.APIKey != "sk-dotenv" {
		t.Errorf("TTS.APIKey = %q; want value from .env", cfg.TTS.APIKey)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfgFile := filepath.Join(dir, "custom.yaml")
	data := "tts:\n  voice: onyx\npipeline:\n  token_budget: 500\n"
	if err := os.WriteFile(cfgFile, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{ConfigFile: cfgFile, Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.Voice != "onyx" {
		t.Errorf("TTS.Voice = %q; want %q", cfg.TTS.Voice, "onyx")
	}
	if cfg.Pipeline.TokenBudget != 500 {
		t.Errorf("Pipeline.TokenBudget = %d; want 500", cfg.Pipeline.TokenBudget)
	}
}

// --- Validate ---

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.TTS.ResponseFormat = "pcm" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"speed too low", func(c *Config) { c.TTS.Speed = 0.1 }},
		{"speed too high", func(c *Config) { c.TTS.Speed = 5 }},
		{"zero token budget", func(c *Config) { c.Pipeline.TokenBudget = 0 }},
		{"zero retries", func(c *Config) { c.Pipeline.MaxRetries = 0 }},
		{"negative retry delay", func(c *Config) { c.Pipeline.RetryDelaySeconds = -1 }},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// --- NormalizeFormat / Extension / ParseLogLevel ---

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"mp3", FormatMP3, false},
		{" WAV ", FormatWAV, false},
		{"", FormatMP3, false},
		{"opus", FormatOpus, false},
		{"pcm", "", true},
		{"ogg", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeFormat(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeFormat(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeFormat(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestExtension(t *testing.T) {
	if got := Extension(FormatOpus); got != "ogg" {
		t.Errorf("Extension(opus) = %q, want ogg", got)
	}
	for _, f := range []string{FormatMP3, FormatAAC, FormatFLAC, FormatWAV} {
		if got := Extension(f); got != f {
			t.Errorf("Extension(%s) = %q", f, got)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// chdir changes the working directory for the duration of the test,
// restoring the previous directory on cleanup (stand-in for t.Chdir,
// which requires Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Chdir back: %v", err)
		}
	})
}
