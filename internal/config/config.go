package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Paths    PathsConfig    `mapstructure:"paths"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg"`
}

type PathsConfig struct {
	// AllowedRoot restricts input files to a directory tree. Empty disables
	// the restriction.
	AllowedRoot   string `mapstructure:"allowed_root"`
	MaxInputBytes int64  `mapstructure:"max_input_bytes"`
}

type TTSConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	APIBase        string  `mapstructure:"api_base"`
	Model          string  `mapstructure:"model"`
	Voice          string  `mapstructure:"voice"`
	Speed          float64 `mapstructure:"speed"`
	ResponseFormat string  `mapstructure:"response_format"`
	Instructions   string  `mapstructure:"instructions"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

type PipelineConfig struct {
	TokenBudget       int `mapstructure:"token_budget"`
	MaxRetries        int `mapstructure:"max_retries"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
	Concurrency       int `mapstructure:"concurrency"`
}

type FFmpegConfig struct {
	Path string `mapstructure:"path"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Paths: PathsConfig{
			AllowedRoot:   "",
			MaxInputBytes: 100 * 1024 * 1024,
		},
		TTS: TTSConfig{
			APIKey:         "",
			APIBase:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini-tts",
			Voice:          "alloy",
			Speed:          0,
			ResponseFormat: FormatMP3,
			Instructions:   "",
			TimeoutSeconds: 120,
		},
		Pipeline: PipelineConfig{
			TokenBudget:       1600,
			MaxRetries:        3,
			RetryDelaySeconds: 2,
			Concurrency:       4,
		},
		FFmpeg: FFmpegConfig{
			Path: "ffmpeg",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("paths-allowed-root", defaults.Paths.AllowedRoot, "Restrict input files to this directory (empty = no restriction)")
	fs.Int64("paths-max-input-bytes", defaults.Paths.MaxInputBytes, "Maximum input file size in bytes")
	fs.String("tts-api-base", defaults.TTS.APIBase, "Speech API base URL")
	fs.String("tts-model", defaults.TTS.Model, "Speech model")
	fs.String("tts-voice", defaults.TTS.Voice, "Voice name")
	fs.Float64("tts-speed", defaults.TTS.Speed, "Playback speed multiplier (0 = API default)")
	fs.String("tts-response-format", defaults.TTS.ResponseFormat, "Audio format (mp3|opus|aac|flac|wav)")
	fs.String("tts-instructions", defaults.TTS.Instructions, "Delivery instructions passed to the speech model")
	fs.Int("tts-timeout-seconds", defaults.TTS.TimeoutSeconds, "Per-request timeout in seconds")
	fs.Int("pipeline-token-budget", defaults.Pipeline.TokenBudget, "Maximum tokens per synthesized segment")
	fs.Int("pipeline-max-retries", defaults.Pipeline.MaxRetries, "Total synthesis attempts per segment")
	fs.Int("pipeline-retry-delay-seconds", defaults.Pipeline.RetryDelaySeconds, "Base retry delay in seconds (linear backoff)")
	fs.Int("pipeline-concurrency", defaults.Pipeline.Concurrency, "Maximum segments synthesized concurrently")
	fs.String("ffmpeg-path", defaults.FFmpeg.Path, "Path to the ffmpeg executable")
}

func Load(opts LoadOptions) (Config, error) {
	// The original tool reads its API key from a .env file; keep that
	// working. Missing .env is fine.
	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("NARRATE")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("tts.api_key", "NARRATE_TTS_API_KEY", "OPENAI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind api key env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("narrate")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with. The loaded
// config is treated as immutable afterwards.
func (c Config) Validate() error {
	if _, err := NormalizeFormat(c.TTS.ResponseFormat); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.TTS.Speed != 0 && (c.TTS.Speed < 0.25 || c.TTS.Speed > 4.0) {
		return fmt.Errorf("invalid tts.speed %v (want 0 or 0.25..4.0)", c.TTS.Speed)
	}
	if c.Pipeline.TokenBudget < 1 {
		return fmt.Errorf("invalid pipeline.token_budget %d (want >= 1)", c.Pipeline.TokenBudget)
	}
	if c.Pipeline.MaxRetries < 1 {
		return fmt.Errorf("invalid pipeline.max_retries %d (want >= 1)", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.RetryDelaySeconds < 0 {
		return fmt.Errorf("invalid pipeline.retry_delay_seconds %d (want >= 0)", c.Pipeline.RetryDelaySeconds)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("invalid pipeline.concurrency %d (want >= 1)", c.Pipeline.Concurrency)
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("paths.allowed_root", c.Paths.AllowedRoot)
	v.SetDefault("paths.max_input_bytes", c.Paths.MaxInputBytes)
	v.SetDefault("tts.api_key", c.TTS.APIKey)
	v.SetDefault("tts.api_base", c.TTS.APIBase)
	v.SetDefault("tts.model", c.TTS.Model)
	v.SetDefault("tts.voice", c.TTS.Voice)
	v.SetDefault("tts.speed", c.TTS.Speed)
	v.SetDefault("tts.response_format", c.TTS.ResponseFormat)
	v.SetDefault("tts.instructions", c.TTS.Instructions)
	v.SetDefault("tts.timeout_seconds", c.TTS.TimeoutSeconds)
	v.SetDefault("pipeline.token_budget", c.Pipeline.TokenBudget)
	v.SetDefault("pipeline.max_retries", c.Pipeline.MaxRetries)
	v.SetDefault("pipeline.retry_delay_seconds", c.Pipeline.RetryDelaySeconds)
	v.SetDefault("pipeline.concurrency", c.Pipeline.Concurrency)
	v.SetDefault("ffmpeg.path", c.FFmpeg.Path)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("paths.allowed_root", "paths-allowed-root")
	v.RegisterAlias("paths.max_input_bytes", "paths-max-input-bytes")
	v.RegisterAlias("tts.api_base", "tts-api-base")
	v.RegisterAlias("tts.model", "tts-model")
	v.RegisterAlias("tts.voice", "tts-voice")
	v.RegisterAlias("tts.speed", "tts-speed")
	v.RegisterAlias("tts.response_format", "tts-response-format")
	v.RegisterAlias("tts.instructions", "tts-instructions")
	v.RegisterAlias("tts.timeout_seconds", "tts-timeout-seconds")
	v.RegisterAlias("pipeline.token_budget", "pipeline-token-budget")
	v.RegisterAlias("pipeline.max_retries", "pipeline-max-retries")
	v.RegisterAlias("pipeline.retry_delay_seconds", "pipeline-retry-delay-seconds")
	v.RegisterAlias("pipeline.concurrency", "pipeline-concurrency")
	v.RegisterAlias("ffmpeg.path", "ffmpeg-path")
}
