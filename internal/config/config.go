// Package config reads the voicert application settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPath    = "config.json"
	DefaultEnvFile = ".env"
)

var ErrMissingKey = errors.New("missing openai_key")

type Config struct {
	OpenAIKey          string  `json:"openai_key"`
	OpenAIOrg          string  `json:"openai_org,omitempty"`
	SilenceThreshold   float64 `json:"silence_threshold"`
	SilenceDuration    float64 `json:"silence_duration"`
	Model              string  `json:"model,omitempty"`
	TranscriptionModel string  `json:"transcription_model,omitempty"`
	Voice              string  `json:"voice,omitempty"`
	SystemPrompt       string  `json:"system_prompt,omitempty"`
	CalibrationSeconds float64 `json:"calibration_seconds,omitempty"`
	MaxRecordSeconds   float64 `json:"max_record_seconds,omitempty"`
	TurnTimeoutSeconds float64 `json:"turn_timeout_seconds,omitempty"`
	RecordingDir       string  `json:"recording_dir,omitempty"`
}

func Default() Config {
	return Config{
		SilenceThreshold:   75,
		SilenceDuration:    1.5,
		TranscriptionModel: "whisper-1",
		Voice:              "coral",
		SystemPrompt:       "You are a helpful assistant.",
		CalibrationSeconds: 5,
		MaxRecordSeconds:   60,
		TurnTimeoutSeconds: 90,
		RecordingDir:       os.TempDir(),
	}
}

// Load builds the configuration from defaults, the JSON file at path and the
// environment, in that order. Env files are loaded into the environment first
// and never override variables that are already set. Missing files are
// skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(dst *string, vars ...string) {
		for _, v := range vars {
			if val := os.Getenv(v); val != "" {
				*dst = val
				return
			}
		}
	}
	num := func(dst *float64, v string) error {
		val := os.Getenv(v)
		if val == "" {
			return nil
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", v, err)
		}
		*dst = f
		return nil
	}

	str(&c.OpenAIKey, "VOICERT_OPENAI_KEY", "OPENAI_KEY", "OPENAI_API_KEY")
	str(&c.OpenAIOrg, "VOICERT_OPENAI_ORG", "OPENAI_ORG")
	str(&c.Model, "VOICERT_MODEL")
	str(&c.TranscriptionModel, "VOICERT_TRANSCRIPTION_MODEL")
	str(&c.Voice, "VOICERT_VOICE")
	str(&c.SystemPrompt, "VOICERT_SYSTEM_PROMPT")
	str(&c.RecordingDir, "VOICERT_RECORDING_DIR")

	return errors.Join(
		num(&c.SilenceThreshold, "VOICERT_SILENCE_THRESHOLD"),
		num(&c.SilenceDuration, "VOICERT_SILENCE_DURATION"),
		num(&c.CalibrationSeconds, "VOICERT_CALIBRATION_SECONDS"),
		num(&c.MaxRecordSeconds, "VOICERT_MAX_RECORD_SECONDS"),
		num(&c.TurnTimeoutSeconds, "VOICERT_TURN_TIMEOUT_SECONDS"),
	)
}

func (c *Config) Validate() error {
	var errs []error
	if c.SilenceThreshold < 0 {
		errs = append(errs, errors.New("silence_threshold must not be negative"))
	}
	if c.SilenceDuration <= 0 {
		errs = append(errs, errors.New("silence_duration must be positive"))
	}
	for name, v := range map[string]float64{
		"calibration_seconds":  c.CalibrationSeconds,
		"max_record_seconds":   c.MaxRecordSeconds,
		"turn_timeout_seconds": c.TurnTimeoutSeconds,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// RequireKey reports ErrMissingKey when no API key is configured.
func (c *Config) RequireKey() error {
	if c.OpenAIKey == "" {
		return ErrMissingKey
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Config) SilenceWindow() time.Duration       { return seconds(c.SilenceDuration) }
func (c *Config) CalibrationDuration() time.Duration { return seconds(c.CalibrationSeconds) }
func (c *Config) MaxRecordDuration() time.Duration   { return seconds(c.MaxRecordSeconds) }
func (c *Config) TurnTimeout() time.Duration         { return seconds(c.TurnTimeoutSeconds) }
