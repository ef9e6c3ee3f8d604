// Package config loads service configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jaskrrish/Go-VQA/internal/vqa/preprocess"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the full service configuration
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Backend    BackendConfig    `json:"backend" yaml:"backend"`
	Estimation EstimationConfig `json:"estimation" yaml:"estimation"`
	Jobs       JobsConfig       `json:"jobs" yaml:"jobs"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `json:"port" yaml:"port" validate:"required,numeric"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}

// BackendConfig selects the quantum backend
type BackendConfig struct {
	Type         string       `json:"type" yaml:"type" validate:"oneof=simulator qiskit"`
	Seed         int64        `json:"seed" yaml:"seed"`
	ReadoutError float64      `json:"readout_error" yaml:"readout_error" validate:"min=0,max=1"`
	Qiskit       QiskitConfig `json:"qiskit" yaml:"qiskit"`
}

// QiskitConfig holds IBM Quantum settings; only read when the backend type is qiskit
type QiskitConfig struct {
	APIKey            string        `json:"-" yaml:"api_key"`
	BaseURL           string        `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	BackendName       string        `json:"backend_name" yaml:"backend_name"`
	PollInterval      time.Duration `json:"poll_interval" yaml:"poll_interval" validate:"min=0"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second" validate:"min=0"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`
}

// EstimationConfig is the default preprocessing for requests that do not choose their own
type EstimationConfig struct {
	Grouping         string    `json:"grouping" yaml:"grouping" validate:"oneof=none individual greedy"`
	SortTerms        bool      `json:"sort_terms" yaml:"sort_terms"`
	ContextSelection bool      `json:"context_selection" yaml:"context_selection"`
	ShotAllocation   string    `json:"shot_allocation" yaml:"shot_allocation" validate:"oneof=none uniform proportional"`
	Shots            int       `json:"shots" yaml:"shots" validate:"min=0"`
	Priors           []float64 `json:"priors" yaml:"priors"`
}

// JobsConfig controls job retention
type JobsConfig struct {
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" validate:"gt=0"`
}

// LoggingConfig selects the log level and format
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=text json"`
}

// TracingConfig controls OpenTelemetry span export
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	ServiceName string  `json:"service_name" yaml:"service_name" validate:"required"`
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio" validate:"min=0,max=1"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			Type: "simulator",
			Qiskit: QiskitConfig{
				PollInterval: 2 * time.Second,
				Timeout:      60 * time.Second,
			},
		},
		Estimation: EstimationConfig{
			Grouping:       preprocess.GroupingNone,
			ShotAllocation: preprocess.ShotsNone,
		},
		Jobs: JobsConfig{
			CleanupInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			ServiceName: "go-vqa",
			SampleRatio: 1,
		},
	}
}

// Load merges defaults, the YAML file at path (optional) and the environment, then validates
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		if err := loadFile(path, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// loadFromEnv applies PORT and VQA_* overrides; unparsable values are ignored
func loadFromEnv(config *Config) {
	if v := os.Getenv("PORT"); v != "" {
		config.Server.Port = v
	}

	if v := os.Getenv("VQA_BACKEND"); v != "" {
		config.Backend.Type = v
	}
	if v := os.Getenv("VQA_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Backend.Seed = i
		}
	}
	if v := os.Getenv("VQA_READOUT_ERROR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Backend.ReadoutError = f
		}
	}
	if v := os.Getenv("VQA_QISKIT_API_KEY"); v != "" {
		config.Backend.Qiskit.APIKey = v
	}
	if v := os.Getenv("VQA_QISKIT_BACKEND"); v != "" {
		config.Backend.Qiskit.BackendName = v
	}
	if v := os.Getenv("VQA_QISKIT_URL"); v != "" {
		config.Backend.Qiskit.BaseURL = v
	}

	if v := os.Getenv("VQA_GROUPING"); v != "" {
		config.Estimation.Grouping = v
	}
	if v := os.Getenv("VQA_SHOT_ALLOCATION"); v != "" {
		config.Estimation.ShotAllocation = v
	}
	if v := os.Getenv("VQA_SHOTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Estimation.Shots = i
		}
	}

	if v := os.Getenv("VQA_LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("VQA_LOG_FORMAT"); v != "" {
		config.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("VQA_TRACING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Tracing.Enabled = b
		}
	}
}

// Validate checks field constraints and the rules that span fields
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Backend.Type == "qiskit" && c.Backend.Qiskit.APIKey == "" {
		return errors.New("backend.qiskit.api_key is required for the qiskit backend")
	}
	if _, err := preprocess.Pipeline(c.Estimation.Options()); err != nil {
		return fmt.Errorf("estimation: %w", err)
	}
	return nil
}

// Options converts the estimation defaults into pipeline options
func (e EstimationConfig) Options() preprocess.Options {
	return preprocess.Options{
		Grouping:         e.Grouping,
		SortTerms:        e.SortTerms,
		ContextSelection: e.ContextSelection,
		ShotAllocation:   e.ShotAllocation,
		Shots:            e.Shots,
		Priors:           e.Priors,
	}
}

// NewLogger builds the slog logger described by the logging section
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
