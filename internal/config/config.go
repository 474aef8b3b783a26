// Package config loads the scenario configuration: a JSON file with a
// "scenario" object, with environment variables taking precedence for the
// knobs that recorded-scenario scripts override per run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

// Environment overrides.
const (
	EnvConfigPath  = "V2X_CONFIG_PATH"
	EnvScheme      = "V2X_SIGNATURE_SCHEME"
	EnvFragment    = "V2X_FRAGMENT_BYTES"
	EnvCompression = "V2X_COMPRESSION"
	EnvLossRate    = "V2X_PACKET_LOSS_RATE"
	EnvSeed        = "V2X_SEED"
	EnvTestPort    = "V2X_TEST_PORT"
	EnvMetricsFile = "V2X_METRICS_FILE"
	EnvMetricsRun  = "V2X_METRICS_RUN"
	EnvMetricsNote = "V2X_METRICS_NOTE"
)

// PQ holds the post-quantum path knobs.
type PQ struct {
	// FragmentBytes is the preferred signature chunk size; 0 means capacity.
	FragmentBytes int `json:"fragmentBytes"`

	// Compression is the signature transform tag ("none" or "zstd").
	Compression string `json:"compression"`
}

// Scenario is the run configuration.
type Scenario struct {
	NumVehicles     int     `json:"numVehicles"`
	NumMessages     int     `json:"numMessages"`
	SignatureScheme string  `json:"signatureScheme"`
	Port            int     `json:"port"`
	DropProbability float64 `json:"dropProbability"`
	Seed            uint64  `json:"seed"`
	TraceDir        string  `json:"traceDir"`
	KeyRoot         string  `json:"keyRoot"`
	MLDSA           PQ      `json:"mldsa"`
}

// Config is the top-level configuration file shape.
type Config struct {
	Scenario Scenario `json:"scenario"`
}

// Default returns the configuration used when a field is absent.
func Default() *Config {
	return &Config{Scenario: Scenario{
		NumVehicles:     1,
		NumMessages:     10,
		SignatureScheme: "ecdsa",
		Port:            constants.DefaultReceiverPort,
		TraceDir:        "trace_files",
		KeyRoot:         ".",
		MLDSA: PQ{
			FragmentBytes: constants.DefaultPQFragmentBytes,
			Compression:   "none",
		},
	}}
}

// Load reads the JSON file at path over the defaults, applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, verrors.NewOpError("config.Load", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, verrors.NewOpError("config.Load", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment overrides on the loaded configuration.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvScheme); v != "" {
		c.Scenario.SignatureScheme = v
	}
	if v := os.Getenv(EnvFragment); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scenario.MLDSA.FragmentBytes = n
		}
	}
	if v := os.Getenv(EnvCompression); v != "" {
		c.Scenario.MLDSA.Compression = v
	}
	if v := os.Getenv(EnvLossRate); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			c.Scenario.DropProbability = clamp01(rate)
		}
	}
	if v := os.Getenv(EnvSeed); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Scenario.Seed = seed
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	s := &c.Scenario
	if s.NumVehicles < 1 || s.NumVehicles > 255 {
		return verrors.NewOpError("config.Validate",
			fmt.Errorf("%w: numVehicles %d outside [1, 255]", verrors.ErrInvalidConfig, s.NumVehicles))
	}
	if s.NumMessages < 1 {
		return verrors.NewOpError("config.Validate",
			fmt.Errorf("%w: numMessages %d", verrors.ErrInvalidConfig, s.NumMessages))
	}
	if s.Port < 1 || s.Port > 65535 {
		return verrors.NewOpError("config.Validate",
			fmt.Errorf("%w: port %d", verrors.ErrInvalidConfig, s.Port))
	}
	if s.DropProbability < 0 || s.DropProbability > 1 {
		return verrors.NewOpError("config.Validate",
			fmt.Errorf("%w: dropProbability %g outside [0, 1]", verrors.ErrInvalidConfig, s.DropProbability))
	}
	if _, err := ParseScheme(s.SignatureScheme); err != nil {
		return err
	}
	return nil
}

// Scheme returns the parsed scheme selector. Call Validate first.
func (c *Config) Scheme() constants.Scheme {
	scheme, _ := ParseScheme(c.Scenario.SignatureScheme)
	return scheme
}

// ParseScheme parses a scheme name. "falcon" is accepted as an alias for the
// post-quantum path so recorded scenario files keep working.
func ParseScheme(name string) (constants.Scheme, error) {
	switch strings.ToLower(name) {
	case "", "ecdsa":
		return constants.SchemeECDSA, nil
	case "mldsa", "ml-dsa", "falcon":
		return constants.SchemeMLDSA, nil
	default:
		return 0, verrors.NewOpError("config.ParseScheme",
			fmt.Errorf("%w: unknown scheme %q", verrors.ErrInvalidConfig, name))
	}
}

// TestPort returns the port to use under --test, honoring V2X_TEST_PORT.
func TestPort() int {
	if v := os.Getenv(EnvTestPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			return port
		}
	}
	return constants.DefaultTestPort
}
