package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default run limits. The invocation/run timeouts and the loop-detection
// window mirror proven swarm defaults: a minutes-scale step budget with the
// whole run bounded at roughly fifteen minutes.
const (
	DefaultInvocationTimeout = 5 * time.Minute
	DefaultRunTimeout        = 15 * time.Minute
	DefaultMaxHandoffs       = 20
	DefaultLoopWindow        = 8
	DefaultMinUniqueWorkers  = 3
	DefaultEventBuffer       = 256
)

// RunConfig carries the run-level knobs supplied at start. Zero values are
// filled with defaults; EntryWorker is the only mandatory field.
type RunConfig struct {
	// EntryWorker names the worker that receives control first.
	EntryWorker string `yaml:"entry_worker"`
	// InvocationTimeout bounds a single worker invocation.
	InvocationTimeout time.Duration `yaml:"invocation_timeout"`
	// RunTimeout bounds the whole run, independent of per-invocation
	// deadlines.
	RunTimeout time.Duration `yaml:"run_timeout"`
	// MaxHandoffs is the iteration budget; exceeding it aborts the run.
	MaxHandoffs int `yaml:"max_handoffs"`
	// LoopWindow is the trailing ledger window W inspected by the loop
	// detector.
	LoopWindow int `yaml:"loop_window"`
	// MinUniqueWorkers is the minimum distinct targets U required within a
	// full window for the run to be considered productive.
	MinUniqueWorkers int `yaml:"min_unique_workers"`
	// EventBuffer bounds the observer stream; overflow drops the oldest
	// unconsumed events behind an EventsDropped marker.
	EventBuffer int `yaml:"event_buffer"`
}

// UnmarshalYAML decodes the config, accepting Go duration strings ("30s",
// "5m") for the timeout fields.
func (c *RunConfig) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		EntryWorker       string `yaml:"entry_worker"`
		InvocationTimeout string `yaml:"invocation_timeout"`
		RunTimeout        string `yaml:"run_timeout"`
		MaxHandoffs       int    `yaml:"max_handoffs"`
		LoopWindow        int    `yaml:"loop_window"`
		MinUniqueWorkers  int    `yaml:"min_unique_workers"`
		EventBuffer       int    `yaml:"event_buffer"`
	}
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}
	c.EntryWorker = r.EntryWorker
	c.MaxHandoffs = r.MaxHandoffs
	c.LoopWindow = r.LoopWindow
	c.MinUniqueWorkers = r.MinUniqueWorkers
	c.EventBuffer = r.EventBuffer
	if r.InvocationTimeout != "" {
		d, err := time.ParseDuration(r.InvocationTimeout)
		if err != nil {
			return fmt.Errorf("invocation_timeout: %w", err)
		}
		c.InvocationTimeout = d
	}
	if r.RunTimeout != "" {
		d, err := time.ParseDuration(r.RunTimeout)
		if err != nil {
			return fmt.Errorf("run_timeout: %w", err)
		}
		c.RunTimeout = d
	}
	return nil
}

// DefaultRunConfig returns a config with all defaults and the given entry
// worker.
func DefaultRunConfig(entryWorker string) RunConfig {
	cfg := RunConfig{EntryWorker: entryWorker}
	cfg.fillDefaults()
	return cfg
}

func (c *RunConfig) fillDefaults() {
	if c.InvocationTimeout <= 0 {
		c.InvocationTimeout = DefaultInvocationTimeout
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = DefaultRunTimeout
	}
	if c.MaxHandoffs <= 0 {
		c.MaxHandoffs = DefaultMaxHandoffs
	}
	if c.LoopWindow <= 0 {
		c.LoopWindow = DefaultLoopWindow
	}
	if c.MinUniqueWorkers <= 0 {
		c.MinUniqueWorkers = DefaultMinUniqueWorkers
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
}

// Validate checks internal consistency after defaults are applied.
func (c *RunConfig) Validate() error {
	if c.EntryWorker == "" {
		return fmt.Errorf("entry_worker is required")
	}
	if c.MinUniqueWorkers > c.LoopWindow {
		return fmt.Errorf("min_unique_workers (%d) must not exceed loop_window (%d)", c.MinUniqueWorkers, c.LoopWindow)
	}
	return nil
}

// ParseRunConfig decodes YAML bytes into a RunConfig, filling defaults and
// validating.
func ParseRunConfig(data []byte) (RunConfig, error) {
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("parse run config: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// LoadRunConfig reads and parses a YAML run configuration file.
func LoadRunConfig(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("read run config: %w", err)
	}
	return ParseRunConfig(data)
}
