package framepipe

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Design  DesignConfig  `yaml:"design"`
	Step    StepConfig    `yaml:"step"`
	Logging LoggingConfig `yaml:"logging"`
	Feed    FeedConfig    `yaml:"feed"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type DesignConfig struct {
	Width          float64 `yaml:"width"`
	Height         float64 `yaml:"height"`
	PreserveAspect bool    `yaml:"preserve_aspect"`
}

type StepConfig struct {
	RateHz           float64 `yaml:"rate_hz"`
	MaxStepsPerFrame int     `yaml:"max_steps_per_frame"`
}

type LoggingConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

// FeedConfig points the snapshot producer at a remote websocket feed (URL)
// or serves the local simulation on Listen.
type FeedConfig struct {
	URL    string  `yaml:"url"`
	Listen string  `yaml:"listen"`
	RateHz float64 `yaml:"rate_hz"`
}

func DefaultConfig() Config {
	return Config{
		Window:  WindowConfig{Width: 1280, Height: 720, Title: "framepipe"},
		Design:  DesignConfig{Width: 640, Height: 360, PreserveAspect: true},
		Step:    StepConfig{RateHz: 60, MaxStepsPerFrame: 5},
		Logging: LoggingConfig{Prefix: "framepipe"},
		Feed:    FeedConfig{Listen: ":8089", RateHz: 20},
	}
}

// LoadConfig reads a YAML file over the defaults, then applies environment
// overrides. An empty path loads defaults plus environment only.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("FRAMEPIPE_DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: FRAMEPIPE_DEBUG=%q: %v", ErrInvalidConfig, v, err)
		}
		c.Logging.Debug = debug
	}
	if v, ok := lookup("FRAMEPIPE_FEED_URL"); ok {
		c.Feed.URL = v
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Design.Width <= 0 || c.Design.Height <= 0 {
		errs = append(errs, fmt.Errorf("design size %vx%v must be positive", c.Design.Width, c.Design.Height))
	}
	if c.Step.RateHz <= 0 {
		errs = append(errs, fmt.Errorf("step.rate_hz %v must be positive", c.Step.RateHz))
	}
	if c.Step.MaxStepsPerFrame <= 0 {
		errs = append(errs, fmt.Errorf("step.max_steps_per_frame %d must be positive", c.Step.MaxStepsPerFrame))
	}
	if c.Feed.RateHz <= 0 {
		errs = append(errs, fmt.Errorf("feed.rate_hz %v must be positive", c.Feed.RateHz))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Marshal renders the config as YAML, e.g. for `config` dumps.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
