package cortex

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/voqse/debut-plugin-cortex/pkg/quantize"
	"github.com/voqse/debut-plugin-cortex/pkg/window"
)

const (
	defaultSegmentsCount = 11
	defaultPrecision     = 6
	defaultInputSize     = 25
	defaultOutputSize    = 3
)

// Config parameterizes one pipeline instance. The ratio convention and
// window assembly mode are fixed for the pipeline's lifetime.
type Config struct {
	// Streams lists the tracked feature streams in layout order.
	Streams []string `yaml:"streams"`
	// Primary names the stream forecasts are produced for. Defaults to the
	// first stream.
	Primary       string `yaml:"primary"`
	SegmentsCount int    `yaml:"segments_count"`
	Precision     int    `yaml:"precision"`
	InputSize     int    `yaml:"input_size"`
	OutputSize    int    `yaml:"output_size"`

	RatioRaw string             `yaml:"ratio"`
	Ratio    quantize.RatioKind `yaml:"-"`
	ModeRaw  string             `yaml:"mode"`
	Mode     window.Mode        `yaml:"-"`
}

// LoadConfig reads pipeline configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pipeline config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	for i, name := range c.Streams {
		c.Streams[i] = strings.TrimSpace(os.ExpandEnv(name))
	}
	c.Primary = strings.TrimSpace(os.ExpandEnv(c.Primary))
	if c.Primary == "" && len(c.Streams) > 0 {
		c.Primary = c.Streams[0]
	}
	if c.SegmentsCount == 0 {
		c.SegmentsCount = defaultSegmentsCount
	}
	if c.Precision == 0 {
		c.Precision = defaultPrecision
	}
	if c.InputSize == 0 {
		c.InputSize = defaultInputSize
	}
	if c.OutputSize == 0 {
		c.OutputSize = defaultOutputSize
	}

	if c.RatioRaw != "" || c.Ratio == "" {
		ratio, err := quantize.ParseRatioKind(c.RatioRaw)
		if err != nil {
			return fmt.Errorf("pipeline config: %w", err)
		}
		c.Ratio = ratio
	}
	if c.ModeRaw != "" || c.Mode == "" {
		mode, err := window.ParseMode(c.ModeRaw)
		if err != nil {
			return fmt.Errorf("pipeline config: %w", err)
		}
		c.Mode = mode
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Streams) == 0 {
		return fmt.Errorf("pipeline config: at least one stream is required")
	}
	for _, name := range c.Streams {
		if name == "" {
			return fmt.Errorf("pipeline config: stream name cannot be empty")
		}
	}
	if c.SegmentsCount < 2 {
		return fmt.Errorf("pipeline config: segments_count must be >= 2, got %d", c.SegmentsCount)
	}
	if c.Precision < 1 {
		return fmt.Errorf("pipeline config: precision must be >= 1, got %d", c.Precision)
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("pipeline config: input_size must be positive")
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("pipeline config: output_size must be positive")
	}
	found := false
	for _, name := range c.Streams {
		if name == c.Primary {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("pipeline config: primary stream %q is not tracked", c.Primary)
	}
	return nil
}
