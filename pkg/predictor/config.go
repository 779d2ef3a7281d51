package predictor

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	defaultFewShot    = 8
	defaultLogLevel   = "info"

	envAPIKey  = "CORTEX_PREDICTOR_API_KEY"
	envBaseURL = "CORTEX_PREDICTOR_BASE_URL"
	envModel   = "CORTEX_PREDICTOR_MODEL"
	envTimeout = "CORTEX_PREDICTOR_TIMEOUT"
)

// Config selects and parameterizes a predictor backend. Fields past Type and
// OutputSize only apply to backends that use them.
type Config struct {
	Type       string `yaml:"type"`
	OutputSize int    `yaml:"output_size"`

	// Remote (llm) backend settings.
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"-"`
	MaxRetries int           `yaml:"max_retries"`
	LogLevel   string        `yaml:"log_level"`
	// FewShot caps how many training examples are carried as in-context
	// demonstrations.
	FewShot int `yaml:"few_shot"`

	timeoutRaw string
}

// LoadConfig reads predictor configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open predictor config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var raw struct {
		Type       string `yaml:"type"`
		OutputSize int    `yaml:"output_size"`
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		Model      string `yaml:"model"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"max_retries"`
		LogLevel   string `yaml:"log_level"`
		FewShot    int    `yaml:"few_shot"`
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read predictor config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal predictor config: %w", err)
	}

	cfg := &Config{
		Type:       raw.Type,
		OutputSize: raw.OutputSize,
		BaseURL:    raw.BaseURL,
		APIKey:     raw.APIKey,
		Model:      raw.Model,
		MaxRetries: raw.MaxRetries,
		LogLevel:   raw.LogLevel,
		FewShot:    raw.FewShot,
		timeoutRaw: raw.Timeout,
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.parseTimeout(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Type = strings.TrimSpace(os.ExpandEnv(c.Type))
	c.BaseURL = strings.TrimSpace(os.ExpandEnv(c.BaseURL))
	c.APIKey = strings.TrimSpace(os.ExpandEnv(c.APIKey))
	c.Model = strings.TrimSpace(os.ExpandEnv(c.Model))
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.FewShot <= 0 {
		c.FewShot = defaultFewShot
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaultLogLevel
	}
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(envAPIKey)); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(envBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envModel)); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(envTimeout)); v != "" {
		c.timeoutRaw = v
	}
}

func (c *Config) parseTimeout() error {
	if strings.TrimSpace(c.timeoutRaw) == "" {
		c.Timeout = defaultTimeout
		return nil
	}
	if secs, err := strconv.Atoi(c.timeoutRaw); err == nil {
		if secs <= 0 {
			return fmt.Errorf("predictor config: timeout must be positive, got %d", secs)
		}
		c.Timeout = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(c.timeoutRaw)
	if err != nil {
		return fmt.Errorf("predictor config: invalid timeout %q: %w", c.timeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("predictor config: timeout must be positive, got %s", d)
	}
	c.Timeout = d
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("predictor config: type is required")
	}
	if _, ok := lookupBackend(c.Type); !ok {
		return fmt.Errorf("predictor config: unsupported type %q", c.Type)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("predictor config: output_size must be positive")
	}
	return nil
}

// Build instantiates the configured backend.
func (c *Config) Build() (Predictor, error) {
	builder, ok := lookupBackend(c.Type)
	if !ok {
		return nil, fmt.Errorf("predictor: unsupported type %q", c.Type)
	}
	p, err := builder(c)
	if err != nil {
		return nil, fmt.Errorf("predictor %s: %w", c.Type, err)
	}
	return p, nil
}
