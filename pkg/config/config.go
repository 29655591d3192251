package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Poll        PollConfig        `yaml:"poll"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Prompts     []PromptConfig    `yaml:"prompts"`
	Log         LogConfig         `yaml:"log"`
	Plot        PlotConfig        `yaml:"plot"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	DataBits    int           `yaml:"data_bits"`
	Parity      string        `yaml:"parity"`    // none, odd, even, mark, space
	StopBits    float64       `yaml:"stop_bits"` // 1, 1.5 or 2
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// PollConfig controls the line processing loop.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"` // Delay between two processed lines
}

// MeasurementConfig contains parameters of the capacitance measurement.
type MeasurementConfig struct {
	Factor      float64 `yaml:"factor"`       // Frequency = Factor / capacitance
	RecentLines int     `yaml:"recent_lines"` // Size of the recent line buffer
}

// PromptConfig describes an in-band question the instrument asks the operator.
type PromptConfig struct {
	Prefix     string `yaml:"prefix"`
	Label      string `yaml:"label"`
	Terminator string `yaml:"terminator"` // Appended to the operator's answer
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // Optional log file in addition to stderr
}

// PlotConfig contains the history plot window configuration.
type PlotConfig struct {
	Enabled bool    `yaml:"enabled"`
	Width   float32 `yaml:"width"`
	Height  float32 `yaml:"height"`
}

// MockConfig contains simulated meter configuration.
type MockConfig struct {
	Capacitance  float64       `yaml:"capacitance"`   // Simulated capacitance (nF)
	NoiseLevel   float64       `yaml:"noise_level"`   // Noise amplitude (nF)
	LineInterval time.Duration `yaml:"line_interval"` // Time between telemetry lines
	PromptEvery  int           `yaml:"prompt_every"`  // Ask the operator every N lines (0 = never)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "COM19", // Default for Windows, should be "/dev/ttyUSB0" on Linux
			BaudRate:    115200,
			DataBits:    8,
			Parity:      "none",
			StopBits:    2,
			ReadTimeout: time.Second,
		},
		Poll: PollConfig{
			Interval: 50 * time.Millisecond,
		},
		Measurement: MeasurementConfig{
			Factor:      136752.136752,
			RecentLines: 10,
		},
		Prompts: DefaultPrompts(),
		Log: LogConfig{
			Level: "info",
		},
		Plot: PlotConfig{
			Enabled: false,
			Width:   900,
			Height:  500,
		},
		Mock: MockConfig{
			Capacitance:  10.0,
			NoiseLevel:   0.05,
			LineInterval: 500 * time.Millisecond,
			PromptEvery:  0,
		},
	}
}

// DefaultPrompts returns the two questions the capacitance meter firmware asks.
func DefaultPrompts() []PromptConfig {
	return []PromptConfig{
		{Prefix: "Enter the Capacitance", Label: "Capacitance: ", Terminator: ""},
		{Prefix: "Enter the Error", Label: "Error: ", Terminator: "\r\n"},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Prompts are replaced, not merged, when present in the file.
	cfg.Prompts = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports values that cannot be used to open the port or run the loop.
func (c *Config) Validate() error {
	switch c.Serial.Parity {
	case "none", "odd", "even", "mark", "space":
	default:
		return fmt.Errorf("invalid serial parity %q", c.Serial.Parity)
	}
	switch c.Serial.StopBits {
	case 1, 1.5, 2:
	default:
		return fmt.Errorf("invalid serial stop bits %v", c.Serial.StopBits)
	}
	if c.Serial.DataBits < 5 || c.Serial.DataBits > 8 {
		return fmt.Errorf("invalid serial data bits %d", c.Serial.DataBits)
	}
	for i, p := range c.Prompts {
		if p.Prefix == "" {
			return fmt.Errorf("prompt %d: empty prefix", i)
		}
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.DataBits == 0 {
		c.Serial.DataBits = def.Serial.DataBits
	}
	if c.Serial.Parity == "" {
		c.Serial.Parity = def.Serial.Parity
	}
	if c.Serial.StopBits == 0 {
		c.Serial.StopBits = def.Serial.StopBits
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Poll.Interval == 0 {
		c.Poll.Interval = def.Poll.Interval
	}

	if c.Measurement.Factor == 0 {
		c.Measurement.Factor = def.Measurement.Factor
	}
	if c.Measurement.RecentLines <= 0 {
		c.Measurement.RecentLines = def.Measurement.RecentLines
	}

	if len(c.Prompts) == 0 {
		c.Prompts = def.Prompts
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.Plot.Width == 0 {
		c.Plot.Width = def.Plot.Width
	}
	if c.Plot.Height == 0 {
		c.Plot.Height = def.Plot.Height
	}

	if c.Mock.Capacitance == 0 {
		c.Mock.Capacitance = def.Mock.Capacitance
	}
	if c.Mock.LineInterval == 0 {
		c.Mock.LineInterval = def.Mock.LineInterval
	}
}
