package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"opzterm/logging"
	"opzterm/lowering"
	"opzterm/postfix"
	"opzterm/reconstruct"
	"opzterm/token"
)

// Config represents the application configuration
type Config struct {
	Lowering    LoweringConfig    `json:"lowering" yaml:"lowering"`
	Reconstruct ReconstructConfig `json:"reconstruct" yaml:"reconstruct"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Batch       BatchConfig       `json:"batch" yaml:"batch"`
	REPL        REPLConfig        `json:"repl" yaml:"repl"`
	Verify      VerifyConfig      `json:"verify" yaml:"verify"`
}

// LoweringConfig selects the closer dialect and the marker spelling written out
type LoweringConfig struct {
	Dialect string `json:"dialect" yaml:"dialect"`
	Surface string `json:"surface" yaml:"surface"`
	Codec   string `json:"codec" yaml:"codec"`
}

// ReconstructConfig controls the rendered wrapper and layout
type ReconstructConfig struct {
	Header       []string `json:"header" yaml:"header"`
	Footer       []string `json:"footer" yaml:"footer"`
	Indent       string   `json:"indent" yaml:"indent"`
	RecognizeFor bool     `json:"recognize_for" yaml:"recognize_for"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	File   string `json:"file" yaml:"file"`
}

// BatchConfig bounds the number of files translated at once
type BatchConfig struct {
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// REPLConfig contains REPL configuration
type REPLConfig struct {
	Prompt      string `json:"prompt" yaml:"prompt"`
	HistoryFile string `json:"history_file" yaml:"history_file"`
	HistorySize int    `json:"history_size" yaml:"history_size"`
	Colors      bool   `json:"colors" yaml:"colors"`
}

// VerifyConfig limits one equivalence run
type VerifyConfig struct {
	TimeoutMS int `json:"timeout_ms" yaml:"timeout_ms"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	rec := reconstruct.DefaultOptions()
	return &Config{
		Lowering: LoweringConfig{
			Dialect: string(lowering.DialectTagged),
			Surface: string(token.SurfaceCyrillic),
			Codec:   "text",
		},
		Reconstruct: ReconstructConfig{
			Header:       rec.Header,
			Footer:       rec.Footer,
			Indent:       rec.Indent,
			RecognizeFor: rec.RecognizeFor,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
		REPL: REPLConfig{
			Prompt:      "opz> ",
			HistoryFile: "/tmp/opzterm_history",
			HistorySize: 500,
		},
		Verify: VerifyConfig{
			TimeoutMS: 2000,
		},
	}
}

// LoadConfig loads configuration from a file; a missing file gives the defaults
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	path = expandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %v", err)
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %v", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves configuration to a file, YAML unless the extension is .json
func SaveConfig(config *Config, path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(config, "", "  ")
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	return nil
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	if _, err := lowering.ParseDialect(c.Lowering.Dialect); err != nil {
		return fmt.Errorf("lowering.dialect: %v", err)
	}
	if _, err := token.ParseSurface(c.Lowering.Surface); err != nil {
		return fmt.Errorf("lowering.surface: %v", err)
	}
	if _, err := postfix.NewRegistry(token.SurfaceCyrillic).Get(c.Lowering.Codec); err != nil {
		return fmt.Errorf("lowering.codec: %v", err)
	}
	if _, err := logging.NewFormatter(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %v", err)
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must not be negative")
	}
	return nil
}

// Dialect returns the configured dialect
func (c *Config) Dialect() lowering.Dialect {
	d, _ := lowering.ParseDialect(c.Lowering.Dialect)
	return d
}

// Surface returns the configured marker spelling
func (c *Config) Surface() token.Surface {
	s, _ := token.ParseSurface(c.Lowering.Surface)
	return s
}

// ReconstructOptions builds reconstructor options
func (c *Config) ReconstructOptions(logger logging.Logger) reconstruct.Options {
	return reconstruct.Options{
		Header:       c.Reconstruct.Header,
		Footer:       c.Reconstruct.Footer,
		Indent:       c.Reconstruct.Indent,
		RecognizeFor: c.Reconstruct.RecognizeFor,
		Logger:       logger,
	}
}

// VerifyTimeout returns the equivalence run limit
func (c *Config) VerifyTimeout() time.Duration {
	return time.Duration(c.Verify.TimeoutMS) * time.Millisecond
}

// NewLogger builds the logger described by the logging section
func (c *Config) NewLogger(verbose bool) (logging.Logger, error) {
	level := logging.ParseLevel(c.Logging.Level)
	if verbose {
		level = logging.LevelDebug
	}
	formatter, err := logging.NewFormatter(c.Logging.Format)
	if err != nil {
		return nil, err
	}

	writers := []logging.Writer{logging.NewConsoleWriter()}
	if c.Logging.File != "" {
		fw, err := logging.NewFileWriter(expandHome(c.Logging.File))
		if err != nil {
			return nil, err
		}
		writers = append(writers, fw)
	}

	return logging.NewDefaultLoggerWithConfig(logging.LoggerConfig{
		Level:     level,
		Formatter: formatter,
		Writers:   writers,
	}), nil
}

// expandHome expands ~ to the user's home directory
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
