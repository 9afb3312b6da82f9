package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"receipt-qa/internal/anomaly"
	"receipt-qa/internal/receipt"
)

// EnvPrefix prefixes environment overrides, e.g. RECEIPTQA_LOG_LEVEL.
const EnvPrefix = "RECEIPTQA"

// Config is the full runtime configuration.
type Config struct {
	Input     string        `mapstructure:"input"`
	OutputDir string        `mapstructure:"output_dir"`
	LogLevel  string        `mapstructure:"log_level"`
	Files     FilesConfig   `mapstructure:"files"`
	Parser    ParserConfig  `mapstructure:"parser"`
	Anomaly   AnomalyConfig `mapstructure:"anomaly"`
}

// FilesConfig names the report files written into OutputDir.
type FilesConfig struct {
	Cleaned   string `mapstructure:"cleaned"`
	QAReport  string `mapstructure:"qa_report"`
	Anomalies string `mapstructure:"anomalies"`
}

// ParserConfig tunes vendor matching.
type ParserConfig struct {
	Fallthrough bool `mapstructure:"fallthrough"`
	TripYear    int  `mapstructure:"trip_year"`
}

// AnomalyConfig tunes the volume anomaly detector.
type AnomalyConfig struct {
	Threshold int `mapstructure:"threshold"`
}

// ParserOptions converts the parser section into receipt.ParserOptions.
func (c ParserConfig) ParserOptions() receipt.ParserOptions {
	mode := receipt.MatchFirstKey
	if c.Fallthrough {
		mode = receipt.MatchFallthrough
	}
	return receipt.ParserOptions{Mode: mode, TripYear: c.TripYear}
}

// SetDefaults registers a default for every key so env overrides and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "raw_data.csv")
	v.SetDefault("output_dir", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("files.cleaned", "cleaned_receipts.csv")
	v.SetDefault("files.qa_report", "qa_report.csv")
	v.SetDefault("files.anomalies", "volume_anomalies.csv")
	v.SetDefault("parser.fallthrough", false)
	v.SetDefault("parser.trip_year", receipt.DefaultTripYear)
	v.SetDefault("anomaly.threshold", anomaly.DefaultThreshold)
}

// Load reads configPath (optional) into v, applies environment overrides and
// returns the validated configuration.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Files.Cleaned == "" || c.Files.QAReport == "" || c.Files.Anomalies == "" {
		return fmt.Errorf("files.cleaned, files.qa_report and files.anomalies are required")
	}
	if c.Parser.TripYear < 1 || c.Parser.TripYear > 9999 {
		return fmt.Errorf("parser.trip_year must be a four-digit year, got %d", c.Parser.TripYear)
	}
	if c.Anomaly.Threshold < 1 {
		return fmt.Errorf("anomaly.threshold must be at least 1, got %d", c.Anomaly.Threshold)
	}
	return nil
}
