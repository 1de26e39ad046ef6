package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sitescout/sitescout/internal/models"
	"github.com/sitescout/sitescout/internal/scoring"
)

type Config struct {
	Scan    ScanConfig    `mapstructure:"scan"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

type ScanConfig struct {
	TopN            int    `mapstructure:"top_n"`
	UserAgent       string `mapstructure:"user_agent"`
	FetchDelay      string `mapstructure:"fetch_delay"`
	DocumentTimeout string `mapstructure:"document_timeout"`
	OutputDir       string `mapstructure:"output_dir"`
	SkipProducts    bool   `mapstructure:"skip_products"`
	MaxTextLength   int    `mapstructure:"max_text_length"`
}

type ScoringConfig struct {
	Keywords          []string           `mapstructure:"keywords"`
	RecencyMaxAgeDays int                `mapstructure:"recency_max_age_days"`
	FrequencyWeights  map[string]float64 `mapstructure:"frequency_weights"`
}

type StorageConfig struct {
	Type             string `mapstructure:"type"`
	Path             string `mapstructure:"path"`
	ConnectionString string `mapstructure:"connection_string"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Directory string `mapstructure:"directory"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Load reads configuration from the given file, or searches the usual
// locations when path is empty. A missing file is fine in the search
// case; every value has a default.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("sitescout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.sitescout")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.top_n", scoring.DefaultTopN)
	v.SetDefault("scan.user_agent", "sitescout/1.0")
	v.SetDefault("scan.fetch_delay", "2s")
	v.SetDefault("scan.document_timeout", "30s")
	v.SetDefault("scan.output_dir", "./scraped")
	v.SetDefault("scan.skip_products", false)
	v.SetDefault("scan.max_text_length", 20000)

	v.SetDefault("scoring.keywords", scoring.DefaultKeywords())
	v.SetDefault("scoring.recency_max_age_days", 365)

	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.path", "./sitescout.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.directory", "./logs")

	v.SetDefault("server.port", 8080)
}

// FetchDelayDuration parses the configured delay between page fetches,
// falling back to two seconds on a bad value.
func (c *ScanConfig) FetchDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.FetchDelay)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}

// DocumentTimeoutDuration parses the per-request timeout, falling back
// to thirty seconds on a bad value.
func (c *ScanConfig) DocumentTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.DocumentTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ScorerConfig translates the file-level scoring section into the
// scorer's immutable configuration.
func (c *Config) ScorerConfig() scoring.Config {
	weights := make(map[models.ChangeFreq]float64, len(c.Scoring.FrequencyWeights))
	for token, w := range c.Scoring.FrequencyWeights {
		freq := models.ChangeFreq(strings.ToLower(strings.TrimSpace(token)))
		weights[freq] = w
	}

	return scoring.Config{
		Keywords:      c.Scoring.Keywords,
		FreqWeights:   weights,
		RecencyMaxAge: time.Duration(c.Scoring.RecencyMaxAgeDays) * 24 * time.Hour,
	}
}
