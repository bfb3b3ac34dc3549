package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory"`
	Geocoding GeocodingConfig `yaml:"geocoding" mapstructure:"geocoding"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Taxonomy  TaxonomyConfig  `yaml:"taxonomy" mapstructure:"taxonomy"`
	Region    RegionConfig    `yaml:"region" mapstructure:"region"`
	Prompt    PromptConfig    `yaml:"prompt" mapstructure:"prompt"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DirectoryConfig points at the target service-directory API.
type DirectoryConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Source is the provenance label attached to every write.
	Source string `yaml:"source" mapstructure:"source"`
}

// GeocodingConfig holds Google Geocoding API settings.
type GeocodingConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// CacheConfig configures the durable cache shared by the geolocation
// resolver and the match memory.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MatchConfig configures entity matching.
type MatchConfig struct {
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	// KnownDistinctPath is an optional YAML file of organizations known to
	// sit near each other yet be different.
	KnownDistinctPath string `yaml:"known_distinct_path" mapstructure:"known_distinct_path"`
}

// SourceConfig configures the spreadsheet export reader.
type SourceConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	SheetName  string `yaml:"sheet_name" mapstructure:"sheet_name"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// TaxonomyConfig configures facility-type resolution.
type TaxonomyConfig struct {
	// AliasesPath is an optional YAML file mapping partner facility-type
	// labels to directory taxonomy names.
	AliasesPath string `yaml:"aliases_path" mapstructure:"aliases_path"`
}

// RegionConfig supplies the address parts source rows leave implicit.
type RegionConfig struct {
	DefaultCity string `yaml:"default_city" mapstructure:"default_city"`
	State       string `yaml:"state" mapstructure:"state"`
	Country     string `yaml:"country" mapstructure:"country"`
}

// PromptConfig configures the human-disambiguation channel.
type PromptConfig struct {
	// NonInteractive defers every ambiguous match instead of asking.
	NonInteractive bool `yaml:"non_interactive" mapstructure:"non_interactive"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STREETLIVES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("directory.source", "ingestion")
	v.SetDefault("geocoding.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocoding.requests_per_sec", 10)
	v.SetDefault("cache.path", "reconcile.db")
	v.SetDefault("match.radius_meters", 30)
	v.SetDefault("source.max_age_days", 14)
	v.SetDefault("region.default_city", "New York")
	v.SetDefault("region.state", "NY")
	v.SetDefault("region.country", "USA")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
