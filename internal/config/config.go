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
	Foursquare FoursquareConfig `yaml:"foursquare" mapstructure:"foursquare"`
	Nominatim  NominatimConfig  `yaml:"nominatim" mapstructure:"nominatim"`
	Collect    CollectConfig    `yaml:"collect" mapstructure:"collect"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// FoursquareConfig holds Foursquare Places API settings.
type FoursquareConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	RadiusMeters int    `yaml:"radius_meters" mapstructure:"radius_meters"`
	Limit        int    `yaml:"limit" mapstructure:"limit"`
}

// NominatimConfig holds Nominatim geocoding settings.
type NominatimConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent  string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// CollectConfig configures the collection run.
type CollectConfig struct {
	Concurrency       int    `yaml:"concurrency" mapstructure:"concurrency"`
	Policy            string `yaml:"policy" mapstructure:"policy"`
	FailFast          bool   `yaml:"fail_fast" mapstructure:"fail_fast"`
	SkipGeocodeMisses bool   `yaml:"skip_geocode_misses" mapstructure:"skip_geocode_misses"`
}

// CatalogConfig points at an optional catalog override file.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig configures where and how results are written.
type OutputConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Format  string `yaml:"format" mapstructure:"format"`
	Summary bool   `yaml:"summary" mapstructure:"summary"`
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
	v.SetEnvPrefix("PLACES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key gets one so AutomaticEnv can bind it.
	v.SetDefault("foursquare.token", "")
	v.SetDefault("foursquare.base_url", "https://api.foursquare.com/v3")
	v.SetDefault("foursquare.radius_meters", 2000)
	v.SetDefault("foursquare.limit", 50)
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "places-cli/1.0")
	v.SetDefault("nominatim.rate_per_sec", 1)
	v.SetDefault("collect.concurrency", 1)
	v.SetDefault("collect.policy", "lenient")
	v.SetDefault("collect.fail_fast", false)
	v.SetDefault("collect.skip_geocode_misses", false)
	v.SetDefault("catalog.path", "")
	v.SetDefault("output.path", "places.csv")
	v.SetDefault("output.format", "")
	v.SetDefault("output.summary", false)
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

// Validate checks that the configuration is usable for the given command
// mode. Modes that talk to the Foursquare API require a token; bounds on
// numeric settings apply to every mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "collect", "search":
		if c.Foursquare.Token == "" {
			problems = append(problems, "foursquare.token is required (set PLACES_FOURSQUARE_TOKEN or foursquare.token)")
		}
	case "geocode", "categories":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Foursquare.RadiusMeters <= 0 {
		problems = append(problems, "foursquare.radius_meters must be > 0")
	}
	if c.Foursquare.Limit < 1 || c.Foursquare.Limit > 50 {
		problems = append(problems, "foursquare.limit must be between 1 and 50")
	}
	if c.Nominatim.RatePerSec <= 0 {
		problems = append(problems, "nominatim.rate_per_sec must be > 0")
	}
	if c.Collect.Concurrency < 1 {
		problems = append(problems, "collect.concurrency must be >= 1")
	}
	switch c.Collect.Policy {
	case "", "lenient", "strict":
	default:
		problems = append(problems, "collect.policy must be lenient or strict")
	}
	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}

	return nil
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
