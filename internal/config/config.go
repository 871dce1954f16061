package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	GSI     GSIConfig     `yaml:"gsi" mapstructure:"gsi"`
	Google  GoogleConfig  `yaml:"google" mapstructure:"google"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Transit TransitConfig `yaml:"transit" mapstructure:"transit"`
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GSIConfig configures the GSI address search client.
type GSIConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GoogleConfig holds Google Maps Platform credentials.
type GoogleConfig struct {
	ServerKey  string  `yaml:"server_key" mapstructure:"server_key"`
	BrowserKey string  `yaml:"browser_key" mapstructure:"browser_key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GeocodeConfig configures the bulk geocoding pipeline.
type GeocodeConfig struct {
	CacheDriver        string `yaml:"cache_driver" mapstructure:"cache_driver"`
	CachePath          string `yaml:"cache_path" mapstructure:"cache_path"`
	DatabaseURL        string `yaml:"database_url" mapstructure:"database_url"`
	RecordDelayMs      int    `yaml:"record_delay_ms" mapstructure:"record_delay_ms"`
	RetryDelayMs       int    `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	CheckpointInterval int    `yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
}

// TransitConfig configures transit-time enrichment.
type TransitConfig struct {
	BatchSize    int `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelayMs int `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
}

// DatasetConfig configures where the school dataset comes from.
type DatasetConfig struct {
	Path           string `yaml:"path" mapstructure:"path"`
	SheetCSVURL    string `yaml:"sheet_csv_url" mapstructure:"sheet_csv_url"`
	RefreshSecs    int    `yaml:"refresh_secs" mapstructure:"refresh_secs"`
	SheetRetries   int    `yaml:"sheet_retries" mapstructure:"sheet_retries"`
	SheetTimeoutMs int    `yaml:"sheet_timeout_ms" mapstructure:"sheet_timeout_ms"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GoogleKey returns the server-side key, falling back to the browser key.
func (c *Config) GoogleKey() string {
	if c.Google.ServerKey != "" {
		return c.Google.ServerKey
	}
	return c.Google.BrowserKey
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("JUKENMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("gsi.base_url", "https://msearch.gsi.go.jp/address-search/AddressSearch")
	v.SetDefault("gsi.rate_limit", 10)
	v.SetDefault("gsi.timeout_secs", 30)
	v.SetDefault("google.server_key", "")
	v.SetDefault("google.browser_key", "")
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("google.rate_limit", 10)
	v.SetDefault("geocode.cache_driver", "json")
	v.SetDefault("geocode.cache_path", "data/geocode_cache.json")
	v.SetDefault("geocode.database_url", "")
	v.SetDefault("geocode.record_delay_ms", 200)
	v.SetDefault("geocode.retry_delay_ms", 300)
	v.SetDefault("geocode.checkpoint_interval", 50)
	v.SetDefault("transit.batch_size", 25)
	v.SetDefault("transit.batch_delay_ms", 500)
	v.SetDefault("dataset.path", "data/schools.json")
	v.SetDefault("dataset.sheet_csv_url", "")
	v.SetDefault("dataset.refresh_secs", 600)
	v.SetDefault("dataset.sheet_retries", 2)
	v.SetDefault("dataset.sheet_timeout_ms", 15000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

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
