package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emrgen/grantcore/internal/compress"
)

const envPrefix = "GRANTCORE"

// Config holds every setting of the service. Each field is read from the
// environment as GRANTCORE_<KEY>, after loading a .env file if present.
type Config struct {
	DBDriver string `mapstructure:"db_driver" validate:"oneof=sqlite postgres"`
	DBDSN    string `mapstructure:"db_dsn" validate:"required"`

	GRPCPort    int `mapstructure:"grpc_port" validate:"min=1,max=65535"`
	MetricsPort int `mapstructure:"metrics_port" validate:"min=0,max=65535,nefield=GRPCPort"`

	// RedisAddr enables the document head cache and the trend report key.
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"min=0"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"min=0"`

	// KafkaBrokers enables document events, corpus ingestion and trend
	// publishing.
	KafkaBrokers  string `mapstructure:"kafka_brokers"`
	EventTopic    string `mapstructure:"event_topic" validate:"required_with=KafkaBrokers"`
	CorpusTopic   string `mapstructure:"corpus_topic"`
	ConsumerGroup string `mapstructure:"consumer_group" validate:"required_with=CorpusTopic"`
	TrendTopic    string `mapstructure:"trend_topic"`

	Compression string `mapstructure:"compression" validate:"oneof=none gzip lz4 zstd brotli"`

	VectorDimension  int     `mapstructure:"vector_dimension" validate:"min=1"`
	IndexLists       int     `mapstructure:"index_lists" validate:"min=1"`
	IndexSearchLists int     `mapstructure:"index_search_lists" validate:"min=1"`
	FlatThreshold    int     `mapstructure:"flat_threshold"`
	IndexSeed        uint64  `mapstructure:"index_seed"`
	RebuildFactor    float64 `mapstructure:"rebuild_factor" validate:"gt=0"`

	TrendWindow         time.Duration `mapstructure:"trend_window" validate:"min=1s"`
	TrendMatchThreshold float64       `mapstructure:"trend_match_threshold" validate:"gte=-1,lte=1"`
	TrendSchedule       string        `mapstructure:"trend_schedule"`
	DecaySchedule       string        `mapstructure:"decay_schedule"`
	DecayHalfLife       time.Duration `mapstructure:"decay_half_life" validate:"min=1s"`
	RebuildSchedule     string        `mapstructure:"rebuild_schedule"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`
}

var defaults = map[string]any{
	"db_driver":             "sqlite",
	"db_dsn":                "grantcore.db",
	"grpc_port":             4020,
	"metrics_port":          4021,
	"redis_addr":            "",
	"redis_password":        "",
	"redis_db":              0,
	"cache_ttl":             "10m",
	"kafka_brokers":         "",
	"event_topic":           "grantcore.documents",
	"corpus_topic":          "",
	"consumer_group":        "grantcore",
	"trend_topic":           "",
	"compression":           "zstd",
	"vector_dimension":      768,
	"index_lists":           32,
	"index_search_lists":    4,
	"flat_threshold":        2048,
	"index_seed":            1,
	"rebuild_factor":        4.0,
	"trend_window":          "168h",
	"trend_match_threshold": 0.8,
	"trend_schedule":        "@daily",
	"decay_schedule":        "@hourly",
	"decay_half_life":       "720h",
	"rebuild_schedule":      "@every 10m",
	"log_level":             "info",
	"log_format":            "text",
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := compress.FromName(cfg.Compression); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ConfigureLogging applies the log level and format.
func ConfigureLogging(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// GetDb opens the configured database.
func GetDb(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	default:
		dialector = sqlite.Open(cfg.DBDSN + "?_busy_timeout=5000&_foreign_keys=on")
	}

	level := logger.Warn
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}
