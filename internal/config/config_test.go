package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/grantcore/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 4020, cfg.GRPCPort)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, 768, cfg.VectorDimension)
	assert.Equal(t, 7*24*time.Hour, cfg.TrendWindow)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, uint64(1), cfg.IndexSeed)
	assert.InDelta(t, 4.0, cfg.RebuildFactor, 1e-9)
	assert.InDelta(t, 0.8, cfg.TrendMatchThreshold, 1e-9)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("GRANTCORE_GRPC_PORT", "5000")
	t.Setenv("GRANTCORE_COMPRESSION", "lz4")
	t.Setenv("GRANTCORE_TREND_WINDOW", "24h")
	t.Setenv("GRANTCORE_INDEX_SEED", "42")
	t.Setenv("GRANTCORE_KAFKA_BROKERS", "localhost:9092")
	t.Setenv("GRANTCORE_TREND_MATCH_THRESHOLD", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.GRPCPort)
	assert.Equal(t, "lz4", cfg.Compression)
	assert.Equal(t, 24*time.Hour, cfg.TrendWindow)
	assert.Equal(t, uint64(42), cfg.IndexSeed)
	assert.Equal(t, "localhost:9092", cfg.KafkaBrokers)
	assert.Zero(t, cfg.TrendMatchThreshold)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"GRANTCORE_DB_DRIVER":             "mysql",
		"GRANTCORE_COMPRESSION":           "snappy",
		"GRANTCORE_VECTOR_DIMENSION":      "0",
		"GRANTCORE_METRICS_PORT":          "4020",
		"GRANTCORE_LOG_FORMAT":            "xml",
		"GRANTCORE_TREND_MATCH_THRESHOLD": "1.5",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestConfigureLogging(t *testing.T) {
	level, formatter := logrus.GetLevel(), logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.SetFormatter(formatter)
	})

	ConfigureLogging(&Config{LogLevel: "debug", LogFormat: "json"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	ConfigureLogging(&Config{LogLevel: "bogus", LogFormat: "text"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestGetDb(t *testing.T) {
	cfg := &Config{DBDriver: "sqlite", DBDSN: filepath.Join(t.TempDir(), "grantcore.db")}
	db, err := GetDb(cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.Migrate(db))
	assert.True(t, db.Migrator().HasTable(&model.Document{}))
}
