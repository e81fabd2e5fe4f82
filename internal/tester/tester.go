package tester

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pgvector/pgvector-go"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emrgen/grantcore/internal/model"
)

// TestDB opens a migrated sqlite database in the test's temp dir. The pool
// is limited to one connection so sqlite never reports a locked database;
// transactions queue in the pool instead.
func TestDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "grantcore.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := model.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

// Redis starts an in-process redis server and returns a client for it.
func Redis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, server
}

// Quiet lowers the log level for the duration of a test.
func Quiet(t testing.TB) {
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.WarnLevel)
	t.Cleanup(func() {
		logrus.SetLevel(level)
	})
}

// RandomVector returns a vector with components in [-1, 1).
func RandomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

// CorpusEntry builds a valid corpus entry with a random embedding.
func CorpusEntry(rng *rand.Rand, id string, dim int, publishedAt time.Time) *model.CorpusEntry {
	return &model.CorpusEntry{
		ID:          id,
		Source:      model.SourceArxiv,
		Title:       fmt.Sprintf("paper %s", id),
		PublishedAt: publishedAt,
		Category:    "cs.LG",
		Embedding:   pgvector.NewVector(RandomVector(rng, dim)),
	}
}
