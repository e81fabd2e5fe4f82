package server

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/cache"
	"github.com/emrgen/grantcore/internal/compress"
	"github.com/emrgen/grantcore/internal/config"
	"github.com/emrgen/grantcore/internal/jobs"
	"github.com/emrgen/grantcore/internal/model"
	"github.com/emrgen/grantcore/internal/queue"
	"github.com/emrgen/grantcore/internal/service"
	"github.com/emrgen/grantcore/internal/store"
	"github.com/emrgen/grantcore/internal/trend"
	"github.com/emrgen/grantcore/internal/vector"
)

// App holds the services of a running instance and the resources they
// share.
type App struct {
	Documents  *service.DocumentService
	References *service.ReferenceService
	Corpus     *service.CorpusService
	Aggregator trend.Aggregator
	Tasks      []jobs.Task
	Consumer   *queue.CorpusConsumer

	closers []func()
}

// NewApp wires the services from the configuration and warms the vector
// index from the store. Redis and kafka are optional.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := config.GetDb(cfg)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, store.NewGormStore(db))
}

func newApp(ctx context.Context, cfg *config.Config, docStore store.Store) (app *App, err error) {
	app = &App{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if err = docStore.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	compressor, err := compress.FromName(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var heads cache.DocumentCache
	var sinks trend.Tee
	sinks = append(sinks, &trend.LogSink{Top: 10})
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		app.closers = append(app.closers, func() { _ = client.Close() })
		if err = ping(ctx, client); err != nil {
			return nil, err
		}
		heads = cache.NewRedisDocumentCache(client, cfg.CacheTTL)
		sinks = append(sinks, trend.NewRedisSink(cache.NewKV(client), trend.DefaultReportKey, 0))
	}

	var publisher queue.Publisher
	if cfg.KafkaBrokers != "" {
		events, err := queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventTopic)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		app.closers = append(app.closers, events.Close)
		publisher = events

		if cfg.TrendTopic != "" {
			reports, err := queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TrendTopic)
			if err != nil {
				return nil, fmt.Errorf("kafka trend publisher: %w", err)
			}
			app.closers = append(app.closers, reports.Close)
			sinks = append(sinks, trend.NewKafkaSink(reports))
		}
	}

	index, err := vector.New(vector.Options{
		Dimension:     cfg.VectorDimension,
		Lists:         cfg.IndexLists,
		SearchLists:   cfg.IndexSearchLists,
		FlatThreshold: cfg.FlatThreshold,
		Seed:          cfg.IndexSeed,
	})
	if err != nil {
		return nil, err
	}

	app.Documents = service.NewDocumentService(docStore, compressor, heads, publisher)
	app.References = service.NewReferenceService(docStore)
	app.Corpus = service.NewCorpusService(docStore, index, app.References, cfg.RebuildFactor)
	app.Aggregator = trend.Aggregator{
		Window:         cfg.TrendWindow,
		Seed:           cfg.IndexSeed,
		MatchThreshold: trend.Threshold(cfg.TrendMatchThreshold),
	}

	if err = app.Corpus.LoadIndex(ctx); err != nil {
		return nil, err
	}
	logrus.Infof("vector index loaded with %d entries", app.Corpus.IndexStats().Entries)

	if cfg.TrendSchedule != "" {
		app.Tasks = append(app.Tasks, jobs.NewTrendTask(cfg.TrendSchedule, app.Corpus, app.Aggregator, sinks))
	}
	if cfg.DecaySchedule != "" {
		app.Tasks = append(app.Tasks, jobs.NewDecayTask(cfg.DecaySchedule, app.References, cfg.DecayHalfLife))
	}
	if cfg.RebuildSchedule != "" {
		app.Tasks = append(app.Tasks, jobs.NewIndexRebuildTask(cfg.RebuildSchedule, app.Corpus))
	}

	if cfg.KafkaBrokers != "" && cfg.CorpusTopic != "" {
		app.Consumer, err = queue.NewCorpusConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.CorpusTopic, app.ingest)
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
	}

	return app, nil
}

func (a *App) ingest(ctx context.Context, entry *model.CorpusEntry) error {
	return a.Corpus.Ingest(ctx, entry)
}

// Close releases the shared resources in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
