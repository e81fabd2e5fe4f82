package trend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/cache"
)

const DefaultReportKey = "trend:latest"

// Sink receives finished reports.
type Sink interface {
	Emit(ctx context.Context, report *Report) error
}

var _ Sink = (*LogSink)(nil)

// LogSink logs the rising clusters of a report.
type LogSink struct {
	// Top limits how many trends are logged; zero logs all of them.
	Top int
}

func (l *LogSink) Emit(_ context.Context, report *Report) error {
	logrus.Infof("trend report: %d entries in %d buckets", report.Entries, len(report.Buckets))
	for i, t := range report.Rising {
		if l.Top > 0 && i >= l.Top {
			break
		}
		logrus.WithFields(logrus.Fields{
			"bucket":     t.Bucket.Format(time.DateOnly),
			"size":       t.Size,
			"previous":   t.PreviousSize,
			"categories": t.Categories,
		}).Infof("trend #%d growth %.2f", i+1, t.Growth)
	}
	return nil
}

var _ Sink = (*RedisSink)(nil)

// RedisSink stores the latest report as JSON under a single key.
type RedisSink struct {
	kv  *cache.KV
	key string
	ttl time.Duration
}

func NewRedisSink(kv *cache.KV, key string, ttl time.Duration) *RedisSink {
	if key == "" {
		key = DefaultReportKey
	}
	return &RedisSink{kv: kv, key: key, ttl: ttl}
}

func (r *RedisSink) Emit(ctx context.Context, report *Report) error {
	return r.kv.Set(ctx, r.key, report, r.ttl)
}

// Latest returns the last stored report, or nil if there is none.
func (r *RedisSink) Latest(ctx context.Context) (*Report, error) {
	var report Report
	ok, err := r.kv.Get(ctx, r.key, &report)
	if err != nil || !ok {
		return nil, err
	}
	return &report, nil
}

// RawPublisher publishes an opaque keyed message.
type RawPublisher interface {
	PublishRaw(ctx context.Context, key, value []byte) error
}

var _ Sink = (*KafkaSink)(nil)

// KafkaSink publishes each report keyed by its latest bucket.
type KafkaSink struct {
	publisher RawPublisher
}

func NewKafkaSink(publisher RawPublisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

func (k *KafkaSink) Emit(ctx context.Context, report *Report) error {
	value, err := json.Marshal(report)
	if err != nil {
		return err
	}

	key := "empty"
	if n := len(report.Buckets); n > 0 {
		key = report.Buckets[n-1].Start.Format(time.DateOnly)
	}
	return k.publisher.PublishRaw(ctx, []byte(key), value)
}

// Tee emits to every sink and joins their errors.
type Tee []Sink

func (t Tee) Emit(ctx context.Context, report *Report) error {
	var errs []error
	for _, sink := range t {
		if err := sink.Emit(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", sink, err))
		}
	}
	return errors.Join(errs...)
}
