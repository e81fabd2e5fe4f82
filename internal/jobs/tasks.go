package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/metrics"
	"github.com/emrgen/grantcore/internal/trend"
	"github.com/emrgen/grantcore/internal/vector"
)

// Snapshotter exposes a copy of the indexed corpus.
type Snapshotter interface {
	Snapshot() []vector.Entry
}

// TrendTask aggregates the indexed corpus and hands the report to a sink.
type TrendTask struct {
	corpus     Snapshotter
	aggregator trend.Aggregator
	sink       trend.Sink
	schedule   string
}

func NewTrendTask(schedule string, corpus Snapshotter, aggregator trend.Aggregator, sink trend.Sink) *TrendTask {
	return &TrendTask{
		corpus:     corpus,
		aggregator: aggregator,
		sink:       sink,
		schedule:   schedule,
	}
}

func (t *TrendTask) Name() string     { return "trends" }
func (t *TrendTask) Schedule() string { return t.schedule }

func (t *TrendTask) Run(ctx context.Context) error {
	report := t.aggregator.Run(t.corpus.Snapshot())
	if err := t.sink.Emit(ctx, report); err != nil {
		metrics.TrendRuns.WithLabelValues("error").Inc()
		return err
	}

	metrics.TrendRuns.WithLabelValues("ok").Inc()
	logrus.Infof("trend report over %d entries: %d rising clusters", report.Entries, len(report.Rising))
	return nil
}

// Decayer lowers the scores of system references.
type Decayer interface {
	Decay(ctx context.Context, halfLife time.Duration, now time.Time) (int, error)
}

// DecayTask decays system reference scores by their age.
type DecayTask struct {
	references Decayer
	halfLife   time.Duration
	schedule   string
	now        func() time.Time
}

func NewDecayTask(schedule string, references Decayer, halfLife time.Duration) *DecayTask {
	return &DecayTask{
		references: references,
		halfLife:   halfLife,
		schedule:   schedule,
		now:        time.Now,
	}
}

func (d *DecayTask) Name() string     { return "reference_decay" }
func (d *DecayTask) Schedule() string { return d.schedule }

func (d *DecayTask) Run(ctx context.Context) error {
	n, err := d.references.Decay(ctx, d.halfLife, d.now())
	if err != nil {
		return err
	}
	logrus.Debugf("decayed %d system references", n)
	return nil
}

// Rebuilder rebuilds the vector index once it has outgrown its lists.
type Rebuilder interface {
	RebuildIfNeeded(ctx context.Context) (bool, error)
}

// IndexRebuildTask checks the index shape and rebuilds it when needed.
type IndexRebuildTask struct {
	corpus   Rebuilder
	schedule string
}

func NewIndexRebuildTask(schedule string, corpus Rebuilder) *IndexRebuildTask {
	return &IndexRebuildTask{corpus: corpus, schedule: schedule}
}

func (r *IndexRebuildTask) Name() string     { return "index_rebuild" }
func (r *IndexRebuildTask) Schedule() string { return r.schedule }

func (r *IndexRebuildTask) Run(ctx context.Context) error {
	rebuilt, err := r.corpus.RebuildIfNeeded(ctx)
	if err != nil {
		return err
	}
	if rebuilt {
		logrus.Infof("vector index rebuilt")
	}
	return nil
}
