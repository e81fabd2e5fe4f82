package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/model"
)

var ErrMalformedMessage = errors.New("malformed corpus message")

// CorpusMessage is the wire format of the embedding producer.
type CorpusMessage struct {
	EntryID       string    `json:"entry_id"`
	Source        string    `json:"source"`
	Title         string    `json:"title"`
	PublishedAt   time.Time `json:"published_at"`
	Category      string    `json:"category"`
	Embedding     []float32 `json:"embedding"`
	CitationCount int64     `json:"citation_count"`
}

// DecodeCorpusEntry parses one producer message.
func DecodeCorpusEntry(value []byte) (*model.CorpusEntry, error) {
	var msg CorpusMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.EntryID == "" || len(msg.Embedding) == 0 {
		return nil, fmt.Errorf("%w: missing entry id or embedding", ErrMalformedMessage)
	}

	return &model.CorpusEntry{
		ID:            msg.EntryID,
		Source:        model.CorpusSource(msg.Source),
		Title:         msg.Title,
		PublishedAt:   msg.PublishedAt,
		Category:      msg.Category,
		Embedding:     pgvector.NewVector(msg.Embedding),
		CitationCount: msg.CitationCount,
	}, nil
}

// EncodeCorpusEntry renders an entry in the producer wire format.
func EncodeCorpusEntry(entry *model.CorpusEntry) ([]byte, error) {
	return json.Marshal(CorpusMessage{
		EntryID:       entry.ID,
		Source:        string(entry.Source),
		Title:         entry.Title,
		PublishedAt:   entry.PublishedAt,
		Category:      entry.Category,
		Embedding:     entry.Embedding.Slice(),
		CitationCount: entry.CitationCount,
	})
}

// CorpusHandler ingests one decoded entry.
type CorpusHandler func(ctx context.Context, entry *model.CorpusEntry) error

// CorpusConsumer feeds entries from the embedding producer's topic to a
// handler. Offsets are committed only after the handler accepted the entry
// or the message was found malformed.
type CorpusConsumer struct {
	consumer *kafka.Consumer
	handler  CorpusHandler
	poll     time.Duration
}

func NewCorpusConsumer(brokers, group, topic string, handler CorpusHandler) (*CorpusConsumer, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           group,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, err
	}
	if err := consumer.SubscribeTopics([]string{topic}, nil); err != nil {
		_ = consumer.Close()
		return nil, err
	}

	return &CorpusConsumer{consumer: consumer, handler: handler, poll: time.Second}, nil
}

// Run consumes until ctx is done.
func (c *CorpusConsumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.consumer.Close(); err != nil {
			logrus.Errorf("failed to close corpus consumer: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := c.consumer.ReadMessage(c.poll)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
				continue
			}
			logrus.Errorf("corpus consumer read failed: %v", err)
			continue
		}

		entry, err := DecodeCorpusEntry(msg.Value)
		if err != nil {
			logrus.Warnf("skipping corpus message at %v: %v", msg.TopicPartition, err)
		} else if err := c.handler(ctx, entry); err != nil {
			// leave the offset uncommitted so the entry is redelivered
			logrus.Errorf("failed to ingest corpus entry %s: %v", entry.ID, err)
			continue
		}

		if _, err := c.consumer.CommitMessage(msg); err != nil {
			logrus.Errorf("failed to commit corpus offset: %v", err)
		}
	}
}
