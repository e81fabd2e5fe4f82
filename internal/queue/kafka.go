package queue

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

var _ Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes events to a kafka topic and waits for delivery.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(brokers, topic string) (*KafkaPublisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, err
	}

	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

func (k *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := event.Marshal()
	if err != nil {
		return err
	}
	return k.produce(ctx, event.Key(), value)
}

// PublishRaw writes an already encoded payload to the topic.
func (k *KafkaPublisher) PublishRaw(ctx context.Context, key, value []byte) error {
	return k.produce(ctx, key, value)
}

func (k *KafkaPublisher) produce(ctx context.Context, key, value []byte) error {
	delivery := make(chan kafka.Event, 1)
	err := k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}, delivery)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-delivery:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected kafka event: %v", e)
		}
		if msg.TopicPartition.Error != nil {
			return msg.TopicPartition.Error
		}
		logrus.Debugf("published %d bytes to %s", len(value), k.topic)
		return nil
	}
}

func (k *KafkaPublisher) Close() {
	k.producer.Flush(5000)
	k.producer.Close()
}
