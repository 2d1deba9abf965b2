package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

// KafkaNotifier produces events to a kafka topic, keyed by event id.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaNotifier(brokers, topic string) (*KafkaNotifier, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, err
	}

	if topic == "" {
		topic = DatasetEventQueue
	}

	return &KafkaNotifier{producer: producer, topic: topic}, nil
}

// Publish waits for the broker to acknowledge the event.
func (k *KafkaNotifier) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	deliveries := make(chan kafka.Event, 1)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.ID),
		Value:          data,
	}, deliveries)
	if err != nil {
		return err
	}

	select {
	case e := <-deliveries:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected kafka event: %v", e)
		}
		return msg.TopicPartition.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KafkaNotifier) Close() {
	if remaining := k.producer.Flush(5000); remaining > 0 {
		logrus.Warnf("kafka notifier closed with %d undelivered events", remaining)
	}
	k.producer.Close()
}
