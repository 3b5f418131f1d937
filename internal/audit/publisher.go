package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Sink persists audit events. Implementations must be safe for concurrent
// use.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Kafka publishes events as JSON records on a single topic.
type Kafka struct {
	client *kgo.Client
	topic  string
	warn   *log.Logger
}

// NewKafka connects to the brokers and makes sure the topic exists. Topic
// creation failing because the topic is already there is not an error.
func NewKafka(ctx context.Context, brokers []string, topic string, warn *log.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil &&
		!errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("create topic %s: %w", topic, err)
	}
	if warn == nil {
		warn = log.Default()
	}
	return &Kafka{client: client, topic: topic, warn: warn}, nil
}

// Publish produces the event asynchronously. Broker failures are reported
// through the warning sink, never to the caller.
func (k *Kafka) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{Topic: k.topic, Key: []byte(event.Source + ">" + event.Target), Value: payload}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.warn.Printf("audit publish failed: %v", err)
		}
	})
	return nil
}

// Close flushes outstanding records and releases the client.
func (k *Kafka) Close() {
	k.client.Close()
}
