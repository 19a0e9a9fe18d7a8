package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/config"
	"github.com/yourname/commerce-datagen/internal/filter"
	"github.com/yourname/commerce-datagen/internal/metrics"
	"github.com/yourname/commerce-datagen/internal/retry"
)

var jsonFast = jsoniter.ConfigFastest

// Publisher sends JSON events through one long-lived synchronous producer.
type Publisher struct {
	producer sarama.SyncProducer
	filter   *filter.Evaluator
	log      *zap.Logger
}

// Connect creates the producer, retrying per policy while the brokers are
// unreachable. f may be nil.
func Connect(ctx context.Context, cfg *config.KafkaConfig, policy retry.Policy, log *zap.Logger, f *filter.Evaluator) (*Publisher, error) {
	sc, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}
	p, err := retry.Do(ctx, policy, log, "kafka", func(context.Context) (sarama.SyncProducer, error) {
		p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
		if err != nil {
			return nil, fmt.Errorf("new producer: %w", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return NewPublisher(p, f, log), nil
}

// NewPublisher wraps an existing producer.
func NewPublisher(p sarama.SyncProducer, f *filter.Evaluator, log *zap.Logger) *Publisher {
	return &Publisher{producer: p, filter: f, log: log.With(zap.String("component", "publisher"))}
}

// Publish serializes v and blocks until the broker acknowledges it. Events
// rejected by the filter are dropped without error.
func (p *Publisher) Publish(ctx context.Context, topic, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := jsonFast.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}
	if !p.filter.AllowPayload(payload) {
		metrics.IncFiltered(topic)
		p.log.Debug("event filtered", zap.String("topic", topic), zap.String("key", key))
		return nil
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	start := time.Now()
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.ObservePublishLatency(topic, time.Since(start).Seconds())
	metrics.IncEvent(topic)
	p.log.Debug("event sent",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *Publisher) Close() error { return p.producer.Close() }
