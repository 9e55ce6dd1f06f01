package kafka

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/metrics"
	"github.com/segmentio/kafka-go"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// Producer publishes execution results to Kafka
type Producer struct {
	writer writer
	logger ectologger.Logger
	config ProducerConfig
}

// NewProducer creates a new Kafka producer
func NewProducer(config ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	var compression kafka.Compression
	switch config.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	}

	// Topic stays empty on the writer so each message can name its own
	w := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		MaxAttempts:            config.MaxAttempts,
		WriteTimeout:           config.WriteTimeout,
		Async:                  config.Async,
		Compression:            compression,
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}

	return newProducer(w, config, logger), nil
}

func newProducer(w writer, config ProducerConfig, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: w,
		logger: logger,
		config: config,
	}
}

// Publish sends results to the result topic, or to the error topic when
// they failed. All results of one request are written in one batch.
func (p *Producer) Publish(ctx context.Context, results ...*ExecutionResult) error {
	if len(results) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(results))
	for _, result := range results {
		topic := p.config.Topic
		if result.Failed() && p.config.ErrorTopic != "" {
			topic = p.config.ErrorTopic
		}

		msg, err := toKafkaMessage(topic, result)
		if err != nil {
			p.logger.WithContext(ctx).WithError(err).Error("Failed to serialize result, skipping")
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		for _, msg := range messages {
			metrics.KafkaMessagesPublished.WithLabelValues(msg.Topic, metrics.StatusError).Inc()
		}
		return fmt.Errorf("failed to publish results: %w", err)
	}

	for _, msg := range messages {
		metrics.KafkaMessagesPublished.WithLabelValues(msg.Topic, metrics.StatusSuccess).Inc()
	}
	return nil
}

// toKafkaMessage keys by tenant and mapping so results for one mapping keep
// their order within a partition.
func toKafkaMessage(topic string, result *ExecutionResult) (kafka.Message, error) {
	data, err := result.ToJSON()
	if err != nil {
		return kafka.Message{}, err
	}

	headers := MessageHeaders{
		TenantID:    result.TenantID,
		RequestID:   result.RequestID,
		MappingID:   result.MappingID,
		TraceParent: result.TraceParent,
	}

	kafkaHeaders := make([]kafka.Header, 0, 4)
	for _, h := range headers.ToKafkaHeaders() {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: h.Key, Value: h.Value})
	}

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(fmt.Sprintf("%s:%s", result.TenantID, result.MappingID)),
		Value:   data,
		Headers: kafkaHeaders,
		Time:    result.Timestamp,
	}, nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}

func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
