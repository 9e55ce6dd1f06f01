package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/metrics"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is called for each execution request received from Kafka
type MessageHandler func(ctx context.Context, msg *ReceivedMessage) error

// ReceivedMessage wraps a Kafka message with its parsed request
type ReceivedMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Headers   MessageHeaders
	Request   *ExecutionRequest
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

// Consumer consumes execution requests from Kafka
type Consumer struct {
	reader  reader
	logger  ectologger.Logger
	config  ConsumerConfig
	handler MessageHandler
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
	mu      sync.Mutex
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config ConsumerConfig, logger ectologger.Logger) (*Consumer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if config.GroupID == "" {
		return nil, fmt.Errorf("group ID is required")
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           config.Brokers,
		Topic:             config.Topic,
		GroupID:           config.GroupID,
		MinBytes:          config.MinBytes,
		MaxBytes:          config.MaxBytes,
		MaxWait:           config.MaxWait,
		CommitInterval:    config.CommitInterval,
		StartOffset:       config.StartOffset,
		SessionTimeout:    config.SessionTimeout,
		HeartbeatInterval: config.HeartbeatInterval,
		RebalanceTimeout:  config.RebalanceTimeout,
	})

	return newConsumer(r, config, logger), nil
}

func newConsumer(r reader, config ConsumerConfig, logger ectologger.Logger) *Consumer {
	return &Consumer{
		reader: r,
		logger: logger,
		config: config,
	}
}

// Start begins consuming messages in the background
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer is already running")
	}
	c.running = true
	c.handler = handler
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Infof("Kafka consumer started for topic %s (group: %s)", c.config.Topic, c.config.GroupID)
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}

	c.logger.Info("Kafka consumer stopped")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WithError(err).Error("Failed to fetch message")
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.WithError(err).Errorf("Failed to commit message at offset %d", msg.Offset)
		}
	}
}

// handle never blocks the partition: unparseable requests and handler
// failures are logged and the offset is committed anyway.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	received, err := parseMessage(msg)
	if err != nil {
		metrics.KafkaMessagesConsumed.WithLabelValues("invalid").Inc()
		c.logger.WithError(err).Errorf("Failed to parse message at offset %d", msg.Offset)
		return
	}

	if err := c.handler(ctx, received); err != nil {
		metrics.KafkaMessagesConsumed.WithLabelValues(metrics.StatusError).Inc()
		c.logger.WithError(err).WithFields(map[string]any{
			"request_id": received.Request.RequestID,
			"tenant_id":  received.Request.TenantID,
			"mapping_id": received.Request.MappingID,
		}).Errorf("Handler failed for message at offset %d", msg.Offset)
		return
	}

	metrics.KafkaMessagesConsumed.WithLabelValues(metrics.StatusSuccess).Inc()
}

// parseMessage decodes the request body. Header values fill in any ids the
// body leaves empty.
func parseMessage(msg kafka.Message) (*ReceivedMessage, error) {
	received := &ReceivedMessage{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
	}

	headers := make([]Header, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = Header{Key: h.Key, Value: h.Value}
	}
	received.Headers = ExtractHeaders(headers)

	req, err := ParseExecutionRequest(msg.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message as JSON: %w", err)
	}
	if req.TenantID == "" {
		req.TenantID = received.Headers.TenantID
	}
	if req.RequestID == "" {
		req.RequestID = received.Headers.RequestID
	}
	if req.MappingID == "" {
		req.MappingID = received.Headers.MappingID
	}
	if req.TenantID == "" || req.MappingID == "" {
		return nil, fmt.Errorf("execution request needs tenant_id and mapping_id")
	}
	received.Request = req

	return received, nil
}

func (c *Consumer) Stats() kafka.ReaderStats {
	return c.reader.Stats()
}

func (c *Consumer) Lag() int64 {
	return c.reader.Stats().Lag
}
