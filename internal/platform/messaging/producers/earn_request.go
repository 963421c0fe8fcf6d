package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/loyalty-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// EarnReqMessageProducer publishes accepted earn requests for asynchronous
// processing. Messages are keyed by "<customer_id>|<program_id>" so that all
// events for one loyalty partition land on the same Kafka partition and are
// consumed in order by a single processor.
type EarnReqMessageProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new earn request producer and ensures the topic exists
func NewEarnReqMessageProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EarnReqMessageProducer, error) {
	if cfg.EarnTopic == "" {
		return nil, fmt.Errorf("kafka earn topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for earn producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.EarnTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure earn topic %s exists: %w", cfg.EarnTopic, err)
	}

	writer := &kafka.Writer{
		Addr:  kafka.TCP(cfg.Brokers),
		Topic: cfg.EarnTopic,
		// Hash keeps each loyalty partition on one Kafka partition.
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Using async for high throughput
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write earn messages asynchronously", "topic", cfg.EarnTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote earn messages asynchronously", "topic", cfg.EarnTopic, "count", len(messages))
			}
		},
	}

	return &EarnReqMessageProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EarnTopic,
	}, nil
}

func (p *EarnReqMessageProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal earn message value: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish earn message",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish earn message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published earn message",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *EarnReqMessageProducer) Close() error {
	p.logger.Info("Closing earn request Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close earn kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
