package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hamba/avro/v2"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/ports"
	platformkafka "github.com/Apurer/inventory-orders-service/internal/platform/kafka"
)

// Writer is the subset of *kafkago.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SchemaSource resolves the schema currently registered for a subject.
type SchemaSource interface {
	LatestSchema(ctx context.Context, subject string) (platformkafka.SchemaInfo, error)
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher writes OrderCreated events as Avro framed for the schema registry.
type Publisher struct {
	writer  Writer
	schemas SchemaSource
	topic   string
	subject string

	mu     sync.Mutex
	parsed map[int]avro.Schema
}

type Option func(*Publisher)

func WithTopic(topic, subject string) Option {
	return func(p *Publisher) {
		if topic != "" {
			p.topic = topic
		}
		if subject != "" {
			p.subject = subject
		}
	}
}

func NewPublisher(writer Writer, schemas SchemaSource, opts ...Option) (*Publisher, error) {
	if writer == nil {
		return nil, errors.New("kafka writer is required")
	}
	if schemas == nil {
		return nil, errors.New("schema source is required")
	}
	p := &Publisher{
		writer:  writer,
		schemas: schemas,
		topic:   platformkafka.OrderCreatedTopic,
		subject: platformkafka.OrderCreatedSubject,
		parsed:  map[int]avro.Schema{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// NewWriter builds a kafka-go writer for the given brokers.
func NewWriter(brokers []string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.LeastBytes{},
		AllowAutoTopicCreation: false,
		RequiredAcks:           kafkago.RequireAll,
	}
}

// PublishOrderCreated encodes the event with the latest registered schema
// and keys the message by order id.
func (p *Publisher) PublishOrderCreated(ctx context.Context, event domain.OrderCreated) error {
	info, err := p.schemas.LatestSchema(ctx, p.subject)
	if err != nil {
		return fmt.Errorf("resolve schema for %s: %w", p.subject, err)
	}
	schema, err := p.schema(info)
	if err != nil {
		return err
	}
	body, err := avro.Marshal(schema, event)
	if err != nil {
		return fmt.Errorf("encode OrderCreated: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: p.topic,
		Key:   []byte(event.OrderID),
		Value: platformkafka.EncodeWire(info.ID, body),
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) schema(info platformkafka.SchemaInfo) (avro.Schema, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.parsed[info.ID]; ok {
		return s, nil
	}
	s, err := avro.Parse(info.Schema)
	if err != nil {
		return nil, fmt.Errorf("parse schema %d: %w", info.ID, err)
	}
	p.parsed[info.ID] = s
	return s, nil
}
