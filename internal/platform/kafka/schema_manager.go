package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"

	"github.com/hamba/avro/v2"
	"github.com/riferrei/srclient"
	kafkago "github.com/segmentio/kafka-go"
)

// SchemaInfo is a registered schema version.
type SchemaInfo struct {
	ID      int
	Version int
	Schema  string
}

// Registry is the subset of the Schema Registry API the manager uses.
type Registry interface {
	Subjects() ([]string, error)
	Latest(subject string) (SchemaInfo, error)
	Versions(subject string) ([]int, error)
	Register(subject, schema string) (SchemaInfo, error)
}

// TopicAdmin creates topics.
type TopicAdmin interface {
	CreateTopic(ctx context.Context, topic string, partitions, replication int) error
}

// SchemaManager owns topic setup and Avro schema registration.
type SchemaManager struct {
	admin    TopicAdmin
	registry Registry
	logger   *slog.Logger
}

// NewSchemaManager wires the manager; a nil logger discards output.
func NewSchemaManager(admin TopicAdmin, registry Registry, logger *slog.Logger) (*SchemaManager, error) {
	if admin == nil {
		return nil, errors.New("kafka topic admin is nil")
	}
	if registry == nil {
		return nil, errors.New("schema registry client is nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SchemaManager{admin: admin, registry: registry, logger: logger}, nil
}

// CreateTopicIfNotExists succeeds when the topic is already there.
func (m *SchemaManager) CreateTopicIfNotExists(ctx context.Context, topic string, partitions, replication int) error {
	err := m.admin.CreateTopic(ctx, topic, partitions, replication)
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "topic ready",
		slog.String("topic", topic), slog.Int("partitions", partitions))
	return nil
}

// RegisterSchema validates the Avro schema locally before registering it.
func (m *SchemaManager) RegisterSchema(ctx context.Context, subject, schema string) (int, error) {
	if _, err := avro.Parse(schema); err != nil {
		return 0, fmt.Errorf("invalid avro schema for %s: %w", subject, err)
	}
	info, err := m.registry.Register(subject, schema)
	if err != nil {
		return 0, fmt.Errorf("register schema %s: %w", subject, err)
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "schema registered",
		slog.String("subject", subject), slog.Int("version", info.Version), slog.Int("schema.id", info.ID))
	return info.Version, nil
}

func (m *SchemaManager) LatestSchemaVersion(_ context.Context, subject string) (int, error) {
	info, err := m.registry.Latest(subject)
	if err != nil {
		return 0, fmt.Errorf("latest schema %s: %w", subject, err)
	}
	return info.Version, nil
}

func (m *SchemaManager) LatestSchema(_ context.Context, subject string) (SchemaInfo, error) {
	info, err := m.registry.Latest(subject)
	if err != nil {
		return SchemaInfo{}, fmt.Errorf("latest schema %s: %w", subject, err)
	}
	return info, nil
}

func (m *SchemaManager) Subjects(_ context.Context) ([]string, error) {
	return m.registry.Subjects()
}

func (m *SchemaManager) Versions(_ context.Context, subject string) ([]int, error) {
	return m.registry.Versions(subject)
}

// Logger is shared with changes that only report progress.
func (m *SchemaManager) Logger() *slog.Logger { return m.logger }

// SchemaRegistry adapts srclient to Registry.
type SchemaRegistry struct {
	client srclient.ISchemaRegistryClient
}

func NewSchemaRegistry(url string) *SchemaRegistry {
	return &SchemaRegistry{client: srclient.CreateSchemaRegistryClient(url)}
}

func (r *SchemaRegistry) Subjects() ([]string, error) {
	return r.client.GetSubjects()
}

func (r *SchemaRegistry) Latest(subject string) (SchemaInfo, error) {
	schema, err := r.client.GetLatestSchema(subject)
	if err != nil {
		return SchemaInfo{}, err
	}
	return SchemaInfo{ID: schema.ID(), Version: schema.Version(), Schema: schema.Schema()}, nil
}

func (r *SchemaRegistry) Versions(subject string) ([]int, error) {
	return r.client.GetSchemaVersions(subject)
}

func (r *SchemaRegistry) Register(subject, schema string) (SchemaInfo, error) {
	created, err := r.client.CreateSchema(subject, schema, srclient.Avro)
	if err != nil {
		return SchemaInfo{}, err
	}
	return SchemaInfo{ID: created.ID(), Version: created.Version(), Schema: created.Schema()}, nil
}

// BrokerAdmin creates topics through the cluster controller, reached via the
// first bootstrap broker that accepts a connection.
type BrokerAdmin struct {
	brokers []string
	dial    func(ctx context.Context, network, address string) (*kafkago.Conn, error)
}

func NewBrokerAdmin(brokers ...string) *BrokerAdmin {
	return &BrokerAdmin{brokers: brokers, dial: kafkago.DialContext}
}

func (a *BrokerAdmin) CreateTopic(ctx context.Context, topic string, partitions, replication int) error {
	conn, err := a.dialAny(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	ctrl, err := a.dial(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer ctrl.Close()
	return ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	})
}

func (a *BrokerAdmin) dialAny(ctx context.Context) (*kafkago.Conn, error) {
	if len(a.brokers) == 0 {
		return nil, errors.New("no kafka bootstrap servers configured")
	}
	var errs []error
	for _, broker := range a.brokers {
		conn, err := a.dial(ctx, "tcp", broker)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, fmt.Errorf("dial %s: %w", broker, err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

var (
	_ Registry   = (*SchemaRegistry)(nil)
	_ TopicAdmin = (*BrokerAdmin)(nil)
)
