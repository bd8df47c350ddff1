// Package stream copies audit events onto a Kafka topic for downstream consumers.
// The ledger stays the record of truth; the stream is best-effort.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"vaultid/internal/audit"
	"vaultid/pkg/requestcontext"
)

// ErrCircuitOpen is returned while publishing is suspended after repeated failures.
var ErrCircuitOpen = errors.New("audit stream circuit open")

const (
	headerEventType = "event_type"
	headerCategory  = "category"
	headerRequestID = "request_id"
)

// Producer is the part of *kgo.Client the publisher needs. TryProduce buffers
// the record and reports delivery through promise; it fails fast with
// kgo.ErrMaxBuffered instead of blocking when the buffer is full.
type Producer interface {
	TryProduce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

type Metrics struct {
	Published prometheus.Counter
	Failed    prometheus.Counter
	Skipped   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultid_audit_stream_published_total",
			Help: "Audit events written to the stream",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultid_audit_stream_failed_total",
			Help: "Audit events the brokers rejected",
		}),
		Skipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultid_audit_stream_skipped_total",
			Help: "Audit events dropped while the circuit was open",
		}),
	}
}

type Publisher struct {
	producer Producer
	topic    string
	breaker  *breaker
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*publisherConfig)

type publisherConfig struct {
	logger    *slog.Logger
	metrics   *Metrics
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *publisherConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *publisherConfig) {
		c.metrics = m
	}
}

// WithCircuit sets how many consecutive failures suspend publishing and for how long.
func WithCircuit(threshold int, cooldown time.Duration) Option {
	return func(c *publisherConfig) {
		c.threshold = threshold
		c.cooldown = cooldown
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *publisherConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient connects a franz-go client that produces to topic by default.
func NewClient(brokers []string, topic string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProduceRequestTimeout(5*time.Second),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

func New(producer Producer, topic string, opts ...Option) (*Publisher, error) {
	if producer == nil {
		return nil, errors.New("producer is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	cfg := publisherConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		breaker:  newBreaker(cfg.threshold, cfg.cooldown, cfg.now),
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}, nil
}

// message is the wire form: the stored event plus where the ledger put it.
type message struct {
	audit.Event
	LedgerReference string `json:"ledger_reference"`
}

// Publish enqueues e keyed by its subject, so one identity's events stay
// ordered within a partition. It does not wait for the brokers: delivery
// failures are counted and feed the circuit breaker asynchronously.
func (p *Publisher) Publish(ctx context.Context, e audit.Event) error {
	if !p.breaker.allow() {
		if p.metrics != nil {
			p.metrics.Skipped.Inc()
		}
		return ErrCircuitOpen
	}

	value, err := json.Marshal(message{Event: e, LedgerReference: e.LedgerReference})
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(e.Subject()),
		Value:     value,
		Timestamp: e.Timestamp,
		Headers: []kgo.RecordHeader{
			{Key: headerEventType, Value: []byte(e.Type)},
			{Key: headerCategory, Value: []byte(e.Type.Category())},
		},
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: headerRequestID, Value: []byte(requestID)})
	}

	// Delivery outlives the request that triggered it.
	produceCtx := context.WithoutCancel(ctx)
	p.producer.TryProduce(produceCtx, record, func(_ *kgo.Record, err error) {
		p.delivered(produceCtx, err)
	})
	return nil
}

// delivered runs once the brokers acknowledge or reject a record.
func (p *Publisher) delivered(ctx context.Context, err error) {
	if err != nil {
		if p.metrics != nil {
			p.metrics.Failed.Inc()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit stream delivery failed", "topic", p.topic, "error", err)
		}
		if p.breaker.failure() && p.logger != nil {
			p.logger.WarnContext(ctx, "audit stream circuit opened", "topic", p.topic, "error", err)
		}
		return
	}
	p.breaker.success()
	if p.metrics != nil {
		p.metrics.Published.Inc()
	}
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string, partitions int32, replicationFactor int16) error {
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}
