package pkg

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrKafkaConfig = errors.New("kafka brokers and topic required")

// 决策事件的消息头
const (
	HeaderEventType = "event_type"
	HeaderOutboxID  = "outbox_id"
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration // outbox 逐条同步写，默认 10ms 避免攒批等待
}

// DecisionEvent 一条待发布的 outbox 事件
type DecisionEvent struct {
	OutboxID   uint64
	DecisionID uint64
	Type       string
	Payload    []byte
	At         time.Time
}

// DecisionProducer 发布决策事件，同一决策的事件落到同一分区
type DecisionProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewDecisionProducer(cfg KafkaConfig) (*DecisionProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, ErrKafkaConfig
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: batchTimeout,
		Async:        false,
	}
	return &DecisionProducer{writer: w, topic: cfg.Topic}, nil
}

func (p *DecisionProducer) Topic() string {
	return p.topic
}

func (p *DecisionProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Publish 同步写入，失败由 outbox 重试；消费方用 outbox_id 去重
func (p *DecisionProducer) Publish(ctx context.Context, ev DecisionEvent) error {
	return p.writer.WriteMessages(ctx, DecisionMessage(ev))
}

// DecisionMessage key 为决策 id，保证同一决策内有序
func DecisionMessage(ev DecisionEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(ev.DecisionID, 10)),
		Value: ev.Payload,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(ev.Type)},
			{Key: HeaderOutboxID, Value: []byte(strconv.FormatUint(ev.OutboxID, 10))},
		},
	}
}
