package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/infrastructure/store"
)

// Header names carried by change messages so consumers can route without
// decoding the body.
const (
	HeaderCollection = "collection"
	HeaderOp         = "op"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes store changes to the change topic. It satisfies
// store.Publisher.
type Producer struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
}

// NewProducer writes to topic with hash balancing on the message key, so all
// changes of one record land on one partition in order.
func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return newProducer(writer, topic, log)
}

func newProducer(w messageWriter, topic string, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{
		writer: w,
		topic:  topic,
		log:    log.Named("kafka-producer").With(zap.String("topic", topic)),
	}
}

func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change %s: %w", key, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if c, ok := changeOf(event); ok {
		msg.Headers = []kafka.Header{
			{Key: HeaderCollection, Value: []byte(c.Collection)},
			{Key: HeaderOp, Value: []byte(c.Op)},
		}
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish change %s to %s: %w", key, p.topic, err)
	}
	p.log.Debug("published change", zap.String("key", key))
	return nil
}

func changeOf(event any) (store.Change, bool) {
	switch c := event.(type) {
	case store.Change:
		return c, true
	case *store.Change:
		if c != nil {
			return *c, true
		}
	}
	return store.Change{}, false
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
