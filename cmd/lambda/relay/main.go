package main

import (
	"context"
	"errors"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/config"
	"github.com/example/sales-desk/internal/infrastructure/kafka"
	"github.com/example/sales-desk/internal/infrastructure/kinesis"
	"github.com/example/sales-desk/internal/infrastructure/store"
)

// relay forwards documents-table stream records to the change topic.
type relay struct {
	publisher store.Publisher
	log       *zap.Logger
}

func newRelay() (*relay, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !cfg.KafkaEnabled() {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	r := &relay{
		publisher: kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger),
		log:       logger.Named("relay"),
	}
	r.log.Info("initialized", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	return r, nil
}

// handle reports records it could not forward as batch item failures so
// Lambda retries only those.
func (r *relay) handle(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	var batchItemFailures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord) {
		batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}

	for _, record := range kinesisEvent.Records {
		change, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			r.log.Error("failed to convert record", zap.String("event_id", record.EventID), zap.Error(err))
			fail(record)
			continue
		}
		if change == nil {
			continue
		}

		key := change.Collection + "/" + change.ID
		if err := r.publisher.Publish(ctx, key, change); err != nil {
			r.log.Error("failed to publish change", zap.String("key", key), zap.Error(err))
			fail(record)
			continue
		}
		r.log.Debug("forwarded change", zap.String("key", key), zap.String("op", string(change.Op)))
	}

	r.log.Info("batch processed",
		zap.Int("records", len(kinesisEvent.Records)),
		zap.Int("failed", len(batchItemFailures)))

	return events.KinesisEventResponse{BatchItemFailures: batchItemFailures}, nil
}

func main() {
	r, err := newRelay()
	if err != nil {
		log.Fatalf("[Lambda Relay] Failed to initialize: %v", err)
	}
	lambda.Start(r.handle)
}
