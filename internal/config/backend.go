package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/infrastructure/store"
)

// OpenStore connects the configured backend. The postgres schema is created
// when missing.
func (c *Config) OpenStore(ctx context.Context, publisher store.Publisher, log *zap.Logger) (store.Store, error) {
	log = log.Named("store")

	switch c.StoreBackend {
	case BackendMemory:
		log.Warn("using in-memory store, data is lost on exit")
		return store.NewMemoryStore(publisher, log), nil

	case BackendPostgres:
		db, err := store.ConnectPostgres(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info("connected to postgres")
		return store.NewPostgresStore(db, publisher, log), nil

	case BackendDynamoDB:
		client, err := c.dynamoClient(ctx)
		if err != nil {
			return nil, err
		}
		log.Info("using dynamodb", zap.String("table", c.DynamoDBTable), zap.String("region", c.AWSRegion))
		return store.NewDynamoStore(client, c.DynamoDBTable, publisher, log), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
}

func (c *Config) dynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if c.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(c.DynamoDBEndpoint)
		}
	}), nil
}
