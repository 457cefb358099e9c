package counter

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/tckz/visit-counter/internal/config"
	"go.uber.org/zap"
)

func nopClose() error { return nil }

// New builds the Counter selected by cfg.Backend. The returned func releases the store client.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (Counter, func() error, error) {
	switch cfg.Backend {
	case config.BackendDynamoDB:
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.DynamoDBRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("awsConfig.LoadDefaultConfig: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		c := NewDynamoDBCounter(client, cfg.DynamoDBTable, cfg.DynamoDBKeyAttr, cfg.CounterID, cfg.ValueAttr,
			WithDynamoDBLogger(logger.With(zap.String("table", cfg.DynamoDBTable))))
		return c, nopClose, nil

	case config.BackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        []string{cfg.RedisAddr},
			DialTimeout:  time.Second * 2,
			ReadTimeout:  time.Second * 2,
			WriteTimeout: time.Second * 2,
			PoolTimeout:  time.Second * 5,
		})
		return NewRedisCounter(client, cfg.RedisKey), client.Close, nil

	case config.BackendDatastore:
		client, err := datastore.NewClient(ctx, cfg.DatastoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("datastore.NewClient: %w", err)
		}
		c := NewDatastoreCounter(client, cfg.DatastoreKind, cfg.CounterID, cfg.DatastoreNamespace, cfg.ValueAttr)
		return c, client.Close, nil

	case config.BackendLocal:
		return &LocalCounter{}, nopClose, nil
	}

	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
