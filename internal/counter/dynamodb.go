package counter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBCounter.
type DynamoDBAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

var _ Counter = (*DynamoDBCounter)(nil)

// DynamoDBCounter increments a numeric attribute with an ADD update expression.
// ADD creates the item and treats the attribute as 0 when either is missing.
type DynamoDBCounter struct {
	client    DynamoDBAPI
	table     string
	keyAttr   string
	id        string
	valueAttr string
	logger    *zap.SugaredLogger
}

type DynamoDBOption func(c *DynamoDBCounter)

// WithDynamoDBLogger enables debug logging of the raw UpdateItem attributes.
func WithDynamoDBLogger(logger *zap.SugaredLogger) DynamoDBOption {
	return DynamoDBOption(func(c *DynamoDBCounter) {
		c.logger = logger
	})
}

func NewDynamoDBCounter(client DynamoDBAPI, table, keyAttr, id, valueAttr string, opts ...DynamoDBOption) *DynamoDBCounter {
	c := &DynamoDBCounter{
		client:    client,
		table:     table,
		keyAttr:   keyAttr,
		id:        id,
		valueAttr: valueAttr,
		logger:    zap.NewNop().Sugar(),
	}
	for _, e := range opts {
		e(c)
	}
	return c
}

func (c *DynamoDBCounter) Up(ctx context.Context) (int64, error) {
	out, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			c.keyAttr: &types.AttributeValueMemberS{Value: c.id},
		},
		UpdateExpression: aws.String("ADD #v :inc"),
		ExpressionAttributeNames: map[string]string{
			"#v": c.valueAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("UpdateItem: table=%s, %w", c.table, err)
	}

	c.logger.With(zap.Any("attributes", out.Attributes)).Debugf("dynamodb response")

	av, ok := out.Attributes[c.valueAttr]
	if !ok {
		return 0, fmt.Errorf("%w: attribute %s missing", ErrMalformedResponse, c.valueAttr)
	}

	var n int64
	if err := attributevalue.Unmarshal(av, &n); err != nil {
		return 0, fmt.Errorf("%w: attribute %s: %v", ErrMalformedResponse, c.valueAttr, err)
	}
	return n, nil
}
