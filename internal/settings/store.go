// Package settings reads runtime key/value configuration (prices and such)
// maintained by the admin panel.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/andriansah/go-qris-payflow/internal/awsx"
)

// BasePriceKey is the settings entry holding the current sale price.
const BasePriceKey = "base_price"

type setting struct {
	Key   string `dynamodbav:"key"`
	Value string `dynamodbav:"value"`
}

// Store encapsulates reads of the settings table.
type Store struct {
	client    awsx.DynamoDBAPI
	tableName string
}

// NewStore creates a new settings Store.
func NewStore(client awsx.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Get returns the value for key, or def when absent.
func (s *Store) Get(ctx context.Context, key, def string) (string, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return def, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return def, nil
	}
	var rec setting
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return def, fmt.Errorf("unmarshal setting: %w", err)
	}
	return rec.Value, nil
}

// GetInt64 returns the integer value for key, or def when absent or malformed.
func (s *Store) GetInt64(ctx context.Context, key string, def int64) (int64, error) {
	raw, err := s.Get(ctx, key, "")
	if err != nil {
		return def, err
	}
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def, nil
	}
	return n, nil
}

// Put stores a setting. Used by admin tooling and tests.
func (s *Store) Put(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(setting{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("marshal setting: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}
