package voucher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/andriansah/go-qris-payflow/internal/awsx"
)

// Store encapsulates operations on the vouchers table.
type Store struct {
	client    awsx.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new vouchers Store.
func NewStore(client awsx.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Normalize canonicalizes user-entered codes: trimmed, uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Get fetches a voucher by code. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, code string) (*Voucher, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"code": &types.AttributeValueMemberS{Value: Normalize(code)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var v Voucher
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal voucher: %w", err)
	}
	return &v, nil
}

// Put stores a voucher unconditionally. Used by admin tooling and tests.
func (s *Store) Put(ctx context.Context, v *Voucher) error {
	now := s.nowFunc()
	v.Code = Normalize(v.Code)
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal voucher: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// IncrementUsed bumps used_count by one. Called exactly once per successful
// application; no other voucher field is ever edited by the core.
func (s *Store) IncrementUsed(ctx context.Context, code string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"code": &types.AttributeValueMemberS{Value: Normalize(code)},
		},
		UpdateExpression: awsString("SET used_count = if_not_exists(used_count, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("increment used: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
