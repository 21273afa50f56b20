package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/andriansah/go-qris-payflow/internal/awsx"
)

const statusCreatedIndex = "status-created_at-index"

// claimBatch bounds how many candidates one claim attempt inspects before
// giving up; under contention losers retry on the next reconciliation pass.
const claimBatch = 5

// ErrNoneAvailable reports an empty pool. This is a stock-out condition for
// the operator, not a bug: the order stays pending and retryable.
var ErrNoneAvailable = errors.New("credential: none available")

// Store encapsulates operations on the credentials table.
type Store struct {
	client    awsx.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new credentials Store.
func NewStore(client awsx.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Get fetches a credential by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, credentialID string) (*Credential, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"credential_id": &types.AttributeValueMemberS{Value: credentialID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c Credential
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal credential: %w", err)
	}
	return &c, nil
}

// Put stores a credential unconditionally. Used by restock tooling and tests.
func (s *Store) Put(ctx context.Context, c *Credential) error {
	now := s.nowFunc()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// ClaimOldestAvailable atomically takes the oldest available credential for an
// order: it queries FIFO by creation time, then flips status available->used
// with a single conditional write per candidate. Two coordinators racing for
// the same record cannot both win; the loser moves to the next candidate.
// Returns ErrNoneAvailable when the pool is empty or fully contended.
func (s *Store) ClaimOldestAvailable(ctx context.Context, orderID, usedBy string) (*Credential, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(statusCreatedIndex),
		KeyConditionExpression:    awsString("#s = :avail"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":avail": &types.AttributeValueMemberS{Value: StatusAvailable}},
		ScanIndexForward:          awsBool(true),
		Limit:                     awsInt32(claimBatch),
	})
	if err != nil {
		return nil, fmt.Errorf("query available: %w", err)
	}

	now := s.nowFunc()
	for _, item := range out.Items {
		var c Credential
		if err := attributevalue.UnmarshalMap(item, &c); err != nil {
			return nil, fmt.Errorf("unmarshal credential: %w", err)
		}

		_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName: &s.tableName,
			Key: map[string]types.AttributeValue{
				"credential_id": &types.AttributeValueMemberS{Value: c.CredentialID},
			},
			UpdateExpression:         awsString("SET #s = :used, used_by = :ub, used_at = :ut, order_id = :oid, updated_at = :ua"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":used":  &types.AttributeValueMemberS{Value: StatusUsed},
				":avail": &types.AttributeValueMemberS{Value: StatusAvailable},
				":ub":    &types.AttributeValueMemberS{Value: usedBy},
				":ut":    &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
				":oid":   &types.AttributeValueMemberS{Value: orderID},
				":ua":    &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			},
			ConditionExpression: awsString("#s = :avail"),
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				// lost the race for this one, try the next candidate
				continue
			}
			return nil, fmt.Errorf("claim credential: %w", err)
		}

		c.Status = StatusUsed
		c.UsedBy = usedBy
		c.UsedAt = now
		c.OrderID = orderID
		return &c, nil
	}

	return nil, ErrNoneAvailable
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }

func awsInt32(i int32) *int32 { return &i }
