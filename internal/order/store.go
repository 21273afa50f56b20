package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/andriansah/go-qris-payflow/internal/awsx"
)

const (
	uniqueAmountIndex = "unique_amount-index"
	statusIndex       = "status-index"
)

// ErrStatusMismatch indicates a conditional status transition was refused by
// the table: the record is no longer in the expected state.
var ErrStatusMismatch = errors.New("order: status mismatch/conditional failed")

// Store encapsulates operations on the orders table.
type Store struct {
	client    awsx.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client awsx.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create persists a new order. The condition guards against order-id reuse.
func (s *Store) Create(ctx context.Context, o *Order) error {
	now := s.nowFunc()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("order %s already exists: %w", o.OrderID, ErrStatusMismatch)
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetByUniqueAmount looks up the newest order expecting the given wire amount.
// Returns (nil, nil) if none matches.
func (s *Store) GetByUniqueAmount(ctx context.Context, amount int64) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(uniqueAmountIndex),
		KeyConditionExpression:    awsString("#ua = :ua"),
		ExpressionAttributeNames:  map[string]string{"#ua": "unique_amount"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":ua": &types.AttributeValueMemberN{Value: strconv.FormatInt(amount, 10)}},
		ScanIndexForward:          awsBool(false),
		Limit:                     awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query by unique amount: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// AcquireLock performs the guard for the paid transition: a single conditional
// write that flips locked from false to true, only while the order is still
// pending. Returns acquired=false when another attempt holds the lock or the
// order left the pending state; that is routine contention, not an error.
func (s *Store) AcquireLock(ctx context.Context, orderID, owner string) (bool, error) {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET locked = :t, locked_at = :la, locked_by = :lb, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":       &types.AttributeValueMemberBOOL{Value: true},
			":f":       &types.AttributeValueMemberBOOL{Value: false},
			":la":      &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":lb":      &types.AttributeValueMemberS{Value: owner},
			":ua":      &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":pending": &types.AttributeValueMemberS{Value: StatusPending},
		},
		ConditionExpression: awsString("locked = :f AND #s = :pending"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return true, nil
}

// ReleaseLock clears the lock if this owner still holds it. A conditional
// failure means someone else owns it now and is swallowed: release must be
// safe on every exit path.
func (s *Store) ReleaseLock(ctx context.Context, orderID, owner string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET locked = :f, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":f":     &types.AttributeValueMemberBOOL{Value: false},
			":ua":    &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
		ConditionExpression: awsString("locked_by = :owner"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// MarkPaid finalizes the order: status paid, credential bound, lock dropped,
// all in one conditional write that only succeeds while this owner holds the
// lock on a still-pending record.
func (s *Store) MarkPaid(ctx context.Context, orderID, owner, credentialID, transactionRef string, paidAt time.Time) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :paid, paid_at = :pa, credential_id = :cid, transaction_ref = :tr, locked = :f, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":paid":    &types.AttributeValueMemberS{Value: StatusPaid},
			":pending": &types.AttributeValueMemberS{Value: StatusPending},
			":pa":      &types.AttributeValueMemberS{Value: paidAt.Format(time.RFC3339)},
			":cid":     &types.AttributeValueMemberS{Value: credentialID},
			":tr":      &types.AttributeValueMemberS{Value: transactionRef},
			":f":       &types.AttributeValueMemberBOOL{Value: false},
			":ua":      &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":owner":   &types.AttributeValueMemberS{Value: owner},
		},
		ConditionExpression: awsString("#s = :pending AND locked_by = :owner"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("mark paid: %w", err)
	}
	return nil
}

// UpdateStatus conditionally moves the order from expected to newStatus.
// Returns ErrStatusMismatch if the record is no longer in expected.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expected, newStatus string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":expected": &types.AttributeValueMemberS{Value: expected},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("#s = :expected"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the reconciliation-attempt counter.
func (s *Store) IncrementAttempts(ctx context.Context, orderID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET attempts = if_not_exists(attempts, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// ListPending returns pending orders, oldest first. The sweeper decides which
// are due for expiry versus another reconciliation pass.
func (s *Store) ListPending(ctx context.Context) ([]Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(statusIndex),
		KeyConditionExpression:    awsString("#s = :pending"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":pending": &types.AttributeValueMemberS{Value: StatusPending}},
	})
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	orders := make([]Order, 0, len(out.Items))
	for _, item := range out.Items {
		var o Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }

func awsInt32(i int32) *int32 { return &i }
