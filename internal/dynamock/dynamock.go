// Package dynamock is a small in-memory stand-in for the DynamoDB API used in
// unit tests. It understands only the expression shapes the stores actually
// issue: attribute_not_exists guards, equality conditions joined with AND,
// SET updates (including the if_not_exists counter idiom), and single-equality
// Query key conditions. It is intentionally minimal and not production-grade.
package dynamock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DB is a concurrency-safe fake over named tables.
type DB struct {
	mu     sync.Mutex
	keys   map[string]string                                  // table -> pk attribute
	tables map[string]map[string]map[string]types.AttributeValue // table -> pk value -> item

	PutCalls    int
	GetCalls    int
	UpdateCalls int
	QueryCalls  int
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		keys:   map[string]string{},
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

// AddTable registers a table with its partition-key attribute name.
func (m *DB) AddTable(name, pkAttr string) *DB {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[name] = pkAttr
	m.tables[name] = map[string]map[string]types.AttributeValue{}
	return m
}

// Seed inserts an item without any condition checking.
func (m *DB) Seed(table string, item map[string]types.AttributeValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := m.pkOf(table, item)
	m.tables[table][pk] = item
}

// Item returns the raw stored item, or nil.
func (m *DB) Item(table, pk string) map[string]types.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[table][pk]
}

// Len reports how many items a table holds.
func (m *DB) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *DB) pkOf(table string, item map[string]types.AttributeValue) string {
	attr := m.keys[table]
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		panic(fmt.Sprintf("dynamock: item in %s missing string pk %s", table, attr))
	}
	return v.Value
}

// PutItem implements awsx.DynamoDBAPI.
func (m *DB) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++

	table := *params.TableName
	if _, ok := m.tables[table]; !ok {
		return nil, fmt.Errorf("dynamock: unknown table %s", table)
	}
	pk := m.pkOf(table, params.Item)

	if params.ConditionExpression != nil {
		expr := *params.ConditionExpression
		if strings.HasPrefix(expr, "attribute_not_exists(") {
			if _, exists := m.tables[table][pk]; exists {
				return nil, &types.ConditionalCheckFailedException{Message: strPtr("conditional request failed")}
			}
		} else {
			return nil, fmt.Errorf("dynamock: unsupported put condition %q", expr)
		}
	}

	m.tables[table][pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

// GetItem implements awsx.DynamoDBAPI.
func (m *DB) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++

	table := *params.TableName
	attr := m.keys[table]
	kv, ok := params.Key[attr].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("dynamock: get on %s without string key %s", table, attr)
	}
	item, ok := m.tables[table][kv.Value]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

// UpdateItem implements awsx.DynamoDBAPI. Supported expression grammar:
//
//	SET path = :val, path2 = :val2
//	SET counter = if_not_exists(counter, :zero) + :inc
//
// with an optional ConditionExpression of "cond AND cond..." where each cond
// is "path = :val" or "attribute_not_exists(path)".
func (m *DB) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++

	table := *params.TableName
	attr := m.keys[table]
	kv, ok := params.Key[attr].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("dynamock: update on %s without string key %s", table, attr)
	}
	item, exists := m.tables[table][kv.Value]
	if !exists {
		item = map[string]types.AttributeValue{attr: kv}
	}

	resolve := func(name string) string {
		if strings.HasPrefix(name, "#") {
			if real, ok := params.ExpressionAttributeNames[name]; ok {
				return real
			}
		}
		return name
	}

	if params.ConditionExpression != nil {
		for _, cond := range strings.Split(*params.ConditionExpression, " AND ") {
			cond = strings.TrimSpace(cond)
			if strings.HasPrefix(cond, "attribute_not_exists(") {
				name := resolve(strings.TrimSuffix(strings.TrimPrefix(cond, "attribute_not_exists("), ")"))
				if _, has := item[name]; has && exists {
					return nil, &types.ConditionalCheckFailedException{Message: strPtr("conditional request failed")}
				}
				continue
			}
			parts := strings.SplitN(cond, " = ", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("dynamock: unsupported condition %q", cond)
			}
			name := resolve(strings.TrimSpace(parts[0]))
			want := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
			if !exists || !attrEqual(item[name], want) {
				return nil, &types.ConditionalCheckFailedException{Message: strPtr("conditional request failed")}
			}
		}
	}

	expr := strings.TrimSpace(*params.UpdateExpression)
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("dynamock: unsupported update expression %q", expr)
	}
	for _, clause := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		clause = strings.TrimSpace(clause)
		parts := strings.SplitN(clause, " = ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("dynamock: unsupported set clause %q", clause)
		}
		name := resolve(strings.TrimSpace(parts[0]))
		rhs := strings.TrimSpace(parts[1])

		if strings.HasPrefix(rhs, "if_not_exists(") {
			// if_not_exists(counter, :zero) + :inc
			inner := strings.TrimPrefix(rhs, "if_not_exists(")
			closing := strings.Index(inner, ")")
			args := strings.SplitN(inner[:closing], ",", 2)
			fallback := params.ExpressionAttributeValues[strings.TrimSpace(args[1])]
			current, has := item[resolve(strings.TrimSpace(args[0]))]
			if !has {
				current = fallback
			}
			rest := strings.TrimSpace(inner[closing+1:])
			if strings.HasPrefix(rest, "+ ") {
				inc := params.ExpressionAttributeValues[strings.TrimSpace(strings.TrimPrefix(rest, "+ "))]
				item[name] = addN(current, inc)
			} else {
				item[name] = current
			}
			continue
		}

		item[name] = params.ExpressionAttributeValues[rhs]
	}

	m.tables[table][kv.Value] = item
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

// Query implements awsx.DynamoDBAPI for single-equality key conditions. Items
// are matched across the whole table (indexes are not modeled separately),
// ordered by their created_at attribute when present, ascending unless
// ScanIndexForward is false.
func (m *DB) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++

	table := *params.TableName
	expr := strings.TrimSpace(*params.KeyConditionExpression)
	parts := strings.SplitN(expr, " = ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("dynamock: unsupported key condition %q", expr)
	}
	name := strings.TrimSpace(parts[0])
	if strings.HasPrefix(name, "#") {
		name = params.ExpressionAttributeNames[name]
	}
	want := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]

	var items []map[string]types.AttributeValue
	for _, item := range m.tables[table] {
		if attrEqual(item[name], want) {
			items = append(items, copyItem(item))
		}
	}

	sort.Slice(items, func(i, j int) bool {
		a, _ := items[i]["created_at"].(*types.AttributeValueMemberS)
		b, _ := items[j]["created_at"].(*types.AttributeValueMemberS)
		if a == nil || b == nil {
			return i < j
		}
		return a.Value < b.Value
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	if params.Limit != nil && len(items) > int(*params.Limit) {
		items = items[:int(*params.Limit)]
	}

	return &dyn.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case nil:
		return b == nil
	}
	return false
}

func addN(a, b types.AttributeValue) types.AttributeValue {
	av, aok := a.(*types.AttributeValueMemberN)
	bv, bok := b.(*types.AttributeValueMemberN)
	if !aok || !bok {
		return a
	}
	var x, y int64
	fmt.Sscan(av.Value, &x)
	fmt.Sscan(bv.Value, &y)
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", x+y)}
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
