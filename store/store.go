package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store is the DynamoDB-backed Backend implementation.
type Store struct {
	client *dynamodb.Client
	config Config
}

// New creates a new Store instance.
func New(client *dynamodb.Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Put inserts or fully replaces the record at (PartitionKey, SortKey).
func (s *Store) Put(ctx context.Context, rec Record) error {
	item, err := recordToItem(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// GetByKey performs a point lookup, returning ErrNotFound when absent.
func (s *Store) GetByKey(ctx context.Context, partition, sort string) (*Record, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       itemKey(partition, sort),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	rec, err := itemToRecord(result.Item)
	if err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// QueryByPartition returns all records sharing a partition key. The optional
// equality filter is evaluated after retrieval, never pushed to an index.
func (s *Store) QueryByPartition(ctx context.Context, partition string, q Query) ([]Record, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "PK",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: partition},
		},
	}
	if q.Reverse {
		input.ScanIndexForward = aws.Bool(false)
	}

	var records []Record
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		for _, raw := range page.Items {
			rec, err := itemToRecord(raw)
			if err != nil {
				return nil, fmt.Errorf("unmarshal record: %w", err)
			}
			if !matches(*rec, q.Filter) {
				continue
			}
			records = append(records, *rec)
			if q.Limit > 0 && len(records) == q.Limit {
				return records, nil
			}
		}
	}

	return records, nil
}

// Delete removes the record at (partition, sort). Deleting a non-existent
// key is a no-op, not an error.
func (s *Store) Delete(ctx context.Context, partition, sort string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       itemKey(partition, sort),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func itemKey(partition, sort string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partition},
		"SK": &types.AttributeValueMemberS{Value: sort},
	}
}

// recordToItem flattens a Record into a DynamoDB item: PK, SK and the
// timestamps sit alongside the entity attributes at the top level.
func recordToItem(rec Record) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(rec.Attributes)
	if err != nil {
		return nil, err
	}
	if item == nil {
		item = map[string]types.AttributeValue{}
	}
	item["PK"] = &types.AttributeValueMemberS{Value: rec.PartitionKey}
	item["SK"] = &types.AttributeValueMemberS{Value: rec.SortKey}
	if rec.CreatedOn != "" {
		item["createdOn"] = &types.AttributeValueMemberS{Value: rec.CreatedOn}
	}
	if rec.UpdatedOn != "" {
		item["updatedOn"] = &types.AttributeValueMemberS{Value: rec.UpdatedOn}
	}
	return item, nil
}

// itemToRecord is the inverse of recordToItem.
func itemToRecord(item map[string]types.AttributeValue) (*Record, error) {
	attrs := map[string]any{}
	if err := attributevalue.UnmarshalMap(item, &attrs); err != nil {
		return nil, err
	}

	rec := &Record{Attributes: attrs}
	if v, ok := attrs["PK"].(string); ok {
		rec.PartitionKey = v
	}
	if v, ok := attrs["SK"].(string); ok {
		rec.SortKey = v
	}
	if v, ok := attrs["createdOn"].(string); ok {
		rec.CreatedOn = v
	}
	if v, ok := attrs["updatedOn"].(string); ok {
		rec.UpdatedOn = v
	}
	delete(attrs, "PK")
	delete(attrs, "SK")
	delete(attrs, "createdOn")
	delete(attrs, "updatedOn")

	return rec, nil
}
