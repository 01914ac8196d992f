package session

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tailored-agentic-units/flora/core/protocol"
)

const (
	// DefaultDynamoTable is the table used when none is configured.
	DefaultDynamoTable = "FloraAgentChatHistory"

	dynamoKey     = "SessionId"
	dynamoHistory = "History"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore keeps one item per session, keyed by SessionId, with the
// transcript in a History list. Appends use list_append in a single
// UpdateItem so concurrent writers never lose turns.
type DynamoStore struct {
	api   DynamoAPI
	table string
}

// NewDynamoStore creates a store over api and table.
func NewDynamoStore(api DynamoAPI, table string) *DynamoStore {
	if table == "" {
		table = DefaultDynamoTable
	}
	return &DynamoStore{api: api, table: table}
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		dynamoKey: &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoStore) Messages(ctx context.Context, id string) ([]protocol.Message, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	if len(out.Item) == 0 {
		return []protocol.Message{}, nil
	}

	var item struct {
		History []record `dynamodbav:"History"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("%w: %s: decode item: %v", ErrStoreFailed, id, err)
	}
	return fromRecords(item.History), nil
}

func (s *DynamoStore) Append(ctx context.Context, id string, msgs ...protocol.Message) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(msgs) == 0 {
		return nil
	}

	turns, err := attributevalue.MarshalList(toRecords(msgs))
	if err != nil {
		return fmt.Errorf("%w: %s: encode turns: %v", ErrStoreFailed, id, err)
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              s.key(id),
		UpdateExpression: aws.String("SET #h = list_append(if_not_exists(#h, :empty), :turns)"),
		ExpressionAttributeNames: map[string]string{
			"#h": dynamoHistory,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":turns": &types.AttributeValueMemberL{Value: turns},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	return nil
}
