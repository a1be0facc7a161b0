package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore persists leads to a DynamoDB table keyed by leadId. Follow-up
// diagnostics are kept as a list attribute since expressions cannot
// concatenate strings.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
}

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string) *DynamoStore {
	if client == nil {
		panic("leads: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("leads: table name cannot be empty")
	}
	return &DynamoStore{client: client, tableName: tableName}
}

var _ Store = (*DynamoStore)(nil)

// Append writes the record, refusing to overwrite an existing ID.
func (s *DynamoStore) Append(ctx context.Context, rec *Record) (AppendResult, error) {
	if rec == nil || rec.ID == "" {
		return AppendResult{}, fmt.Errorf("%w: record id required", ErrPersistence)
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return AppendResult{}, fmt.Errorf("%w: marshal: %v", ErrPersistence, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(leadId)"),
	})
	if err != nil {
		return AppendResult{}, fmt.Errorf("%w: put item: %v", ErrPersistence, err)
	}
	return AppendResult{LeadID: rec.ID}, nil
}

// AppendNotes pushes notes onto the diagnostics list of an existing lead.
func (s *DynamoStore) AppendNotes(ctx context.Context, leadID, notes string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"leadId": &types.AttributeValueMemberS{Value: leadID},
		},
		UpdateExpression:    aws.String("SET diagnostics = list_append(if_not_exists(diagnostics, :empty), :notes)"),
		ConditionExpression: aws.String("attribute_exists(leadId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":notes": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: notes},
			}},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrLeadNotFound
		}
		return fmt.Errorf("leads: append notes: %w", err)
	}
	return nil
}
