package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
)

const statusIndexName = "status-index"

// StatusStore defines persistence access for user status records.
type StatusStore interface {
	Get(ctx context.Context, email string) (*domain.UserRecord, error)
	Put(ctx context.Context, record *domain.UserRecord) error
	Update(ctx context.Context, email string, fields map[string]any) error
	List(ctx context.Context, status *domain.Status) ([]domain.UserRecord, error)
}

type statusStore struct {
	client      DynamoAPI
	resolver    TableResolver
	logicalName string
	logger      *zap.Logger
}

// NewStatusStore returns a DynamoDB-backed implementation.
func NewStatusStore(client DynamoAPI, resolver TableResolver, logicalName string, logger *zap.Logger) StatusStore {
	return &statusStore{client: client, resolver: resolver, logicalName: logicalName, logger: logger}
}

// Get returns nil, nil when no record exists for the email.
func (s *statusStore) Get(ctx context.Context, email string) (*domain.UserRecord, error) {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       statusKey(email),
	})
	if err != nil {
		return nil, fmt.Errorf("get user record %s: %w", email, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var record domain.UserRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshal user record %s: %w", email, err)
	}
	return &record, nil
}

// Put upserts the full record.
func (s *statusStore) Put(ctx context.Context, record *domain.UserRecord) error {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal user record %s: %w", record.Email, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put user record %s: %w", record.Email, err)
	}
	return nil
}

// Update writes only the supplied fields. Nil values are skipped so an absent
// upstream value can never clobber a stored one; the record key and
// registrationDate are never part of the expression.
func (s *statusStore) Update(ctx context.Context, email string, fields map[string]any) error {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		return err
	}

	update := expression.UpdateBuilder{}
	wrote := false
	for name, value := range fields {
		if value == nil || name == "id" || name == "email" || name == "registrationDate" {
			continue
		}
		update = update.Set(expression.Name(name), expression.Value(value))
		wrote = true
	}
	if !wrote {
		return nil
	}
	update = update.Set(expression.Name("updatedAt"), expression.Value(time.Now().UTC().Format(time.RFC3339)))

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("build update expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       statusKey(email),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("update user record %s: %w", email, err)
	}
	return nil
}

// List queries the status index when a filter is given, scans otherwise. A
// missing table yields an empty result; the read path degrades, the write
// path does not.
func (s *statusStore) List(ctx context.Context, status *domain.Status) ([]domain.UserRecord, error) {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		if isTableMissing(err) {
			s.logger.Warn("user status table missing, returning empty list", zap.Error(err))
			return []domain.UserRecord{}, nil
		}
		return nil, err
	}

	var items []map[string]types.AttributeValue
	if status != nil {
		keyCond := expression.Key("status").Equal(expression.Value(string(*status)))
		expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
		if err != nil {
			return nil, fmt.Errorf("build query expression: %w", err)
		}
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(table),
			IndexName:                 aws.String(statusIndexName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			if isTableMissing(err) {
				s.logger.Warn("user status table missing, returning empty list", zap.Error(err))
				return []domain.UserRecord{}, nil
			}
			return nil, fmt.Errorf("query users by status: %w", err)
		}
		items = out.Items
	} else {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String(table)})
		if err != nil {
			if isTableMissing(err) {
				s.logger.Warn("user status table missing, returning empty list", zap.Error(err))
				return []domain.UserRecord{}, nil
			}
			return nil, fmt.Errorf("scan user records: %w", err)
		}
		items = out.Items
	}

	records := make([]domain.UserRecord, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("unmarshal user records: %w", err)
	}
	return records, nil
}

func statusKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: email},
	}
}
