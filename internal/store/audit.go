package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
)

const performedByIndexName = "performedByIndex"

// AuditStore appends to and reads the append-only audit log. Entries are
// never updated or deleted.
type AuditStore interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context) ([]domain.AuditEntry, error)
	QueryByActor(ctx context.Context, performedBy, startISO, endISO string) ([]domain.AuditEntry, error)
}

type auditStore struct {
	client      DynamoAPI
	resolver    TableResolver
	logicalName string
	logger      *zap.Logger
}

// NewAuditStore returns a DynamoDB-backed implementation.
func NewAuditStore(client DynamoAPI, resolver TableResolver, logicalName string, logger *zap.Logger) AuditStore {
	return &auditStore{client: client, resolver: resolver, logicalName: logicalName, logger: logger}
}

func (s *auditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		return err
	}

	entry.StripNilDetails()
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry %s: %w", entry.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("append audit entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *auditStore) List(ctx context.Context) ([]domain.AuditEntry, error) {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		if isTableMissing(err) {
			s.logger.Warn("audit log table missing, returning empty list", zap.Error(err))
			return []domain.AuditEntry{}, nil
		}
		return nil, err
	}

	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String(table)})
	if err != nil {
		if isTableMissing(err) {
			s.logger.Warn("audit log table missing, returning empty list", zap.Error(err))
			return []domain.AuditEntry{}, nil
		}
		return nil, fmt.Errorf("scan audit log: %w", err)
	}

	entries := make([]domain.AuditEntry, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal audit entries: %w", err)
	}
	return entries, nil
}

// QueryByActor reads entries for one actor between two ISO timestamps via the
// performedBy secondary index.
func (s *auditStore) QueryByActor(ctx context.Context, performedBy, startISO, endISO string) ([]domain.AuditEntry, error) {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		if isTableMissing(err) {
			return []domain.AuditEntry{}, nil
		}
		return nil, err
	}

	keyCond := expression.Key("performedBy").Equal(expression.Value(performedBy)).
		And(expression.Key("timestamp").Between(expression.Value(startISO), expression.Value(endISO)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build audit query expression: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(performedByIndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isTableMissing(err) {
			return []domain.AuditEntry{}, nil
		}
		return nil, fmt.Errorf("query audit log: %w", err)
	}

	entries := make([]domain.AuditEntry, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal audit entries: %w", err)
	}
	return entries, nil
}
