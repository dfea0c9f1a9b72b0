package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
)

// SettingsStore defines persistence access for system settings.
type SettingsStore interface {
	Get(ctx context.Context, id string) (*domain.SystemSetting, error)
	List(ctx context.Context) ([]domain.SystemSetting, error)
	Put(ctx context.Context, setting *domain.SystemSetting) error
}

type settingsStore struct {
	client      DynamoAPI
	resolver    TableResolver
	logicalName string
	logger      *zap.Logger
}

// NewSettingsStore returns a DynamoDB-backed implementation.
func NewSettingsStore(client DynamoAPI, resolver TableResolver, logicalName string, logger *zap.Logger) SettingsStore {
	return &settingsStore{client: client, resolver: resolver, logicalName: logicalName, logger: logger}
}

func (s *settingsStore) Get(ctx context.Context, id string) (*domain.SystemSetting, error) {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var setting domain.SystemSetting
	if err := attributevalue.UnmarshalMap(out.Item, &setting); err != nil {
		return nil, fmt.Errorf("unmarshal setting %s: %w", id, err)
	}
	return &setting, nil
}

func (s *settingsStore) List(ctx context.Context) ([]domain.SystemSetting, error) {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		if isTableMissing(err) {
			s.logger.Warn("settings table missing, returning empty list", zap.Error(err))
			return []domain.SystemSetting{}, nil
		}
		return nil, err
	}

	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String(table)})
	if err != nil {
		if isTableMissing(err) {
			s.logger.Warn("settings table missing, returning empty list", zap.Error(err))
			return []domain.SystemSetting{}, nil
		}
		return nil, fmt.Errorf("scan settings: %w", err)
	}

	settings := make([]domain.SystemSetting, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return settings, nil
}

func (s *settingsStore) Put(ctx context.Context, setting *domain.SystemSetting) error {
	table, err := s.resolver.Resolve(ctx, s.logicalName)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(setting)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", setting.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put setting %s: %w", setting.ID, err)
	}
	return nil
}
