package locator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/pkg/util"
)

// ParameterAPI is the slice of the SSM client the locator uses.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// TableAPI is the slice of the DynamoDB client the locator's fallback uses.
type TableAPI interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// TableLocator resolves logical table names to physical ones at runtime.
// Results are memoized for the process lifetime; the cache is never
// invalidated, which is an accepted staleness window.
type TableLocator struct {
	params      ParameterAPI
	tables      TableAPI
	paramPrefix string
	logger      *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

// New constructs a locator.
func New(params ParameterAPI, tables TableAPI, paramPrefix string, logger *zap.Logger) *TableLocator {
	return &TableLocator{
		params:      params,
		tables:      tables,
		paramPrefix: paramPrefix,
		logger:      logger,
		cache:       make(map[string]string),
	}
}

// Resolve returns the physical table name for logicalName. It consults the
// parameter store first, then falls back to enumerating tables sharing the
// logical prefix and picking the most recently created one. Zero candidates
// is an error; callers must never write to a guessed name.
func (l *TableLocator) Resolve(ctx context.Context, logicalName string) (string, error) {
	l.mu.Lock()
	if name, ok := l.cache[logicalName]; ok {
		l.mu.Unlock()
		return name, nil
	}
	l.mu.Unlock()

	name, err := l.resolveUncached(ctx, logicalName)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	l.cache[logicalName] = name
	l.mu.Unlock()
	return name, nil
}

func (l *TableLocator) resolveUncached(ctx context.Context, logicalName string) (string, error) {
	if name, err := l.fromParameter(ctx, logicalName); err == nil && name != "" {
		return name, nil
	} else if err != nil {
		l.logger.Warn("parameter lookup failed, falling back to discovery",
			zap.String("logical_name", logicalName), zap.Error(err))
	}
	return l.discover(ctx, logicalName)
}

func (l *TableLocator) fromParameter(ctx context.Context, logicalName string) (string, error) {
	paramName := fmt.Sprintf("%s/%s", strings.TrimSuffix(l.paramPrefix, "/"), logicalName)
	out, err := l.params.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(paramName)})
	if err != nil {
		return "", err
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("parameter %s is empty", paramName)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// discover lists all tables whose name starts with "<logicalName>-" and picks
// the one with the latest creation timestamp, which disambiguates multiple
// deployment environments sharing one account.
func (l *TableLocator) discover(ctx context.Context, logicalName string) (string, error) {
	prefix := logicalName + "-"

	var candidates []string
	var startName *string
	for {
		out, err := l.tables.ListTables(ctx, &dynamodb.ListTablesInput{
			ExclusiveStartTableName: startName,
		})
		if err != nil {
			return "", fmt.Errorf("list tables: %w", err)
		}
		for _, name := range out.TableNames {
			if strings.HasPrefix(name, prefix) {
				candidates = append(candidates, name)
			}
		}
		if out.LastEvaluatedTableName == nil {
			break
		}
		startName = out.LastEvaluatedTableName
	}

	switch len(candidates) {
	case 0:
		return "", util.NewResourceNotFound(logicalName, nil)
	case 1:
		return candidates[0], nil
	}

	best := ""
	var bestCreated time.Time
	for _, name := range candidates {
		out, err := l.tables.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(name),
		})
		if err != nil {
			l.logger.Warn("describe table failed during discovery",
				zap.String("table", name), zap.Error(err))
			continue
		}
		created := aws.ToTime(out.Table.CreationDateTime)
		if best == "" || created.After(bestCreated) {
			best = name
			bestCreated = created
		}
	}
	if best == "" {
		return "", util.NewResourceNotFound(logicalName, fmt.Errorf("no candidate could be described"))
	}
	l.logger.Info("resolved table via discovery",
		zap.String("logical_name", logicalName), zap.String("table", best))
	return best, nil
}
