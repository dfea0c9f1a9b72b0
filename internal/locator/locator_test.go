package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/pkg/util"
)

type fakeParams struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeParams) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[aws.ToString(params.Name)]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Value: aws.String(value)},
	}, nil
}

type fakeTables struct {
	names     []string
	created   map[string]time.Time
	listCalls int
}

func (f *fakeTables) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	f.listCalls++
	return &dynamodb.ListTablesOutput{TableNames: f.names}, nil
}

func (f *fakeTables) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	name := aws.ToString(params.TableName)
	created, ok := f.created[name]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &dynamodb.DescribeTableOutput{
		Table: &dynamotypes.TableDescription{
			TableName:        aws.String(name),
			CreationDateTime: aws.Time(created),
		},
	}, nil
}

func TestResolveFromParameter(t *testing.T) {
	params := &fakeParams{values: map[string]string{
		"/grc/tables/UserStatus": "UserStatus-abc-prod",
	}}
	tables := &fakeTables{}
	loc := New(params, tables, "/grc/tables", zap.NewNop())

	name, err := loc.Resolve(context.Background(), "UserStatus")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if name != "UserStatus-abc-prod" {
		t.Fatalf("got %q, want UserStatus-abc-prod", name)
	}
	if tables.listCalls != 0 {
		t.Fatalf("discovery ran despite parameter hit")
	}
}

func TestResolveDiscoveryPicksLatestCreation(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	params := &fakeParams{err: errors.New("ssm unavailable")}
	tables := &fakeTables{
		names: []string{"UserStatus-aaa-dev", "UserStatus-bbb-dev", "AuditLog-xyz-dev"},
		created: map[string]time.Time{
			"UserStatus-aaa-dev": t1,
			"UserStatus-bbb-dev": t2,
		},
	}
	loc := New(params, tables, "/grc/tables", zap.NewNop())

	name, err := loc.Resolve(context.Background(), "UserStatus")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if name != "UserStatus-bbb-dev" {
		t.Fatalf("got %q, want the most recently created candidate UserStatus-bbb-dev", name)
	}
}

func TestResolveSingleCandidateSkipsDescribe(t *testing.T) {
	params := &fakeParams{err: errors.New("ssm unavailable")}
	tables := &fakeTables{names: []string{"AuditLog-only-dev"}}
	loc := New(params, tables, "/grc/tables", zap.NewNop())

	name, err := loc.Resolve(context.Background(), "AuditLog")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if name != "AuditLog-only-dev" {
		t.Fatalf("got %q, want AuditLog-only-dev", name)
	}
}

func TestResolveNoCandidatesFails(t *testing.T) {
	params := &fakeParams{err: errors.New("ssm unavailable")}
	tables := &fakeTables{names: []string{"Unrelated-table"}}
	loc := New(params, tables, "/grc/tables", zap.NewNop())

	_, err := loc.Resolve(context.Background(), "UserStatus")
	if err == nil {
		t.Fatal("expected error when no candidate matches")
	}
	var domainErr *util.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "RESOURCE_NOT_FOUND" {
		t.Fatalf("got %v, want RESOURCE_NOT_FOUND", err)
	}
}

func TestResolveMemoizes(t *testing.T) {
	params := &fakeParams{values: map[string]string{
		"/grc/tables/UserStatus": "UserStatus-abc-prod",
	}}
	loc := New(params, &fakeTables{}, "/grc/tables", zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := loc.Resolve(context.Background(), "UserStatus"); err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
	}
	if params.calls != 1 {
		t.Fatalf("parameter fetched %d times, want 1", params.calls)
	}
}
