package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
	"github.com/mc3-grc/user-lifecycle-service/pkg/util"
)

type fakeResolver struct {
	table string
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context, logicalName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.table, nil
}

type fakeDynamo struct {
	getOut  *dynamodb.GetItemOutput
	getErr  error
	putErr  error
	scanOut *dynamodb.ScanOutput
	scanErr error

	lastPut    *dynamodb.PutItemInput
	lastUpdate *dynamodb.UpdateItemInput
	lastQuery  *dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = params
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdate = params
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQuery = params
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	if f.scanOut == nil {
		return &dynamodb.ScanOutput{}, nil
	}
	return f.scanOut, nil
}

func TestStatusGetMissingRecordIsNil(t *testing.T) {
	client := &fakeDynamo{}
	s := NewStatusStore(client, &fakeResolver{table: "UserStatus-x"}, "UserStatus", zap.NewNop())

	record, err := s.Get(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record != nil {
		t.Fatalf("record = %+v, want nil for a missing item", record)
	}
}

func TestStatusUpdateSkipsImmutableAndNilFields(t *testing.T) {
	client := &fakeDynamo{}
	s := NewStatusStore(client, &fakeResolver{table: "UserStatus-x"}, "UserStatus", zap.NewNop())

	err := s.Update(context.Background(), "a@x.com", map[string]any{
		"role":             "admin",
		"registrationDate": "2020-01-01T00:00:00Z",
		"email":            "evil@x.com",
		"rejectionReason":  nil,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if client.lastUpdate == nil {
		t.Fatal("no update issued")
	}

	expr := aws.ToString(client.lastUpdate.UpdateExpression)
	names := client.lastUpdate.ExpressionAttributeNames
	for _, name := range names {
		if name == "registrationDate" || name == "email" || name == "rejectionReason" {
			t.Fatalf("immutable or nil field %q written: %s", name, expr)
		}
	}
	foundRole := false
	for _, name := range names {
		if name == "role" {
			foundRole = true
		}
	}
	if !foundRole {
		t.Fatalf("role not written: %v", names)
	}
}

func TestStatusUpdateOnlyNilFieldsIsNoop(t *testing.T) {
	client := &fakeDynamo{}
	s := NewStatusStore(client, &fakeResolver{table: "UserStatus-x"}, "UserStatus", zap.NewNop())

	if err := s.Update(context.Background(), "a@x.com", map[string]any{"reason": nil}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if client.lastUpdate != nil {
		t.Fatal("update issued for an all-nil field set")
	}
}

func TestStatusListDegradesOnMissingTable(t *testing.T) {
	resolver := &fakeResolver{err: util.NewResourceNotFound("UserStatus", nil)}
	s := NewStatusStore(&fakeDynamo{}, resolver, "UserStatus", zap.NewNop())

	records, err := s.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want empty", records)
	}
}

func TestStatusListScanErrorOtherThanMissingPropagates(t *testing.T) {
	client := &fakeDynamo{scanErr: errors.New("throttled")}
	s := NewStatusStore(client, &fakeResolver{table: "UserStatus-x"}, "UserStatus", zap.NewNop())

	if _, err := s.List(context.Background(), nil); err == nil {
		t.Fatal("expected scan error to propagate")
	}
}

func TestStatusPutFailsWhenResolutionFails(t *testing.T) {
	resolver := &fakeResolver{err: util.NewResourceNotFound("UserStatus", nil)}
	s := NewStatusStore(&fakeDynamo{}, resolver, "UserStatus", zap.NewNop())

	err := s.Put(context.Background(), &domain.UserRecord{ID: "a@x.com", Email: "a@x.com"})
	if err == nil {
		t.Fatal("write must refuse a guessed table name")
	}
}

func TestStatusListByStatusUsesIndex(t *testing.T) {
	client := &fakeDynamo{}
	s := NewStatusStore(client, &fakeResolver{table: "UserStatus-x"}, "UserStatus", zap.NewNop())

	status := domain.StatusPending
	if _, err := s.List(context.Background(), &status); err != nil {
		t.Fatalf("List: %v", err)
	}
	if client.lastQuery == nil || aws.ToString(client.lastQuery.IndexName) != "status-index" {
		t.Fatalf("query = %+v, want status-index", client.lastQuery)
	}
}

func TestAuditAppendStripsNilDetails(t *testing.T) {
	client := &fakeDynamo{}
	s := NewAuditStore(client, &fakeResolver{table: "AuditLog-x"}, "AuditLog", zap.NewNop())

	entry := domain.AuditEntry{
		ID:               domain.NewAuditID(),
		Timestamp:        "2025-01-01T00:00:00Z",
		Action:           domain.ActionUserCreated,
		PerformedBy:      "admin@x.com",
		AffectedResource: "user",
		Details:          map[string]any{"email": "a@x.com", "firstName": nil},
	}
	if err := s.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	details, ok := client.lastPut.Item["details"].(*types.AttributeValueMemberM)
	if !ok {
		t.Fatalf("details attribute = %T", client.lastPut.Item["details"])
	}
	if _, present := details.Value["firstName"]; present {
		t.Fatal("nil detail persisted")
	}
}

func TestIsTableMissing(t *testing.T) {
	if !isTableMissing(&types.ResourceNotFoundException{}) {
		t.Error("ResourceNotFoundException not treated as missing")
	}
	if !isTableMissing(util.NewResourceNotFound("UserStatus", nil)) {
		t.Error("discovery failure not treated as missing")
	}
	if isTableMissing(errors.New("throttled")) {
		t.Error("generic error treated as missing")
	}
}
