package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/config"
	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
	"github.com/mc3-grc/user-lifecycle-service/internal/events"
	"github.com/mc3-grc/user-lifecycle-service/internal/identity"
)

type fakeProvider struct {
	users      map[string]*domain.IdentityUser
	groups     map[string][]string
	attrs      map[string]map[string]string
	enableErr  error
	disableErr error
	createErr  error

	enabled   []string
	disabled  []string
	deleted   []string
	confirmed []string
	added     map[string][]string
	passwords map[string]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		users:     map[string]*domain.IdentityUser{},
		groups:    map[string][]string{},
		attrs:     map[string]map[string]string{},
		added:     map[string][]string{},
		passwords: map[string]string{},
	}
}

func (f *fakeProvider) GetUser(ctx context.Context, email string) (*domain.IdentityUser, error) {
	return f.users[email], nil
}

func (f *fakeProvider) ListUsers(ctx context.Context, limit int32, cursor string) ([]domain.IdentityUser, string, error) {
	out := make([]domain.IdentityUser, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, "", nil
}

func (f *fakeProvider) CreateUser(ctx context.Context, input identity.CreateUserInput) (*domain.IdentityUser, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	user := &domain.IdentityUser{Email: input.Email, Enabled: true, Attributes: input.Attributes}
	f.users[input.Email] = user
	return user, nil
}

func (f *fakeProvider) DeleteUser(ctx context.Context, email string) error {
	f.deleted = append(f.deleted, email)
	delete(f.users, email)
	return nil
}

func (f *fakeProvider) EnableUser(ctx context.Context, email string) error {
	if f.enableErr != nil {
		return f.enableErr
	}
	f.enabled = append(f.enabled, email)
	if u := f.users[email]; u != nil {
		u.Enabled = true
	}
	return nil
}

func (f *fakeProvider) DisableUser(ctx context.Context, email string) error {
	if f.disableErr != nil {
		return f.disableErr
	}
	f.disabled = append(f.disabled, email)
	if u := f.users[email]; u != nil {
		u.Enabled = false
	}
	return nil
}

func (f *fakeProvider) UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error {
	if f.attrs[email] == nil {
		f.attrs[email] = map[string]string{}
	}
	for k, v := range attrs {
		f.attrs[email][k] = v
	}
	return nil
}

func (f *fakeProvider) AddToGroup(ctx context.Context, email, group string) error {
	f.added[email] = append(f.added[email], group)
	f.groups[email] = append(f.groups[email], group)
	return nil
}

func (f *fakeProvider) RemoveFromGroup(ctx context.Context, email, group string) error {
	kept := f.groups[email][:0]
	for _, g := range f.groups[email] {
		if g != group {
			kept = append(kept, g)
		}
	}
	f.groups[email] = kept
	return nil
}

func (f *fakeProvider) ListGroups(ctx context.Context, email string) ([]string, error) {
	return f.groups[email], nil
}

func (f *fakeProvider) ConfirmUser(ctx context.Context, email string) error {
	f.confirmed = append(f.confirmed, email)
	return nil
}

func (f *fakeProvider) SetTemporaryPassword(ctx context.Context, email, password string) error {
	f.passwords[email] = password
	return nil
}

type fakeStatusStore struct {
	records map[string]*domain.UserRecord
	putErr  error
	puts    int
	updates []map[string]any
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{records: map[string]*domain.UserRecord{}}
}

func (f *fakeStatusStore) Get(ctx context.Context, email string) (*domain.UserRecord, error) {
	record, ok := f.records[email]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (f *fakeStatusStore) Put(ctx context.Context, record *domain.UserRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	copied := *record
	f.records[record.Email] = &copied
	return nil
}

func (f *fakeStatusStore) Update(ctx context.Context, email string, fields map[string]any) error {
	f.updates = append(f.updates, fields)
	record, ok := f.records[email]
	if !ok {
		record = &domain.UserRecord{ID: email, Email: email}
		f.records[email] = record
	}
	if role, ok := fields["role"].(string); ok {
		record.Role = domain.Role(role)
	}
	if v, ok := fields["firstName"].(string); ok {
		record.FirstName = v
	}
	if v, ok := fields["lastName"].(string); ok {
		record.LastName = v
	}
	if v, ok := fields["companyName"].(string); ok {
		record.CompanyName = v
	}
	return nil
}

func (f *fakeStatusStore) List(ctx context.Context, status *domain.Status) ([]domain.UserRecord, error) {
	out := []domain.UserRecord{}
	for _, record := range f.records {
		if status == nil || record.Status == *status {
			out = append(out, *record)
		}
	}
	return out, nil
}

type fakeAuditStore struct {
	entries   []domain.AuditEntry
	appendErr error
}

func (f *fakeAuditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) List(ctx context.Context) ([]domain.AuditEntry, error) {
	return append([]domain.AuditEntry{}, f.entries...), nil
}

func (f *fakeAuditStore) QueryByActor(ctx context.Context, performedBy, startISO, endISO string) ([]domain.AuditEntry, error) {
	out := []domain.AuditEntry{}
	for _, entry := range f.entries {
		if entry.PerformedBy == performedBy && entry.Timestamp >= startISO && entry.Timestamp <= endISO {
			out = append(out, entry)
		}
	}
	return out, nil
}

type capturingDispatcher struct {
	published []events.Event
}

func (d *capturingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *capturingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func testGroups() config.GroupConfig {
	return config.GroupConfig{Approved: "Approved-Users", Admin: "GRC-Admin"}
}

func newTestLifecycle(provider *fakeProvider, status *fakeStatusStore, audit *fakeAuditStore, dispatcher events.Dispatcher) *LifecycleService {
	return NewLifecycleService(LifecycleDependencies{
		Provider:   provider,
		StatusRepo: status,
		AuditRepo:  audit,
		Dispatcher: dispatcher,
		Groups:     testGroups(),
		Logger:     zap.NewNop(),
	})
}

func TestApproveUserHappyPath(t *testing.T) {
	provider := newFakeProvider()
	provider.users["a@x.com"] = &domain.IdentityUser{Email: "a@x.com", Confirmed: true}
	status := newFakeStatusStore()
	status.records["a@x.com"] = &domain.UserRecord{
		ID: "a@x.com", Email: "a@x.com",
		Status:           domain.StatusPending,
		Role:             domain.RoleUser,
		RegistrationDate: "2024-05-01T00:00:00Z",
		RejectionReason:  "previous denial",
	}
	audit := &fakeAuditStore{}
	dispatcher := &capturingDispatcher{}
	svc := newTestLifecycle(provider, status, audit, dispatcher)

	if err := svc.ApproveUser(context.Background(), "a@x.com", "admin@x.com"); err != nil {
		t.Fatalf("ApproveUser: %v", err)
	}

	if len(provider.enabled) != 1 || provider.enabled[0] != "a@x.com" {
		t.Fatalf("user not enabled: %v", provider.enabled)
	}
	if got := provider.attrs["a@x.com"][domain.AttrStatus]; got != domain.MirrorStatusActive {
		t.Fatalf("mirror status = %q, want ACTIVE", got)
	}
	if got := provider.groups["a@x.com"]; len(got) != 1 || got[0] != "Approved-Users" {
		t.Fatalf("groups = %v, want [Approved-Users]", got)
	}

	record := status.records["a@x.com"]
	if record.Status != domain.StatusActive {
		t.Fatalf("status = %q, want active", record.Status)
	}
	if record.ApprovedBy != "admin@x.com" || record.LastStatusChangeBy != "admin@x.com" {
		t.Fatalf("actor fields not set: %+v", record)
	}
	if record.RejectionReason != "" {
		t.Fatalf("stale rejectionReason survived the transition")
	}
	if record.RegistrationDate != "2024-05-01T00:00:00Z" {
		t.Fatalf("registrationDate changed: %q", record.RegistrationDate)
	}

	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionUserApproved {
		t.Fatalf("audit entries = %+v", audit.entries)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventUserApproved {
		t.Fatalf("events = %+v", dispatcher.published)
	}
}

func TestApproveUserIdempotent(t *testing.T) {
	provider := newFakeProvider()
	provider.users["a@x.com"] = &domain.IdentityUser{Email: "a@x.com", Enabled: true, Confirmed: true}
	status := newFakeStatusStore()
	audit := &fakeAuditStore{}
	svc := newTestLifecycle(provider, status, audit, &capturingDispatcher{})

	for i := 0; i < 2; i++ {
		if err := svc.ApproveUser(context.Background(), "a@x.com", "admin@x.com"); err != nil {
			t.Fatalf("ApproveUser #%d: %v", i+1, err)
		}
	}
	if got := provider.groups["a@x.com"]; len(got) != 1 {
		t.Fatalf("duplicate group membership after repeat approval: %v", got)
	}
}

func TestApproveConfirmsUnconfirmedUser(t *testing.T) {
	provider := newFakeProvider()
	provider.users["a@x.com"] = &domain.IdentityUser{Email: "a@x.com", Confirmed: false}
	svc := newTestLifecycle(provider, newFakeStatusStore(), &fakeAuditStore{}, &capturingDispatcher{})

	if err := svc.ApproveUser(context.Background(), "a@x.com", "admin@x.com"); err != nil {
		t.Fatalf("ApproveUser: %v", err)
	}
	if len(provider.confirmed) != 1 {
		t.Fatalf("unconfirmed user was not confirmed")
	}
}

func TestRejectUserProviderFailureAbortsEverything(t *testing.T) {
	provider := newFakeProvider()
	provider.users["b@x.com"] = &domain.IdentityUser{Email: "b@x.com"}
	provider.disableErr = errors.New("throttled")
	status := newFakeStatusStore()
	audit := &fakeAuditStore{}
	svc := newTestLifecycle(provider, status, audit, &capturingDispatcher{})

	err := svc.RejectUser(context.Background(), "b@x.com", "incomplete docs", "admin@x.com")
	if err == nil {
		t.Fatal("expected failure when the disable call fails")
	}
	if status.puts != 0 {
		t.Fatalf("status written despite identity failure")
	}
	if len(audit.entries) != 0 {
		t.Fatalf("audit appended despite identity failure")
	}
}

func TestRejectUserRecordsReason(t *testing.T) {
	provider := newFakeProvider()
	provider.users["b@x.com"] = &domain.IdentityUser{Email: "b@x.com", Enabled: true}
	status := newFakeStatusStore()
	dispatcher := &capturingDispatcher{}
	svc := newTestLifecycle(provider, status, &fakeAuditStore{}, dispatcher)

	if err := svc.RejectUser(context.Background(), "b@x.com", "incomplete docs", "admin@x.com"); err != nil {
		t.Fatalf("RejectUser: %v", err)
	}
	if len(provider.disabled) != 1 {
		t.Fatal("rejected user was not disabled")
	}
	record := status.records["b@x.com"]
	if record.Status != domain.StatusRejected || record.RejectionReason != "incomplete docs" {
		t.Fatalf("record = %+v", record)
	}
	payload := dispatcher.published[0].Payload.(events.UserRejectedPayload)
	if payload.Reason != "incomplete docs" {
		t.Fatalf("event payload = %+v", payload)
	}
}

func TestAuditFailureDoesNotFailTransition(t *testing.T) {
	provider := newFakeProvider()
	provider.users["c@x.com"] = &domain.IdentityUser{Email: "c@x.com", Confirmed: true}
	audit := &fakeAuditStore{appendErr: errors.New("audit table unavailable")}
	svc := newTestLifecycle(provider, newFakeStatusStore(), audit, &capturingDispatcher{})

	if err := svc.ApproveUser(context.Background(), "c@x.com", "admin@x.com"); err != nil {
		t.Fatalf("ApproveUser failed on audit error: %v", err)
	}
}

func TestSuspendAndReactivate(t *testing.T) {
	provider := newFakeProvider()
	provider.users["d@x.com"] = &domain.IdentityUser{Email: "d@x.com", Enabled: true}
	status := newFakeStatusStore()
	status.records["d@x.com"] = &domain.UserRecord{
		ID: "d@x.com", Email: "d@x.com",
		Status:           domain.StatusActive,
		Role:             domain.RoleAdmin,
		RegistrationDate: "2024-01-15T00:00:00Z",
	}
	audit := &fakeAuditStore{}
	svc := newTestLifecycle(provider, status, audit, &capturingDispatcher{})

	if err := svc.SuspendUser(context.Background(), "d@x.com", "policy breach", "admin@x.com"); err != nil {
		t.Fatalf("SuspendUser: %v", err)
	}
	record := status.records["d@x.com"]
	if record.Status != domain.StatusSuspended || record.SuspensionReason != "policy breach" {
		t.Fatalf("after suspend: %+v", record)
	}
	if record.Role != domain.RoleAdmin {
		t.Fatalf("role not carried through transition: %q", record.Role)
	}

	if err := svc.ReactivateUser(context.Background(), "d@x.com", "admin@x.com"); err != nil {
		t.Fatalf("ReactivateUser: %v", err)
	}
	record = status.records["d@x.com"]
	if record.Status != domain.StatusActive {
		t.Fatalf("after reactivate: %+v", record)
	}
	if record.SuspensionReason != "" {
		t.Fatalf("suspensionReason survived reactivation")
	}
	if record.RegistrationDate != "2024-01-15T00:00:00Z" {
		t.Fatalf("registrationDate changed across transitions: %q", record.RegistrationDate)
	}

	last := audit.entries[len(audit.entries)-1]
	if last.Action != domain.ActionUserReactivated {
		t.Fatalf("last audit action = %q", last.Action)
	}
	if last.Details["previousStatus"] != "suspended" {
		t.Fatalf("previousStatus detail = %v", last.Details["previousStatus"])
	}
}

func TestCreateUserScenario(t *testing.T) {
	provider := newFakeProvider()
	status := newFakeStatusStore()
	audit := &fakeAuditStore{}
	dispatcher := &capturingDispatcher{}
	svc := newTestLifecycle(provider, status, audit, dispatcher)

	result := svc.CreateUser(context.Background(), CreateUserInput{
		Email:       "a@x.com",
		Role:        domain.RoleUser,
		SendEmail:   true,
		PerformedBy: "admin@x.com",
		FirstName:   "Ada",
	})
	if !result.Success {
		t.Fatalf("CreateUser failed: %s", result.Error)
	}

	if got := provider.attrs["a@x.com"]; got != nil {
		t.Fatalf("unexpected attribute updates after create: %v", got)
	}
	if created := provider.users["a@x.com"]; created == nil ||
		created.Attributes[domain.AttrStatus] != domain.MirrorStatusPending {
		t.Fatalf("identity user = %+v", provider.users["a@x.com"])
	}
	if len(provider.disabled) != 1 {
		t.Fatal("created user should start disabled")
	}

	record := status.records["a@x.com"]
	if record == nil || record.Status != domain.StatusPending || record.Role != domain.RoleUser {
		t.Fatalf("status record = %+v", record)
	}
	if record.FirstName != "Ada" {
		t.Fatalf("profile fields not persisted: %+v", record)
	}
	if record.RegistrationDate == "" || record.RegistrationDate != record.LastStatusChange {
		t.Fatalf("registration timestamps: %+v", record)
	}

	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionUserCreated {
		t.Fatalf("audit entries = %+v", audit.entries)
	}
	if len(dispatcher.published) != 1 {
		t.Fatalf("events = %+v", dispatcher.published)
	}
	payload := dispatcher.published[0].Payload.(events.UserCreatedPayload)
	if !payload.SendWelcome {
		t.Fatal("welcome email flag dropped")
	}
}

func TestCreateUserDuplicateFails(t *testing.T) {
	provider := newFakeProvider()
	provider.createErr = errors.New("UsernameExistsException")
	status := newFakeStatusStore()
	svc := newTestLifecycle(provider, status, &fakeAuditStore{}, &capturingDispatcher{})

	result := svc.CreateUser(context.Background(), CreateUserInput{Email: "a@x.com", Role: domain.RoleUser})
	if result.Success {
		t.Fatal("duplicate create reported success")
	}
	if status.puts != 0 {
		t.Fatal("status written for failed create")
	}
}

func TestUpdateUserRolePreservesStatus(t *testing.T) {
	provider := newFakeProvider()
	provider.users["e@x.com"] = &domain.IdentityUser{
		Email:      "e@x.com",
		Attributes: map[string]string{domain.AttrRole: "user"},
	}
	provider.groups["e@x.com"] = []string{"Approved-Users"}
	status := newFakeStatusStore()
	status.records["e@x.com"] = &domain.UserRecord{
		ID: "e@x.com", Email: "e@x.com",
		Status: domain.StatusSuspended,
		Role:   domain.RoleUser,
	}
	audit := &fakeAuditStore{}
	svc := newTestLifecycle(provider, status, audit, &capturingDispatcher{})

	if err := svc.UpdateUserRole(context.Background(), "e@x.com", domain.RoleAdmin, "admin@x.com"); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}

	record := status.records["e@x.com"]
	if record.Role != domain.RoleAdmin {
		t.Fatalf("role = %q, want admin", record.Role)
	}
	if record.Status != domain.StatusSuspended {
		t.Fatalf("role change altered status: %q", record.Status)
	}
	if got := provider.groups["e@x.com"]; len(got) != 1 || got[0] != "GRC-Admin" {
		t.Fatalf("groups = %v, want [GRC-Admin]", got)
	}
	if audit.entries[0].Details["changeDirection"] != "promotion" {
		t.Fatalf("audit details = %+v", audit.entries[0].Details)
	}
}

func TestDeleteUserSoftDeletesStatus(t *testing.T) {
	provider := newFakeProvider()
	provider.users["f@x.com"] = &domain.IdentityUser{Email: "f@x.com"}
	status := newFakeStatusStore()
	status.records["f@x.com"] = &domain.UserRecord{
		ID: "f@x.com", Email: "f@x.com",
		Status:           domain.StatusActive,
		RegistrationDate: "2023-11-01T00:00:00Z",
	}
	audit := &fakeAuditStore{}
	svc := newTestLifecycle(provider, status, audit, &capturingDispatcher{})

	before := time.Now().Add(29 * 24 * time.Hour).Unix()
	if err := svc.DeleteUser(context.Background(), "f@x.com", "admin@x.com"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	after := time.Now().Add(31 * 24 * time.Hour).Unix()

	if len(provider.deleted) != 1 {
		t.Fatal("identity record not deleted")
	}
	record := status.records["f@x.com"]
	if record == nil {
		t.Fatal("status record hard-deleted; expected soft delete")
	}
	if record.Status != domain.StatusDeleted {
		t.Fatalf("status = %q, want deleted", record.Status)
	}
	if record.TTL < before || record.TTL > after {
		t.Fatalf("ttl = %d, want roughly thirty days out", record.TTL)
	}
	if record.RegistrationDate != "2023-11-01T00:00:00Z" {
		t.Fatalf("registrationDate changed on delete: %q", record.RegistrationDate)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionUserDeleted {
		t.Fatalf("audit entries = %+v", audit.entries)
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	svc := newTestLifecycle(newFakeProvider(), newFakeStatusStore(), &fakeAuditStore{}, &capturingDispatcher{})
	if err := svc.DeleteUser(context.Background(), "ghost@x.com", "admin@x.com"); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestResetUserPasswordPublishesTempPassword(t *testing.T) {
	provider := newFakeProvider()
	provider.users["g@x.com"] = &domain.IdentityUser{Email: "g@x.com"}
	dispatcher := &capturingDispatcher{}
	audit := &fakeAuditStore{}
	svc := newTestLifecycle(provider, newFakeStatusStore(), audit, dispatcher)

	if err := svc.ResetUserPassword(context.Background(), "g@x.com", "admin@x.com", true); err != nil {
		t.Fatalf("ResetUserPassword: %v", err)
	}
	stored := provider.passwords["g@x.com"]
	if stored == "" {
		t.Fatal("temporary password not set")
	}
	payload := dispatcher.published[0].Payload.(events.UserPasswordResetPayload)
	if payload.TempPassword != stored || !payload.Notify {
		t.Fatalf("payload = %+v", payload)
	}
	if audit.entries[0].Action != domain.ActionUserPasswordReset {
		t.Fatalf("audit action = %q", audit.entries[0].Action)
	}
}

func TestMigrateUsersDerivesStatus(t *testing.T) {
	provider := newFakeProvider()
	provider.users["h@x.com"] = &domain.IdentityUser{
		Email: "h@x.com", Enabled: true, Confirmed: true,
		Attributes: map[string]string{domain.AttrRole: "admin"},
	}
	provider.users["i@x.com"] = &domain.IdentityUser{
		Email:      "i@x.com",
		Attributes: map[string]string{domain.AttrStatus: domain.MirrorStatusRejected},
	}
	status := newFakeStatusStore()
	svc := newTestLifecycle(provider, status, &fakeAuditStore{}, &capturingDispatcher{})

	result := svc.MigrateUsers(context.Background())
	if !result.Success || result.MigratedCount != 2 {
		t.Fatalf("result = %+v", result)
	}
	if status.records["h@x.com"].Status != domain.StatusActive || status.records["h@x.com"].Role != domain.RoleAdmin {
		t.Fatalf("migrated record = %+v", status.records["h@x.com"])
	}
	if status.records["i@x.com"].Status != domain.StatusRejected {
		t.Fatalf("migrated record = %+v", status.records["i@x.com"])
	}
}
