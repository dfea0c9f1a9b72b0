package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/config"
	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
	"github.com/mc3-grc/user-lifecycle-service/internal/events"
	"github.com/mc3-grc/user-lifecycle-service/internal/identity"
	"github.com/mc3-grc/user-lifecycle-service/internal/store"
)

const deletedRecordRetention = 30 * 24 * time.Hour

// LifecycleService sequences the cross-store writes behind every admin
// transition. The canonical step order is: read the prior status record,
// mutate the identity provider, upsert the merged status record, append one
// audit entry, publish a notification event. The identity-provider and
// status-store steps are fatal; audit and notification failures are logged
// and the operation still succeeds. There is no compensation: a failed
// status write does not roll back an identity-provider enable.
type LifecycleService struct {
	provider   identity.Provider
	status     store.StatusStore
	audit      store.AuditStore
	dispatcher events.Dispatcher
	groups     config.GroupConfig
	logger     *zap.Logger
	now        func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	Provider   identity.Provider
	StatusRepo store.StatusStore
	AuditRepo  store.AuditStore
	Dispatcher events.Dispatcher
	Groups     config.GroupConfig
	Logger     *zap.Logger
}

// CreateUserInput describes the admin-initiated creation payload.
type CreateUserInput struct {
	Email       string
	Role        domain.Role
	SendEmail   bool
	PerformedBy string
	FirstName   string
	LastName    string
	CompanyName string
}

// CreateUserResult reports the outcome of a creation.
type CreateUserResult struct {
	Success bool   `json:"success"`
	User    any    `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MigrateResult reports a backfill run over the identity provider listing.
type MigrateResult struct {
	Success       bool             `json:"success"`
	MigratedCount int              `json:"migratedCount"`
	TotalUsers    int              `json:"totalUsers"`
	Failures      []MigrateFailure `json:"failures,omitempty"`
}

// MigrateFailure names one user that could not be backfilled.
type MigrateFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		provider:   deps.Provider,
		status:     deps.StatusRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		groups:     deps.Groups,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// ApproveUser enables the user, mirrors ACTIVE to the identity provider,
// adds the approved group and records the transition. Safe to repeat on an
// already-active user.
func (s *LifecycleService) ApproveUser(ctx context.Context, email, adminEmail string) error {
	prev, err := s.status.Get(ctx, email)
	if err != nil {
		s.logger.Warn("prior status read failed, proceeding without it", zap.String("email", email), zap.Error(err))
	}

	user, err := s.provider.GetUser(ctx, email)
	if err != nil {
		return fmt.Errorf("approve %s: %w", email, err)
	}
	if user == nil {
		return fmt.Errorf("approve %s: user not found", email)
	}

	if err := s.provider.EnableUser(ctx, email); err != nil {
		return fmt.Errorf("approve %s: %w", email, err)
	}
	if err := s.provider.UpdateAttributes(ctx, email, map[string]string{
		domain.AttrStatus: domain.MirrorStatusActive,
	}); err != nil {
		return fmt.Errorf("approve %s: %w", email, err)
	}
	if !user.Confirmed {
		if err := s.provider.ConfirmUser(ctx, email); err != nil {
			return fmt.Errorf("approve %s: %w", email, err)
		}
	}
	if err := s.addToGroupIfAbsent(ctx, email, s.groups.Approved); err != nil {
		return fmt.Errorf("approve %s: %w", email, err)
	}

	record := s.transitionRecord(prev, email, domain.StatusActive, adminEmail)
	record.ApprovedBy = adminEmail
	if err := s.status.Put(ctx, record); err != nil {
		return fmt.Errorf("approve %s: %w", email, err)
	}

	s.appendAudit(ctx, domain.ActionUserApproved, adminEmail, email, map[string]any{
		"email":      email,
		"approvedAt": s.nowISO(),
	})
	s.publish(ctx, events.Event{
		Type:        events.EventUserApproved,
		Email:       email,
		PerformedBy: adminEmail,
	})
	return nil
}

// RejectUser disables the user and marks the account rejected. A rejection
// email goes out only when a reason was given.
func (s *LifecycleService) RejectUser(ctx context.Context, email, reason, adminEmail string) error {
	prev, err := s.status.Get(ctx, email)
	if err != nil {
		s.logger.Warn("prior status read failed, proceeding without it", zap.String("email", email), zap.Error(err))
	}

	user, err := s.provider.GetUser(ctx, email)
	if err != nil {
		return fmt.Errorf("reject %s: %w", email, err)
	}
	if user == nil {
		return fmt.Errorf("reject %s: user not found", email)
	}

	if err := s.provider.DisableUser(ctx, email); err != nil {
		return fmt.Errorf("reject %s: %w", email, err)
	}
	if err := s.provider.UpdateAttributes(ctx, email, map[string]string{
		domain.AttrStatus: domain.MirrorStatusRejected,
	}); err != nil {
		return fmt.Errorf("reject %s: %w", email, err)
	}

	record := s.transitionRecord(prev, email, domain.StatusRejected, adminEmail)
	record.RejectionReason = reason
	if err := s.status.Put(ctx, record); err != nil {
		return fmt.Errorf("reject %s: %w", email, err)
	}

	s.appendAudit(ctx, domain.ActionUserRejected, adminEmail, email, map[string]any{
		"email":      email,
		"reason":     reasonOrDefault(reason),
		"rejectedAt": s.nowISO(),
	})
	s.publish(ctx, events.Event{
		Type:        events.EventUserRejected,
		Email:       email,
		PerformedBy: adminEmail,
		Payload:     events.UserRejectedPayload{Reason: reason},
	})
	return nil
}

// SuspendUser disables the user and marks the account suspended.
func (s *LifecycleService) SuspendUser(ctx context.Context, email, reason, adminEmail string) error {
	prev, err := s.status.Get(ctx, email)
	if err != nil {
		s.logger.Warn("prior status read failed, proceeding without it", zap.String("email", email), zap.Error(err))
	}

	if err := s.provider.DisableUser(ctx, email); err != nil {
		return fmt.Errorf("suspend %s: %w", email, err)
	}
	if err := s.provider.UpdateAttributes(ctx, email, map[string]string{
		domain.AttrStatus: domain.MirrorStatusSuspended,
	}); err != nil {
		return fmt.Errorf("suspend %s: %w", email, err)
	}

	record := s.transitionRecord(prev, email, domain.StatusSuspended, adminEmail)
	record.SuspensionReason = reason
	if err := s.status.Put(ctx, record); err != nil {
		return fmt.Errorf("suspend %s: %w", email, err)
	}

	s.appendAudit(ctx, domain.ActionUserSuspended, adminEmail, email, map[string]any{
		"email":       email,
		"reason":      reasonOrDefault(reason),
		"suspendedAt": s.nowISO(),
	})
	s.publish(ctx, events.Event{
		Type:        events.EventUserSuspended,
		Email:       email,
		PerformedBy: adminEmail,
		Payload:     events.UserSuspendedPayload{Reason: reason},
	})
	return nil
}

// ReactivateUser re-enables a suspended user.
func (s *LifecycleService) ReactivateUser(ctx context.Context, email, adminEmail string) error {
	prev, err := s.status.Get(ctx, email)
	if err != nil {
		s.logger.Warn("prior status read failed, proceeding without it", zap.String("email", email), zap.Error(err))
	}
	previousStatus := ""
	if prev != nil {
		previousStatus = string(prev.Status)
	}

	if err := s.provider.EnableUser(ctx, email); err != nil {
		return fmt.Errorf("reactivate %s: %w", email, err)
	}
	if err := s.provider.UpdateAttributes(ctx, email, map[string]string{
		domain.AttrStatus: domain.MirrorStatusActive,
	}); err != nil {
		return fmt.Errorf("reactivate %s: %w", email, err)
	}

	record := s.transitionRecord(prev, email, domain.StatusActive, adminEmail)
	if err := s.status.Put(ctx, record); err != nil {
		return fmt.Errorf("reactivate %s: %w", email, err)
	}

	s.appendAudit(ctx, domain.ActionUserReactivated, adminEmail, email, map[string]any{
		"email":          email,
		"previousStatus": previousStatus,
		"newStatus":      string(domain.StatusActive),
		"reactivatedAt":  s.nowISO(),
	})
	s.publish(ctx, events.Event{
		Type:        events.EventUserReactivated,
		Email:       email,
		PerformedBy: adminEmail,
	})
	return nil
}

// CreateUser provisions an identity-provider user in the disabled, pending
// state, persists the initial status record and optionally sends a welcome
// email. The provider's create call is the duplicate arbiter; there is no
// pre-check.
func (s *LifecycleService) CreateUser(ctx context.Context, input CreateUserInput) CreateUserResult {
	attrs := map[string]string{
		domain.AttrEmail:         input.Email,
		domain.AttrEmailVerified: "true",
		domain.AttrRole:          string(input.Role),
		domain.AttrStatus:        domain.MirrorStatusPending,
	}
	if input.FirstName != "" {
		attrs[domain.AttrGivenName] = input.FirstName
		attrs[domain.AttrFirstName] = input.FirstName
	}
	if input.LastName != "" {
		attrs[domain.AttrFamilyName] = input.LastName
		attrs[domain.AttrLastName] = input.LastName
	}
	if input.CompanyName != "" {
		attrs[domain.AttrCompanyName] = input.CompanyName
	}

	user, err := s.provider.CreateUser(ctx, identity.CreateUserInput{
		Email:             input.Email,
		Attributes:        attrs,
		TemporaryPassword: identity.GenerateTemporaryPassword(),
		SendWelcomeEmail:  input.SendEmail,
	})
	if err != nil {
		s.logger.Error("create user failed", zap.String("email", input.Email), zap.Error(err))
		return CreateUserResult{Success: false, Error: err.Error()}
	}

	// Accounts start disabled until an admin approves them.
	if err := s.provider.DisableUser(ctx, input.Email); err != nil {
		s.logger.Error("disable after create failed", zap.String("email", input.Email), zap.Error(err))
		return CreateUserResult{Success: false, Error: err.Error()}
	}

	group := s.groups.Approved
	if input.Role == domain.RoleAdmin {
		group = s.groups.Admin
	}
	if err := s.provider.AddToGroup(ctx, input.Email, group); err != nil {
		s.logger.Error("group add after create failed", zap.String("email", input.Email), zap.Error(err))
		return CreateUserResult{Success: false, Error: err.Error()}
	}

	now := s.nowISO()
	performedBy := actorOrSystem(input.PerformedBy)
	record := &domain.UserRecord{
		ID:                 input.Email,
		Email:              input.Email,
		Status:             domain.StatusPending,
		Role:               input.Role,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		CompanyName:        input.CompanyName,
		RegistrationDate:   now,
		LastStatusChange:   now,
		LastStatusChangeBy: performedBy,
	}
	if err := s.status.Put(ctx, record); err != nil {
		s.logger.Error("status write after create failed", zap.String("email", input.Email), zap.Error(err))
		return CreateUserResult{Success: false, Error: err.Error()}
	}

	s.appendAudit(ctx, domain.ActionUserCreated, performedBy, input.Email, map[string]any{
		"email":       input.Email,
		"role":        string(input.Role),
		"sendEmail":   input.SendEmail,
		"createdAt":   now,
		"firstName":   stringOrNil(input.FirstName),
		"lastName":    stringOrNil(input.LastName),
		"companyName": stringOrNil(input.CompanyName),
	})
	s.publish(ctx, events.Event{
		Type:        events.EventUserCreated,
		Email:       input.Email,
		PerformedBy: performedBy,
		Payload:     events.UserCreatedPayload{Role: input.Role, SendWelcome: input.SendEmail},
	})

	return CreateUserResult{Success: true, User: user}
}

// UpdateUserRole rewrites the mirrored role attribute, reconciles group
// membership and records the change. The business status is left as it was;
// a role change is not a lifecycle transition.
func (s *LifecycleService) UpdateUserRole(ctx context.Context, email string, role domain.Role, adminEmail string) error {
	previousRole := domain.RoleUser
	user, err := s.provider.GetUser(ctx, email)
	if err != nil {
		s.logger.Warn("current role read failed, assuming user", zap.String("email", email), zap.Error(err))
	} else if user != nil {
		if raw := user.Attr(domain.AttrRole); raw != "" {
			previousRole = domain.ParseRole(raw)
		}
	}

	if err := s.provider.UpdateAttributes(ctx, email, map[string]string{
		domain.AttrRole: string(role),
	}); err != nil {
		return fmt.Errorf("update role %s: %w", email, err)
	}

	target := s.groups.Approved
	other := s.groups.Admin
	if role == domain.RoleAdmin {
		target, other = other, target
	}
	current, err := s.provider.ListGroups(ctx, email)
	if err != nil {
		s.logger.Warn("group listing failed during role change", zap.String("email", email), zap.Error(err))
		current = nil
	}
	if contains(current, other) {
		if err := s.provider.RemoveFromGroup(ctx, email, other); err != nil {
			return fmt.Errorf("update role %s: %w", email, err)
		}
	}
	if !contains(current, target) {
		if err := s.provider.AddToGroup(ctx, email, target); err != nil {
			return fmt.Errorf("update role %s: %w", email, err)
		}
	}

	if err := s.status.Update(ctx, email, map[string]any{
		"role":               string(role),
		"lastStatusChange":   s.nowISO(),
		"lastStatusChangeBy": adminEmail,
	}); err != nil {
		return fmt.Errorf("update role %s: %w", email, err)
	}

	direction := "unchanged"
	switch {
	case previousRole == domain.RoleUser && role == domain.RoleAdmin:
		direction = "promotion"
	case previousRole == domain.RoleAdmin && role == domain.RoleUser:
		direction = "demotion"
	}
	s.appendAudit(ctx, domain.ActionUserRoleUpdated, adminEmail, email, map[string]any{
		"email":             email,
		"newRole":           string(role),
		"previousRole":      string(previousRole),
		"updatedAt":         s.nowISO(),
		"changeDirection":   direction,
		"changeDescription": fmt.Sprintf("Changed role from %s to %s", previousRole, role),
	})
	return nil
}

// UpdateUserProfile rewrites profile attributes on both stores. Absent
// fields are left untouched.
func (s *LifecycleService) UpdateUserProfile(ctx context.Context, email string, firstName, lastName, companyName *string, adminEmail string) error {
	attrs := map[string]string{}
	fields := map[string]any{}
	updated := []string{}
	if firstName != nil {
		attrs[domain.AttrFirstName] = *firstName
		attrs[domain.AttrGivenName] = *firstName
		fields["firstName"] = *firstName
		updated = append(updated, domain.AttrFirstName, domain.AttrGivenName)
	}
	if lastName != nil {
		attrs[domain.AttrLastName] = *lastName
		attrs[domain.AttrFamilyName] = *lastName
		fields["lastName"] = *lastName
		updated = append(updated, domain.AttrLastName, domain.AttrFamilyName)
	}
	if companyName != nil {
		attrs[domain.AttrCompanyName] = *companyName
		fields["companyName"] = *companyName
		updated = append(updated, domain.AttrCompanyName)
	}
	if len(attrs) == 0 {
		return nil
	}

	if err := s.provider.UpdateAttributes(ctx, email, attrs); err != nil {
		return fmt.Errorf("update profile %s: %w", email, err)
	}
	if err := s.status.Update(ctx, email, fields); err != nil {
		return fmt.Errorf("update profile %s: %w", email, err)
	}

	s.appendAudit(ctx, domain.ActionUserProfileUpdated, adminEmail, email, map[string]any{
		"email":         email,
		"updatedFields": updated,
		"updatedAt":     s.nowISO(),
	})
	return nil
}

// DeleteUser removes the identity record and soft-deletes the status record.
// The status row keeps a TTL thirty days out so the audit trail outlives the
// identity; no email is sent.
func (s *LifecycleService) DeleteUser(ctx context.Context, email, adminEmail string) error {
	prev, err := s.status.Get(ctx, email)
	if err != nil {
		s.logger.Warn("prior status read failed, proceeding without it", zap.String("email", email), zap.Error(err))
	}

	user, err := s.provider.GetUser(ctx, email)
	if err != nil {
		return fmt.Errorf("delete %s: %w", email, err)
	}
	if user == nil {
		return fmt.Errorf("delete %s: user not found", email)
	}

	if err := s.provider.DeleteUser(ctx, email); err != nil {
		return fmt.Errorf("delete %s: %w", email, err)
	}

	record := s.transitionRecord(prev, email, domain.StatusDeleted, adminEmail)
	record.TTL = s.now().Add(deletedRecordRetention).Unix()
	if err := s.status.Put(ctx, record); err != nil {
		return fmt.Errorf("delete %s: %w", email, err)
	}

	s.appendAudit(ctx, domain.ActionUserDeleted, adminEmail, email, map[string]any{
		"email":     email,
		"deletedAt": s.nowISO(),
		"deletedBy": adminEmail,
	})
	return nil
}

// ResetUserPassword sets a fresh temporary password on the identity record
// and optionally mails it to the user.
func (s *LifecycleService) ResetUserPassword(ctx context.Context, email, adminEmail string, notifyUser bool) error {
	user, err := s.provider.GetUser(ctx, email)
	if err != nil {
		return fmt.Errorf("reset password %s: %w", email, err)
	}
	if user == nil {
		return fmt.Errorf("reset password %s: user not found", email)
	}

	tempPassword := identity.GenerateTemporaryPassword()
	if err := s.provider.SetTemporaryPassword(ctx, email, tempPassword); err != nil {
		return fmt.Errorf("reset password %s: %w", email, err)
	}

	s.appendAudit(ctx, domain.ActionUserPasswordReset, adminEmail, email, map[string]any{
		"email":   email,
		"resetAt": s.nowISO(),
	})
	s.publish(ctx, events.Event{
		Type:        events.EventUserPasswordReset,
		Email:       email,
		PerformedBy: adminEmail,
		Payload:     events.UserPasswordResetPayload{TempPassword: tempPassword, Notify: notifyUser},
	})
	return nil
}

// MigrateUsers backfills a status record for every identity-provider user,
// deriving status from the mirror attribute and the enabled flag. Intended
// as a one-off repair, it overwrites whatever records exist.
func (s *LifecycleService) MigrateUsers(ctx context.Context) MigrateResult {
	result := MigrateResult{Success: true}
	cursor := ""
	for {
		users, next, err := s.provider.ListUsers(ctx, 60, cursor)
		if err != nil {
			s.logger.Error("migration listing failed", zap.Error(err))
			return MigrateResult{Success: false}
		}
		for i := range users {
			user := &users[i]
			if user.Email == "" {
				continue
			}
			result.TotalUsers++

			status := domain.StatusPending
			switch {
			case user.Attr(domain.AttrStatus) == domain.MirrorStatusRejected:
				status = domain.StatusRejected
			case user.Attr(domain.AttrStatus) == domain.MirrorStatusSuspended:
				status = domain.StatusSuspended
			case user.Confirmed && user.Enabled:
				status = domain.StatusActive
			}

			registration := s.nowISO()
			if !user.Created.IsZero() {
				registration = user.Created.UTC().Format(time.RFC3339)
			}
			record := &domain.UserRecord{
				ID:                 user.Email,
				Email:              user.Email,
				Status:             status,
				Role:               domain.ParseRole(user.Attr(domain.AttrRole)),
				RegistrationDate:   registration,
				LastStatusChange:   s.nowISO(),
				LastStatusChangeBy: "system-migration",
			}
			if err := s.status.Put(ctx, record); err != nil {
				s.logger.Error("migration write failed", zap.String("email", user.Email), zap.Error(err))
				result.Failures = append(result.Failures, MigrateFailure{Email: user.Email, Error: err.Error()})
				continue
			}
			result.MigratedCount++
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return result
}

// transitionRecord computes the merged target record for a transition,
// carrying forward fields the transition does not own. Transition metadata
// from earlier states is cleared; the caller sets its own. registrationDate
// is preserved once set.
func (s *LifecycleService) transitionRecord(prev *domain.UserRecord, email string, status domain.Status, by string) *domain.UserRecord {
	now := s.nowISO()
	record := &domain.UserRecord{
		ID:                 email,
		Email:              email,
		Status:             status,
		Role:               domain.RoleUser,
		RegistrationDate:   now,
		LastStatusChange:   now,
		LastStatusChangeBy: actorOrSystem(by),
	}
	if prev != nil {
		if prev.Role != "" {
			record.Role = prev.Role
		}
		if prev.RegistrationDate != "" {
			record.RegistrationDate = prev.RegistrationDate
		}
		record.FirstName = prev.FirstName
		record.LastName = prev.LastName
		record.CompanyName = prev.CompanyName
	}
	return record
}

func (s *LifecycleService) appendAudit(ctx context.Context, action domain.Action, performedBy, resourceID string, details map[string]any) {
	entry := domain.AuditEntry{
		ID:               domain.NewAuditID(),
		Timestamp:        s.nowISO(),
		Action:           action,
		PerformedBy:      actorOrSystem(performedBy),
		AffectedResource: "user",
		ResourceID:       resourceID,
		Details:          details,
	}
	if action == domain.ActionSettingUpdated {
		entry.AffectedResource = "SystemSettings"
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("audit append failed", zap.String("action", string(action)), zap.String("resource", resourceID), zap.Error(err))
	}
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (s *LifecycleService) addToGroupIfAbsent(ctx context.Context, email, group string) error {
	current, err := s.provider.ListGroups(ctx, email)
	if err != nil {
		return err
	}
	if contains(current, group) {
		return nil
	}
	return s.provider.AddToGroup(ctx, email, group)
}

func (s *LifecycleService) nowISO() string {
	return s.now().UTC().Format(time.RFC3339)
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "No reason provided"
	}
	return reason
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
