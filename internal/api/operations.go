package api

import (
	"context"
	"fmt"
	"net/mail"

	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
	"github.com/mc3-grc/user-lifecycle-service/internal/observability"
	"github.com/mc3-grc/user-lifecycle-service/internal/service"
)

// Operation is the closed set of admin operations the dispatcher routes.
type Operation string

const (
	OpListUsers            Operation = "listUsers"
	OpGetUsersByStatus     Operation = "getUsersByStatus"
	OpGetUserDetails       Operation = "getUserDetails"
	OpApproveUser          Operation = "approveUser"
	OpRejectUser           Operation = "rejectUser"
	OpSuspendUser          Operation = "suspendUser"
	OpReactivateUser       Operation = "reactivateUser"
	OpCreateUser           Operation = "createUser"
	OpUpdateUserRole       Operation = "updateUserRole"
	OpUpdateUserProfile    Operation = "updateUserProfile"
	OpDeleteUser           Operation = "deleteUser"
	OpResetUserPassword    Operation = "resetUserPassword"
	OpGetAdminStats        Operation = "getAdminStats"
	OpGetAuditLogs         Operation = "getAuditLogs"
	OpGetAllSystemSettings Operation = "getAllSystemSettings"
	OpUpdateSystemSettings Operation = "updateSystemSettings"
	OpMigrateUsers         Operation = "migrateUsers"
)

// ParseOperation maps an inbound name to an Operation. Unknown names fall
// through to listUsers, matching the platform's long-standing behavior.
func ParseOperation(name string) Operation {
	switch Operation(name) {
	case OpListUsers, OpGetUsersByStatus, OpGetUserDetails,
		OpApproveUser, OpRejectUser, OpSuspendUser, OpReactivateUser,
		OpCreateUser, OpUpdateUserRole, OpUpdateUserProfile, OpDeleteUser,
		OpResetUserPassword, OpGetAdminStats, OpGetAuditLogs,
		OpGetAllSystemSettings, OpUpdateSystemSettings, OpMigrateUsers:
		return Operation(name)
	default:
		return OpListUsers
	}
}

// DateRange bounds an audit-log query.
type DateRange struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// AuditFilters narrows an audit-log query.
type AuditFilters struct {
	Action           string `json:"action,omitempty"`
	PerformedBy      string `json:"performedBy,omitempty"`
	AffectedResource string `json:"affectedResource,omitempty"`
}

// Arguments carries every operation's parameters; unused fields are ignored
// by operations that don't take them.
type Arguments struct {
	Email       string                 `json:"email,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Role        string                 `json:"role,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	AdminEmail  string                 `json:"adminEmail,omitempty"`
	SendEmail   *bool                  `json:"sendEmail,omitempty"`
	NotifyUser  *bool                  `json:"notifyUser,omitempty"`
	FirstName   *string                `json:"firstName,omitempty"`
	LastName    *string                `json:"lastName,omitempty"`
	CompanyName *string                `json:"companyName,omitempty"`
	DateRange   *DateRange             `json:"dateRange,omitempty"`
	Filters     *AuditFilters          `json:"filters,omitempty"`
	Settings    []domain.SystemSetting `json:"settings,omitempty"`
	UpdatedBy   string                 `json:"updatedBy,omitempty"`
}

// TransitionResult is the outcome object for lifecycle transitions.
type TransitionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ErrorResult is the payload the dispatcher hands back instead of raising.
type ErrorResult struct {
	Error string `json:"error"`
}

// Dispatcher routes named operations to the services. Every operation
// returns a JSON-serializable value; internal errors surface as an
// ErrorResult, never as a panic past this boundary.
type Dispatcher struct {
	lifecycle *service.LifecycleService
	reader    *service.ReaderService
	settings  *service.SettingsService
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(lifecycle *service.LifecycleService, reader *service.ReaderService, settings *service.SettingsService, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		lifecycle: lifecycle,
		reader:    reader,
		settings:  settings,
		metrics:   metrics,
		logger:    logger,
	}
}

// Dispatch validates arguments and runs one operation. The switch is
// exhaustive over the Operation constants.
func (d *Dispatcher) Dispatch(ctx context.Context, op Operation, args Arguments) any {
	if err := validateArguments(op, args); err != nil {
		d.metrics.RecordOperation(string(op), true)
		return ErrorResult{Error: err.Error()}
	}

	result := d.run(ctx, op, args)
	if errResult, ok := result.(ErrorResult); ok {
		d.logger.Error("operation failed", zap.String("operation", string(op)), zap.String("error", errResult.Error))
		d.metrics.RecordOperation(string(op), true)
		return result
	}
	if tr, ok := result.(TransitionResult); ok && !tr.Success {
		d.metrics.RecordOperation(string(op), true)
		return result
	}
	if cr, ok := result.(service.CreateUserResult); ok && !cr.Success {
		d.metrics.RecordOperation(string(op), true)
		return result
	}
	d.metrics.RecordOperation(string(op), false)
	return result
}

func (d *Dispatcher) run(ctx context.Context, op Operation, args Arguments) any {
	switch op {
	case OpListUsers:
		users, err := d.reader.ListUsers(ctx)
		if err != nil {
			return ErrorResult{Error: err.Error()}
		}
		return users

	case OpGetUsersByStatus:
		users, err := d.reader.GetUsersByStatus(ctx, domain.Status(args.Status))
		if err != nil {
			return ErrorResult{Error: err.Error()}
		}
		return users

	case OpGetUserDetails:
		details, err := d.reader.GetUserDetails(ctx, args.Email)
		if err != nil {
			return ErrorResult{Error: err.Error()}
		}
		return details

	case OpApproveUser:
		return transition(d.lifecycle.ApproveUser(ctx, args.Email, adminOrDefault(args.AdminEmail)))

	case OpRejectUser:
		return transition(d.lifecycle.RejectUser(ctx, args.Email, args.Reason, adminOrDefault(args.AdminEmail)))

	case OpSuspendUser:
		return transition(d.lifecycle.SuspendUser(ctx, args.Email, args.Reason, adminOrDefault(args.AdminEmail)))

	case OpReactivateUser:
		return transition(d.lifecycle.ReactivateUser(ctx, args.Email, adminOrDefault(args.AdminEmail)))

	case OpCreateUser:
		sendEmail := true
		if args.SendEmail != nil {
			sendEmail = *args.SendEmail
		}
		return d.lifecycle.CreateUser(ctx, service.CreateUserInput{
			Email:       args.Email,
			Role:        domain.ParseRole(args.Role),
			SendEmail:   sendEmail,
			PerformedBy: args.AdminEmail,
			FirstName:   stringValue(args.FirstName),
			LastName:    stringValue(args.LastName),
			CompanyName: stringValue(args.CompanyName),
		})

	case OpUpdateUserRole:
		return transition(d.lifecycle.UpdateUserRole(ctx, args.Email, domain.ParseRole(args.Role), adminOrDefault(args.AdminEmail)))

	case OpUpdateUserProfile:
		return transition(d.lifecycle.UpdateUserProfile(ctx, args.Email, args.FirstName, args.LastName, args.CompanyName, adminOrDefault(args.AdminEmail)))

	case OpDeleteUser:
		return transition(d.lifecycle.DeleteUser(ctx, args.Email, adminOrDefault(args.AdminEmail)))

	case OpResetUserPassword:
		notify := true
		if args.NotifyUser != nil {
			notify = *args.NotifyUser
		}
		return transition(d.lifecycle.ResetUserPassword(ctx, args.Email, adminOrDefault(args.AdminEmail), notify))

	case OpGetAdminStats:
		return d.reader.AdminStats(ctx)

	case OpGetAuditLogs:
		filter := service.AuditLogFilter{}
		if args.DateRange != nil {
			filter.StartDate = args.DateRange.StartDate
			filter.EndDate = args.DateRange.EndDate
		}
		if args.Filters != nil {
			filter.PerformedBy = args.Filters.PerformedBy
			filter.Action = args.Filters.Action
			filter.AffectedResource = args.Filters.AffectedResource
		}
		logs, err := d.reader.GetAuditLogs(ctx, filter)
		if err != nil {
			return ErrorResult{Error: err.Error()}
		}
		return logs

	case OpGetAllSystemSettings:
		listing, err := d.settings.GetAll(ctx)
		if err != nil {
			return ErrorResult{Error: err.Error()}
		}
		return listing

	case OpUpdateSystemSettings:
		return d.settings.Update(ctx, args.Settings, args.UpdatedBy)

	case OpMigrateUsers:
		return d.lifecycle.MigrateUsers(ctx)
	}

	// ParseOperation never yields a value outside the switch above.
	return ErrorResult{Error: fmt.Sprintf("unhandled operation %q", op)}
}

// validateArguments rejects malformed input before any external call.
func validateArguments(op Operation, args Arguments) error {
	switch op {
	case OpGetUserDetails, OpApproveUser, OpRejectUser, OpSuspendUser,
		OpReactivateUser, OpCreateUser, OpUpdateUserRole, OpUpdateUserProfile,
		OpDeleteUser, OpResetUserPassword:
		if args.Email == "" {
			return fmt.Errorf("email is required for %s", op)
		}
		if _, err := mail.ParseAddress(args.Email); err != nil {
			return fmt.Errorf("invalid email %q", args.Email)
		}
	}

	switch op {
	case OpCreateUser, OpUpdateUserRole:
		if args.Role != string(domain.RoleUser) && args.Role != string(domain.RoleAdmin) {
			return fmt.Errorf("invalid role %q", args.Role)
		}
	case OpGetUsersByStatus:
		if !domain.Status(args.Status).Valid() {
			return fmt.Errorf("invalid status %q", args.Status)
		}
	case OpUpdateSystemSettings:
		if len(args.Settings) == 0 {
			return fmt.Errorf("settings are required for %s", op)
		}
	}
	return nil
}

func transition(err error) TransitionResult {
	if err != nil {
		return TransitionResult{Success: false, Error: err.Error()}
	}
	return TransitionResult{Success: true}
}

func adminOrDefault(adminEmail string) string {
	if adminEmail == "" {
		return "admin@example.com"
	}
	return adminEmail
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
