package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
	"github.com/mc3-grc/user-lifecycle-service/internal/identity"
	"github.com/mc3-grc/user-lifecycle-service/internal/store"
)

const recentActivityLimit = 100

// ReaderService answers the read-side queries by merging identity-provider
// listings with status-store records. Reads are eventually consistent with
// the write path and degrade to empty results rather than failing.
type ReaderService struct {
	provider    identity.Provider
	status      store.StatusStore
	audit       store.AuditStore
	pageSize    int32
	parallelism int
	logger      *zap.Logger
	now         func() time.Time
}

// ReaderDependencies bundles collaborators for the reader service.
type ReaderDependencies struct {
	Provider    identity.Provider
	StatusRepo  store.StatusStore
	AuditRepo   store.AuditStore
	PageSize    int32
	Parallelism int
	Logger      *zap.Logger
}

// AuditLogFilter narrows a getAuditLogs query. PerformedBy is required; the
// audit index is keyed by actor.
type AuditLogFilter struct {
	PerformedBy      string
	Action           string
	AffectedResource string
	StartDate        string
	EndDate          string
}

// NewReaderService constructs the service.
func NewReaderService(deps ReaderDependencies) *ReaderService {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 60
	}
	parallelism := deps.Parallelism
	if parallelism <= 0 {
		parallelism = 8
	}
	return &ReaderService{
		provider:    deps.Provider,
		status:      deps.StatusRepo,
		audit:       deps.AuditRepo,
		pageSize:    pageSize,
		parallelism: parallelism,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// ListUsers pages through the identity provider and merges each user with
// its status record, backfilling a record where none exists. The per-user
// lookups run concurrently to keep latency bounded on large pools.
func (s *ReaderService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	var identityUsers []domain.IdentityUser
	cursor := ""
	for {
		page, next, err := s.provider.ListUsers(ctx, s.pageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		identityUsers = append(identityUsers, page...)
		if next == "" {
			break
		}
		cursor = next
	}

	summaries := make([]domain.UserSummary, len(identityUsers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range identityUsers {
		i := i
		g.Go(func() error {
			summaries[i] = s.mergeUser(gctx, &identityUsers[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetUsersByStatus reads the status store directly through its secondary
// index; no identity-provider call is made.
func (s *ReaderService) GetUsersByStatus(ctx context.Context, status domain.Status) ([]domain.UserSummary, error) {
	records, err := s.status.List(ctx, &status)
	if err != nil {
		return nil, fmt.Errorf("get users by status: %w", err)
	}

	summaries := make([]domain.UserSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, domain.UserSummary{
			Email:        record.Email,
			Status:       record.Status,
			Role:         record.Role,
			Enabled:      record.Status == domain.StatusActive,
			Created:      record.RegistrationDate,
			LastModified: record.LastStatusChange,
			FirstName:    record.FirstName,
			LastName:     record.LastName,
			CompanyName:  record.CompanyName,
		})
	}
	return summaries, nil
}

// GetUserDetails returns the merged view for one user, backfilling the
// status record when missing. A user absent from the identity provider is an
// error.
func (s *ReaderService) GetUserDetails(ctx context.Context, email string) (*domain.UserSummary, error) {
	user, err := s.provider.GetUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user details %s: %w", email, err)
	}
	if user == nil {
		return nil, fmt.Errorf("get user details %s: user not found", email)
	}
	summary := s.mergeUser(ctx, user)
	return &summary, nil
}

// AdminStats tallies status-store records by status and gathers the most
// recent audit entries. Any fetch error zeroes the affected section rather
// than propagating.
func (s *ReaderService) AdminStats(ctx context.Context) domain.AdminStats {
	stats := domain.AdminStats{RecentActivity: []domain.AuditEntry{}}

	records, err := s.status.List(ctx, nil)
	if err != nil {
		s.logger.Error("stats user scan failed", zap.Error(err))
	} else {
		stats.Users.Total = len(records)
		for _, record := range records {
			switch record.Status {
			case domain.StatusActive:
				stats.Users.Active++
			case domain.StatusPending:
				stats.Users.Pending++
			case domain.StatusRejected:
				stats.Users.Rejected++
			case domain.StatusSuspended:
				stats.Users.Suspended++
			}
		}
	}

	entries, err := s.audit.List(ctx)
	if err != nil {
		s.logger.Error("stats audit scan failed", zap.Error(err))
		return stats
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp > entries[j].Timestamp
		}
		return entries[i].ID > entries[j].ID
	})
	if len(entries) > recentActivityLimit {
		entries = entries[:recentActivityLimit]
	}
	stats.RecentActivity = entries
	return stats
}

// GetAuditLogs queries the audit index for one actor, defaulting to the
// last thirty days, then applies the optional post-filters and sorts
// descending by timestamp.
func (s *ReaderService) GetAuditLogs(ctx context.Context, filter AuditLogFilter) ([]domain.AuditEntry, error) {
	if filter.PerformedBy == "" {
		return nil, fmt.Errorf("get audit logs: performedBy filter is required")
	}

	start := filter.StartDate
	if start == "" {
		start = s.now().UTC().Add(-30 * 24 * time.Hour).Format(time.RFC3339)
	}
	end := filter.EndDate
	if end == "" {
		end = s.now().UTC().Format(time.RFC3339)
	}

	entries, err := s.audit.QueryByActor(ctx, filter.PerformedBy, start, end)
	if err != nil {
		return nil, fmt.Errorf("get audit logs: %w", err)
	}

	filtered := entries[:0]
	for _, entry := range entries {
		if filter.Action != "" && !strings.Contains(string(entry.Action), filter.Action) {
			continue
		}
		if filter.AffectedResource != "" && !strings.Contains(entry.AffectedResource, filter.AffectedResource) {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp > filtered[j].Timestamp
	})
	return filtered, nil
}

// mergeUser combines one identity record with its status record. Business
// status and role come from the status store when a record exists; when it
// does not, one is synthesized from the enabled flag and persisted.
func (s *ReaderService) mergeUser(ctx context.Context, user *domain.IdentityUser) domain.UserSummary {
	summary := domain.UserSummary{
		Email:      user.Email,
		Enabled:    user.Enabled,
		Attributes: user.Attributes,
	}
	if !user.Created.IsZero() {
		summary.Created = user.Created.UTC().Format(time.RFC3339)
	}
	if !user.LastModified.IsZero() {
		summary.LastModified = user.LastModified.UTC().Format(time.RFC3339)
	}

	record, err := s.status.Get(ctx, user.Email)
	if err != nil {
		s.logger.Warn("status lookup failed during merge", zap.String("email", user.Email), zap.Error(err))
		record = nil
	}
	if record == nil {
		record = s.backfill(ctx, user)
	}
	if record != nil {
		summary.Status = record.Status
		summary.Role = record.Role
		if record.RegistrationDate != "" {
			summary.Created = record.RegistrationDate
		}
		if record.LastStatusChange != "" {
			summary.LastModified = record.LastStatusChange
		}
	} else {
		summary.Status = statusFromIdentity(user)
		summary.Role = domain.ParseRole(user.Attr(domain.AttrRole))
	}

	// Profile values prefer the provider's custom attributes, falling back
	// to the standard ones, then the status record.
	summary.FirstName = firstNonEmpty(user.Attr(domain.AttrFirstName), user.Attr(domain.AttrGivenName))
	summary.LastName = firstNonEmpty(user.Attr(domain.AttrLastName), user.Attr(domain.AttrFamilyName))
	summary.CompanyName = user.Attr(domain.AttrCompanyName)
	if record != nil {
		summary.FirstName = firstNonEmpty(summary.FirstName, record.FirstName)
		summary.LastName = firstNonEmpty(summary.LastName, record.LastName)
		summary.CompanyName = firstNonEmpty(summary.CompanyName, record.CompanyName)
	}
	return summary
}

// backfill lazily creates the status record for an identity-provider user
// that has none, defaulting status from the enabled flag. A failed write is
// logged; the synthesized record is still returned for this response.
func (s *ReaderService) backfill(ctx context.Context, user *domain.IdentityUser) *domain.UserRecord {
	now := s.now().UTC().Format(time.RFC3339)
	registration := now
	if !user.Created.IsZero() {
		registration = user.Created.UTC().Format(time.RFC3339)
	}
	lastChange := now
	if !user.LastModified.IsZero() {
		lastChange = user.LastModified.UTC().Format(time.RFC3339)
	}

	record := &domain.UserRecord{
		ID:                 user.Email,
		Email:              user.Email,
		Status:             statusFromIdentity(user),
		Role:               domain.ParseRole(user.Attr(domain.AttrRole)),
		RegistrationDate:   registration,
		LastStatusChange:   lastChange,
		LastStatusChangeBy: "system",
	}
	if err := s.status.Put(ctx, record); err != nil {
		s.logger.Warn("status backfill write failed", zap.String("email", user.Email), zap.Error(err))
	}
	return record
}

func statusFromIdentity(user *domain.IdentityUser) domain.Status {
	switch user.Attr(domain.AttrStatus) {
	case domain.MirrorStatusRejected:
		return domain.StatusRejected
	case domain.MirrorStatusSuspended:
		return domain.StatusSuspended
	}
	if user.Enabled {
		return domain.StatusActive
	}
	return domain.StatusPending
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

