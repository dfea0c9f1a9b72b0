package domain

// Status represents business lifecycle states for a platform user.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRejected  Status = "rejected"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended, StatusRejected, StatusDeleted:
		return true
	}
	return false
}

// Role represents the business role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes an inbound role string; anything but "admin" is a user.
func ParseRole(raw string) Role {
	if raw == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// UserRecord is the status-store record for one user, keyed by email.
// Timestamps are stored as ISO-8601 strings, matching the store's wire format.
type UserRecord struct {
	ID                 string `dynamodbav:"id" json:"id"`
	Email              string `dynamodbav:"email" json:"email"`
	Status             Status `dynamodbav:"status" json:"status"`
	Role               Role   `dynamodbav:"role" json:"role"`
	FirstName          string `dynamodbav:"firstName,omitempty" json:"firstName,omitempty"`
	LastName           string `dynamodbav:"lastName,omitempty" json:"lastName,omitempty"`
	CompanyName        string `dynamodbav:"companyName,omitempty" json:"companyName,omitempty"`
	RegistrationDate   string `dynamodbav:"registrationDate" json:"registrationDate"`
	LastStatusChange   string `dynamodbav:"lastStatusChange" json:"lastStatusChange"`
	LastStatusChangeBy string `dynamodbav:"lastStatusChangeBy" json:"lastStatusChangeBy"`
	RejectionReason    string `dynamodbav:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	SuspensionReason   string `dynamodbav:"suspensionReason,omitempty" json:"suspensionReason,omitempty"`
	ApprovedBy         string `dynamodbav:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	TTL                int64  `dynamodbav:"ttl,omitempty" json:"ttl,omitempty"`
}

// UserSummary is the merged identity-provider + status-store view returned by
// the read-side listing operations.
type UserSummary struct {
	Email        string            `json:"email"`
	Status       Status            `json:"status"`
	Role         Role              `json:"role"`
	Enabled      bool              `json:"enabled"`
	Created      string            `json:"created,omitempty"`
	LastModified string            `json:"lastModified,omitempty"`
	FirstName    string            `json:"firstName,omitempty"`
	LastName     string            `json:"lastName,omitempty"`
	CompanyName  string            `json:"companyName,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}
