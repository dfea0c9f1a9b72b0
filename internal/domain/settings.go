package domain

// SystemSetting is one configurable platform setting.
type SystemSetting struct {
	ID          string `dynamodbav:"id" json:"id"`
	Name        string `dynamodbav:"name" json:"name"`
	Value       any    `dynamodbav:"value" json:"value"`
	Description string `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Category    string `dynamodbav:"category,omitempty" json:"category,omitempty"`
	LastUpdated string `dynamodbav:"lastUpdated,omitempty" json:"lastUpdated,omitempty"`
	UpdatedBy   string `dynamodbav:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// UserCounts tallies status-store records by lifecycle status.
type UserCounts struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Pending   int `json:"pending"`
	Rejected  int `json:"rejected"`
	Suspended int `json:"suspended"`
}

// AdminStats is the dashboard summary returned by getAdminStats.
type AdminStats struct {
	Users          UserCounts   `json:"users"`
	RecentActivity []AuditEntry `json:"recentActivity"`
}
