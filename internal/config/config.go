package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App    AppConfig
	AWS    AWSConfig
	Tables TableConfig
	Groups GroupConfig
	Email  EmailConfig
	Auth   AuthConfig
	Logger LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// AWSConfig holds identity-provider and discovery settings.
type AWSConfig struct {
	Region             string
	UserPoolID         string
	TableParamPrefix   string
	ListUsersPageSize  int32
	ListLookupParallel int
}

// TableConfig names the logical tables resolved at runtime.
type TableConfig struct {
	UserStatus     string
	AuditLog       string
	SystemSettings string
}

// GroupConfig names the identity-provider groups used by transitions.
type GroupConfig struct {
	Approved string
	Admin    string
}

// EmailConfig selects and configures the outbound mailer.
type EmailConfig struct {
	Provider string // "ses" or "smtp"
	Sender   string
	LogoURL  string
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
}

// AuthConfig defines authentication parameters for the admin gateway.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-lifecycle-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		AWS: AWSConfig{
			Region:             getEnv("AWS_REGION", "us-west-1"),
			UserPoolID:         os.Getenv("USER_POOL_ID"),
			TableParamPrefix:   getEnv("TABLE_PARAM_PREFIX", "/grc/tables"),
			ListUsersPageSize:  int32(getEnvAsInt("IDENTITY_LIST_PAGE_SIZE", 60)),
			ListLookupParallel: getEnvAsInt("STATUS_LOOKUP_PARALLELISM", 8),
		},
		Tables: TableConfig{
			UserStatus:     getEnv("USER_STATUS_TABLE_LOGICAL", "UserStatus"),
			AuditLog:       getEnv("AUDIT_LOG_TABLE_LOGICAL", "AuditLog"),
			SystemSettings: getEnv("SYSTEM_SETTINGS_TABLE_LOGICAL", "SystemSettings"),
		},
		Groups: GroupConfig{
			Approved: getEnv("APPROVED_GROUP_NAME", "Approved-Users"),
			Admin:    getEnv("ADMIN_GROUP_NAME", "GRC-Admin"),
		},
		Email: EmailConfig{
			Provider: getEnv("EMAIL_PROVIDER", "ses"),
			Sender:   getEnv("EMAIL_SENDER", "cmmc.support@mc3technologies.com"),
			LogoURL:  getEnv("EMAIL_LOGO_URL", ""),
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: getEnvAsInt("SMTP_PORT", 587),
			SMTPUser: os.Getenv("SMTP_USERNAME"),
			SMTPPass: os.Getenv("SMTP_PASSWORD"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.AWS.UserPoolID == "" && cfg.App.Env != "development" {
		return nil, fmt.Errorf("USER_POOL_ID is required in %s", cfg.App.Env)
	}
	if cfg.Email.Provider != "ses" && cfg.Email.Provider != "smtp" {
		return nil, fmt.Errorf("invalid EMAIL_PROVIDER: %s", cfg.Email.Provider)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
