package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string
	Timezone  string
	BrandName string

	// Abuse protection
	RateLimitMax       int
	RateLimitWindow    time.Duration
	RateLimitBackend   string
	HoneypotField      string
	CORSAllowedOrigins []string

	// Collaborator selection
	LeadStore           string
	FileStore           string
	EmailProvider       string
	WhatsAppProvider    string
	CollaboratorTimeout time.Duration
	LeadEventsQueueURL  string

	// Google (Sheets + Drive)
	GoogleServiceAccountJSON string
	GoogleSheetID            string
	GoogleSheetTab           string
	GoogleDriveFolderID      string

	// Postgres / DynamoDB lead stores
	DatabaseURL string
	LeadsTable  string

	// S3 attachments
	S3Bucket        string
	S3PublicBaseURL string

	// Email
	FromEmail      string
	FromName       string
	InternalEmail  string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	SMTPSecure     bool
	SendGridAPIKey string

	// WhatsApp
	MetaWhatsAppToken   string
	MetaWhatsAppPhoneID string
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWhatsAppFrom  string
	WhatsAppSendRPS     float64
	WhatsAppSendBurst   int

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		Timezone:  getEnv("TIMEZONE", "America/Santiago"),
		BrandName: getEnv("BRAND_NAME", "Rebot"),

		RateLimitMax:       getEnvAsInt("RATE_LIMIT_MAX", 3),
		RateLimitWindow:    rateLimitWindow(),
		RateLimitBackend:   lower(getEnv("RATE_LIMIT_BACKEND", "memory")),
		HoneypotField:      getEnv("HONEYPOT_FIELD", "website"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		LeadStore:           lower(getEnv("LEAD_STORE", "sheets")),
		FileStore:           lower(getEnv("FILE_STORE", "drive")),
		EmailProvider:       lower(getEnv("EMAIL_PROVIDER", "smtp")),
		WhatsAppProvider:    lower(getEnv("WHATSAPP_PROVIDER", "meta")),
		CollaboratorTimeout: getEnvAsDuration("COLLABORATOR_TIMEOUT", 15*time.Second),
		LeadEventsQueueURL:  getEnv("LEAD_EVENTS_QUEUE_URL", ""),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleSheetID:            getEnv("GOOGLE_SHEET_ID", ""),
		GoogleSheetTab:           getEnv("GOOGLE_SHEET_TAB", "Leads"),
		GoogleDriveFolderID:      getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		LeadsTable:  getEnv("LEADS_TABLE", "leads"),

		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),

		FromEmail:      getEnv("FROM_EMAIL", ""),
		FromName:       getEnv("FROM_NAME", "Rebot"),
		InternalEmail:  getEnv("INTERNAL_EMAIL", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPass:       getEnv("SMTP_PASS", ""),
		SMTPSecure:     getEnvAsBool("SMTP_SECURE", false),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		MetaWhatsAppToken:   getEnv("META_WHATSAPP_TOKEN", ""),
		MetaWhatsAppPhoneID: getEnv("META_WHATSAPP_PHONE_ID", ""),
		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom:  getEnv("TWILIO_WHATSAPP_FROM", ""),
		WhatsAppSendRPS:     getEnvAsFloat("WHATSAPP_SEND_RPS", 10),
		WhatsAppSendBurst:   getEnvAsInt("WHATSAPP_SEND_BURST", 5),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// rateLimitWindow prefers RATE_LIMIT_WINDOW (a Go duration) and falls back to
// the millisecond form RATE_LIMIT_WINDOW_MS.
func rateLimitWindow() time.Duration {
	if raw := getEnv("RATE_LIMIT_WINDOW", ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	if ms := getEnvAsInt("RATE_LIMIT_WINDOW_MS", -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return 10 * time.Minute
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
