package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Auth              AuthConfig
	XorPay            XorPayConfig
	Email             EmailConfig
	Memberships       MembershipsConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName     string
	SiteName        string
	SiteURL         string
	// CallbackBaseURL is the public base the gateway reaches this service at.
	CallbackBaseURL string
	Location        *time.Location
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type AuthConfig struct {
	JWTSecret     string
	AdminUsername string
}

type XorPayConfig struct {
	Endpoints   []string
	HTTPTimeout time.Duration
}

// EmailConfig is the environment fallback used when no email settings were saved.
type EmailConfig struct {
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPSecure   bool
	SMTPUser     string
	SMTPPass     string
	FromEmail    string
	FromName     string
}

type MembershipsConfig struct {
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
	LockTTL             time.Duration
	DiagnoseTimeout     time.Duration
}

type JobsConfig struct {
	ReconcileInterval         time.Duration
	ExpirePendingInterval     time.Duration
	ExpireInviteCodesInterval time.Duration
	ReconcileSchedule         string
	ExpirePendingSchedule     string
	ExpireInviteCodesSchedule string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	jwtSecret := os.Getenv("AUTH_JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET environment variable is required")
	}

	location, err := time.LoadLocation(getEnv("APP_TIMEZONE", "Local"))
	if err != nil {
		return nil, errors.New("APP_TIMEZONE is not a valid time zone")
	}

	siteURL := strings.TrimRight(getEnv("APP_SITE_URL", "http://localhost:3001"), "/")

	return &Config{
		App: AppConfig{
			ServiceName:     getEnv("APP_SERVICE_NAME", "memberships-service"),
			SiteName:        getEnv("APP_SITE_NAME", "LunaTV"),
			SiteURL:         siteURL,
			CallbackBaseURL: strings.TrimRight(getEnv("APP_CALLBACK_BASE_URL", siteURL+"/api"), "/"),
			Location:        location,
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "memberships"),
			DialTimeout:  getSecondsEnv("REDIS_DIAL_TIMEOUT_SECONDS", 5*time.Second),
			ReadTimeout:  getSecondsEnv("REDIS_READ_TIMEOUT_SECONDS", 3*time.Second),
			WriteTimeout: getSecondsEnv("REDIS_WRITE_TIMEOUT_SECONDS", 3*time.Second),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Auth: AuthConfig{
			JWTSecret:     jwtSecret,
			AdminUsername: getEnv("AUTH_ADMIN_USERNAME", ""),
		},
		XorPay: XorPayConfig{
			Endpoints:   getListEnv("XORPAY_ENDPOINTS", []string{"https://api.xunhupay.com", "https://api.dpweixin.com"}),
			HTTPTimeout: getSecondsEnv("XORPAY_HTTP_TIMEOUT_SECONDS", 30*time.Second),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 465),
			SMTPSecure:   getBoolEnv("SMTP_SECURE", true),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
			FromEmail:    getEnv("EMAIL_FROM", ""),
			FromName:     getEnv("EMAIL_FROM_NAME", "LunaTV"),
		},
		Memberships: MembershipsConfig{
			PendingTimeout:      getMinutesEnv("MEMBERSHIPS_PENDING_TIMEOUT_MINUTES", 30*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("MEMBERSHIPS_RECONCILE_STALE_AFTER_MINUTES", 5*time.Minute),
			JobBatchSize:        int32(getIntEnv("MEMBERSHIPS_JOB_BATCH_SIZE", 100)),
			LockTTL:             getSecondsEnv("MEMBERSHIPS_LOCK_TTL_SECONDS", 30*time.Second),
			DiagnoseTimeout:     getSecondsEnv("MEMBERSHIPS_DIAGNOSE_TIMEOUT_SECONDS", 10*time.Second),
		},
		Jobs: JobsConfig{
			ReconcileInterval:         getMinutesEnv("MEMBERSHIPS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval:     getMinutesEnv("MEMBERSHIPS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
			ExpireInviteCodesInterval: getMinutesEnv("MEMBERSHIPS_EXPIRE_INVITE_CODES_INTERVAL_MINUTES", 60*time.Minute),
			ReconcileSchedule:         getEnv("MEMBERSHIPS_RECONCILE_CRON", "0 */2 * * * *"),
			ExpirePendingSchedule:     getEnv("MEMBERSHIPS_EXPIRE_PENDING_CRON", "0 */5 * * * *"),
			ExpireInviteCodesSchedule: getEnv("MEMBERSHIPS_EXPIRE_INVITE_CODES_CRON", "0 0 * * * *"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimRight(strings.TrimSpace(item), "/")
		if item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
