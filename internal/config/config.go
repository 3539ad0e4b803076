package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr string
	Port       string
	GinMode    string
	Env        string

	DatabaseDriver string
	DatabasePath   string
	DatabaseURL    string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	RedisURL string
	OTPTTL   time.Duration

	SMTP SMTPConfig

	StorageDriver string
	UploadDir     string
	UploadURLPath string
	S3            S3Config

	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// SMTPConfig 描述发送验证码邮件所需的 SMTP 参数。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Insecure bool
}

// Enabled reports whether a mail relay is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// S3Config 描述图片托管使用的对象存储。
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
	AccessKey     string
	SecretKey     string
}

// LoadDotEnv 尝试加载 .env 文件，文件不存在时返回 false。
func LoadDotEnv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOr("PORT", "5000")

	listenAddr := envOr("LISTEN_ADDR", "")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr: listenAddr,
		Port:       port,
		GinMode:    envOr("GIN_MODE", "release"),
		Env:        envOr("APP_ENV", "development"),

		DatabaseDriver: strings.ToLower(envOr("DATABASE_DRIVER", "sqlite")),
		DatabasePath:   envOr("DATABASE_PATH", "mindfulpath.db"),
		DatabaseURL:    envOr("DATABASE_URL", ""),

		JWTSecret: envOr("JWT_SECRET", "mindfulpath-dev-secret"),
		JWTIssuer: envOr("JWT_ISSUER", "mindfulpath"),
		JWTTTL:    envDuration("JWT_TTL", 24*time.Hour),

		RedisURL: envOr("REDIS_URL", ""),
		OTPTTL:   envDuration("OTP_TTL", 10*time.Minute),

		SMTP: SMTPConfig{
			Host:     envOr("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 465),
			Username: envOr("SMTP_USERNAME", ""),
			Password: envOr("SMTP_PASSWORD", ""),
			From:     envOr("SMTP_FROM", "Mindful Path <no-reply@mindfulpath.dev>"),
			Insecure: envBool("SMTP_INSECURE", false),
		},

		StorageDriver: strings.ToLower(envOr("STORAGE_DRIVER", "local")),
		UploadDir:     envOr("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath: envOr("UPLOAD_URL_PATH", "/static/uploads"),
		S3: S3Config{
			Bucket:        envOr("S3_BUCKET", ""),
			Region:        envOr("S3_REGION", "us-east-1"),
			Endpoint:      envOr("S3_ENDPOINT", ""),
			PublicBaseURL: envOr("S3_PUBLIC_BASE_URL", ""),
			AccessKey:     envOr("S3_ACCESS_KEY", ""),
			SecretKey:     envOr("S3_SECRET_KEY", ""),
		},

		CORSOrigins:       envList("CORS_ORIGINS", []string{"http://localhost:3000", "https://mindful-path.onrender.com"}),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   envDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		AdminUsername: envOr("ADMIN_USERNAME", ""),
		AdminEmail:    envOr("ADMIN_EMAIL", ""),
		AdminPassword: envOr("ADMIN_PASSWORD", ""),
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	raw := envOr(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	raw := envOr(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := envOr(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envList(key string, fallback []string) []string {
	raw := envOr(key, "")
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
