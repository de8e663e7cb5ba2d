package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"clipshare/internal/media"
)

const (
	defaultJWTSecret = "change-me-jwt-secret"
	mib              = 1024 * 1024
)

type Config struct {
	AppEnv   string
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Media    MediaConfig
	Policy   media.Policy
	Storage  StorageConfig
	Share    ShareConfig
	Redis    RedisConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
	Mode string // "debug" or "release"
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type MediaConfig struct {
	FFprobePath string
	FFmpegPath  string
	Timeout     time.Duration
}

type StorageConfig struct {
	UploadDir     string
	PublicBaseURL string
	// UploadLimitBytes caps the request body of an upload. It sits above the
	// policy size so slightly oversized clips still get an itemized verdict.
	UploadLimitBytes int64
}

type ShareConfig struct {
	DefaultTTLHours int
	CleanupInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads .env (if present), then environment variables and an optional
// config.yaml. Environment keys are the dotted names upper-cased with
// underscores, e.g. POLICY_MAX_SIZE_BYTES.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	def := media.DefaultPolicy()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.url", "clipshare.db")
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("media.ffprobe_path", "ffprobe")
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.timeout", "2m")
	v.SetDefault("policy.max_size_bytes", def.MaxSizeBytes)
	v.SetDefault("policy.min_duration_seconds", def.MinDurationSeconds)
	v.SetDefault("policy.max_duration_seconds", def.MaxDurationSeconds)
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.public_base_url", "http://localhost:8080")
	v.SetDefault("storage.upload_limit_bytes", 0)
	v.SetDefault("share.default_ttl_hours", 24)
	v.SetDefault("share.cleanup_interval", "1h")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://localhost:5173")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		AppEnv: strings.ToLower(strings.TrimSpace(v.GetString("app.env"))),
		Server: ServerConfig{
			Port: strings.TrimSpace(v.GetString("server.port")),
			Mode: strings.TrimSpace(v.GetString("server.mode")),
		},
		Database: DatabaseConfig{URL: strings.TrimSpace(v.GetString("database.url"))},
		JWT: JWTConfig{
			Secret: strings.TrimSpace(v.GetString("jwt.secret")),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		Media: MediaConfig{
			FFprobePath: v.GetString("media.ffprobe_path"),
			FFmpegPath:  v.GetString("media.ffmpeg_path"),
			Timeout:     v.GetDuration("media.timeout"),
		},
		Policy: media.Policy{
			MaxSizeBytes:       v.GetInt64("policy.max_size_bytes"),
			MinDurationSeconds: v.GetInt64("policy.min_duration_seconds"),
			MaxDurationSeconds: v.GetInt64("policy.max_duration_seconds"),
		},
		Storage: StorageConfig{
			UploadDir:        strings.TrimSpace(v.GetString("storage.upload_dir")),
			PublicBaseURL:    strings.TrimRight(strings.TrimSpace(v.GetString("storage.public_base_url")), "/"),
			UploadLimitBytes: v.GetInt64("storage.upload_limit_bytes"),
		},
		Share: ShareConfig{
			DefaultTTLHours: v.GetInt("share.default_ttl_hours"),
			CleanupInterval: v.GetDuration("share.cleanup_interval"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("redis.addr")),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		CORS: CORSConfig{AllowedOrigins: splitList(v.GetString("cors.allowed_origins"))},
	}

	if cfg.Storage.UploadLimitBytes == 0 {
		cfg.Storage.UploadLimitBytes = cfg.Policy.MaxSizeBytes + mib
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT must not be empty")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.Media.Timeout <= 0 {
		return fmt.Errorf("MEDIA_TIMEOUT must be > 0")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	if cfg.Storage.UploadDir == "" {
		return fmt.Errorf("STORAGE_UPLOAD_DIR must not be empty")
	}
	if cfg.Storage.PublicBaseURL == "" {
		return fmt.Errorf("STORAGE_PUBLIC_BASE_URL must not be empty")
	}
	if cfg.Storage.UploadLimitBytes < cfg.Policy.MaxSizeBytes {
		return fmt.Errorf("STORAGE_UPLOAD_LIMIT_BYTES must be >= POLICY_MAX_SIZE_BYTES")
	}
	if cfg.Share.DefaultTTLHours <= 0 {
		return fmt.Errorf("SHARE_DEFAULT_TTL_HOURS must be > 0")
	}
	if cfg.Share.CleanupInterval <= 0 {
		return fmt.Errorf("SHARE_CLEANUP_INTERVAL must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWT.Secret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	} else if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
