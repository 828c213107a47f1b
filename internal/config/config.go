package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	JWTSecret         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	MaxSessions       int
	SessionTTL        time.Duration
	InactiveRetention time.Duration
}

type UploadConfig struct {
	MaxFileSize      int64
	AllowedMimeTypes []string
}

type BackupConfig struct {
	Enabled    bool
	Dir        string
	UploadsDir string
	Retention  time.Duration
	PgDumpPath string
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
}

type DiscordConfig struct {
	WebhookURL string
}

type LineConfig struct {
	AccessToken string
}

type NotifyConfig struct {
	Email    EmailConfig
	Telegram TelegramConfig
	Discord  DiscordConfig
	Line     LineConfig
}

type IPWhitelistConfig struct {
	Enabled bool
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Upload           UploadConfig
	Backup           BackupConfig
	Notify           NotifyConfig
	IPWhitelist      IPWhitelistConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("STARTER")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("security.jwtsecret is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucket", "starter-uploads")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.accesstokenttl", "15m")
	v.SetDefault("security.refreshtokenttl", "168h") // 7 days
	v.SetDefault("security.maxsessions", 5)
	v.SetDefault("security.sessionttl", "168h")
	v.SetDefault("security.inactiveretention", "720h") // 30 days

	v.SetDefault("upload.maxfilesize", 10*1024*1024)
	v.SetDefault("upload.allowedmimetypes", "")

	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.dir", "./backups")
	v.SetDefault("backup.uploadsdir", "")
	v.SetDefault("backup.retention", "720h")
	v.SetDefault("backup.pgdumppath", "pg_dump")

	v.SetDefault("notify.email.port", 587)

	v.SetDefault("ipwhitelist.enabled", false)
}
