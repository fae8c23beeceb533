package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Storage      StorageConfig      `mapstructure:"storage"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	Email        EmailConfig        `mapstructure:"email"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Billing      BillingConfig      `mapstructure:"billing"`
	Metering     MeteringConfig     `mapstructure:"metering"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Cron         CronConfig         `mapstructure:"cron"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// StorageConfig 账单归档对象存储
type StorageConfig struct {
	Backend string    `mapstructure:"backend"` // oss, s3, memory
	OSS     OSSConfig `mapstructure:"oss"`
	S3      S3Config  `mapstructure:"s3"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type S3Config struct {
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	StatementQueue string `mapstructure:"statement_queue"`
	MaxWorkers     int    `mapstructure:"max_workers"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// BillingConfig 计费模型配置
// model 为 proration（默认，按天折算）或 usage（用量 + 税）
type BillingConfig struct {
	Model          string  `mapstructure:"model"`
	DaysInMonth    int     `mapstructure:"days_in_month"`
	RatePerKwh     float64 `mapstructure:"rate_per_kwh"`
	TaxRate        float64 `mapstructure:"tax_rate"`
	CurrencySymbol string  `mapstructure:"currency_symbol"`
	Timezone       string  `mapstructure:"timezone"`
}

type MeteringConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type RegistrationConfig struct {
	BatchSize       int `mapstructure:"batch_size"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

type CronConfig struct {
	StatementSpec   string `mapstructure:"statement_spec"`
	TerminationSpec string `mapstructure:"termination_spec"`
	AlertDaysBefore int    `mapstructure:"alert_days_before"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

const (
	BillingModelProration = "proration"
	BillingModelUsage     = "usage"
)

// Default 返回带默认值的配置，未出现在配置文件里的字段都以此为准
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "debug"},
		Database: DatabaseConfig{
			Driver:       "mysql",
			Port:         3306,
			MaxIdleConns: 10,
			MaxOpenConns: 50,
		},
		Redis: RedisConfig{Host: "127.0.0.1", Port: 6379, PoolSize: 10},
		JWT:   JWTConfig{ExpireHours: 24},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Queue: QueueConfig{
			StatementQueue: "statement_jobs",
			MaxWorkers:     2,
			MaxAttempts:    3,
		},
		Billing: BillingConfig{
			Model:          BillingModelProration,
			DaysInMonth:    30,
			RatePerKwh:     0.12,
			TaxRate:        0.08,
			CurrencySymbol: "$",
			Timezone:       "UTC",
		},
		Metering: MeteringConfig{TimeoutSeconds: 10},
		Registration: RegistrationConfig{
			BatchSize:       5,
			CacheTTLSeconds: 300,
		},
		Cron: CronConfig{
			StatementSpec:   "0 2 1 * *",
			TerminationSpec: "30 0 * * *",
			AlertDaysBefore: 3,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func Load(configPath string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate 检查会导致账单算错或服务无法启动的配置
func (c *Config) Validate() error {
	var errs []error

	switch c.Billing.Model {
	case BillingModelProration, BillingModelUsage:
	default:
		errs = append(errs, fmt.Errorf("billing.model %q must be %s or %s", c.Billing.Model, BillingModelProration, BillingModelUsage))
	}
	if c.Billing.DaysInMonth <= 0 {
		errs = append(errs, errors.New("billing.days_in_month must be positive"))
	}
	if c.Billing.TaxRate < 0 || c.Billing.TaxRate >= 1 {
		errs = append(errs, errors.New("billing.tax_rate must be in [0, 1)"))
	}
	if c.Billing.RatePerKwh < 0 {
		errs = append(errs, errors.New("billing.rate_per_kwh must not be negative"))
	}

	switch c.Storage.Backend {
	case "oss", "s3", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q must be oss, s3 or memory", c.Storage.Backend))
	}

	if c.Queue.MaxWorkers <= 0 {
		errs = append(errs, errors.New("queue.max_workers must be positive"))
	}
	if c.Registration.BatchSize <= 0 {
		errs = append(errs, errors.New("registration.batch_size must be positive"))
	}
	if c.Server.Mode == "release" && c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required in release mode"))
	}

	return errors.Join(errs...)
}
