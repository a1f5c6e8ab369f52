package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	S3            S3Config            `mapstructure:"s3"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Generator     GeneratorConfig     `mapstructure:"generator"`
	Periodization PeriodizationConfig `mapstructure:"periodization"`
	Worker        WorkerConfig        `mapstructure:"worker"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"` // gin mode: debug, release, test
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // development or production
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mongo or memory
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// RedisConfig enables cross-instance per-user locks. An empty Addr keeps locks in-process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// CatalogConfig selects where the split catalog and limitation table are read from.
type CatalogConfig struct {
	Source string `mapstructure:"source"` // embedded or s3
	S3Key  string `mapstructure:"s3_key"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// GeneratorConfig points at an OpenAI-compatible chat completions endpoint.
type GeneratorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PeriodizationConfig struct {
	DefaultDurationWeeks  int           `mapstructure:"default_duration_weeks"`
	DefaultRecoveryHours  int           `mapstructure:"default_recovery_hours"`
	CacheLookaheadDays    int           `mapstructure:"cache_lookahead_days"`
	GenerationConcurrency int           `mapstructure:"generation_concurrency"`
	LockWait              time.Duration `mapstructure:"lock_wait"`
}

type WorkerConfig struct {
	Schedule string `mapstructure:"schedule"` // cron spec for the daily batch
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, generator.timeout -> GENERATOR_TIMEOUT
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.mode", "development")
	viper.SetDefault("database.driver", "mongo")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "fitness_planner")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("catalog.source", "embedded")
	viper.SetDefault("catalog.s3_key", "catalog/catalog.yaml")
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("generator.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("generator.model", "llama-3.3-70b-versatile")
	viper.SetDefault("generator.timeout", "20s")
	viper.SetDefault("periodization.default_duration_weeks", 6)
	viper.SetDefault("periodization.default_recovery_hours", 48)
	viper.SetDefault("periodization.cache_lookahead_days", 7)
	viper.SetDefault("periodization.generation_concurrency", 3)
	viper.SetDefault("periodization.lock_wait", "5s")
	viper.SetDefault("worker.schedule", "0 0 3 * * *")

	err = viper.ReadInConfig()
	// A missing config file is fine, env vars and defaults still apply.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	// Duration strings ("20s", "1h") decode straight into time.Duration fields.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
