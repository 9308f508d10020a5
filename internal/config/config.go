package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App       App       `mapstructure:"app"`
	Server    Server    `mapstructure:"server"`
	Log       Log       `mapstructure:"log"`
	Database  Database  `mapstructure:"database"`
	Redis     Redis     `mapstructure:"redis"`
	RabbitMQ  RabbitMQ  `mapstructure:"rabbitmq"`
	S3        S3        `mapstructure:"s3"`
	PDFEngine PDFEngine `mapstructure:"pdf_engine"`
	Signing   Signing   `mapstructure:"signing"`
	Root      Root      `mapstructure:"root"`
	Telemetry Telemetry `mapstructure:"telemetry"`
}

type App struct {
	Name string `mapstructure:"name"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Database struct {
	DSN         string `mapstructure:"dsn"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxIdle     int    `mapstructure:"max_idle"`
	EnableTLS   bool   `mapstructure:"enable_tls"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type Redis struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	EnableTLS bool   `mapstructure:"enable_tls"`
}

type RabbitMQ struct {
	URL          string       `mapstructure:"url"`
	EnableTLS    bool         `mapstructure:"enable_tls"`
	ExchangeName ExchangeName `mapstructure:"exchange_name"`
	RoutingKey   RoutingKey   `mapstructure:"routing_key"`
}

type ExchangeName struct {
	Notifier string `mapstructure:"notifier"`
}

type RoutingKey struct {
	LinkReady string `mapstructure:"link_ready"`
}

type S3 struct {
	Endpoint         string `mapstructure:"endpoint"`
	Region           string `mapstructure:"region"`
	Bucket           string `mapstructure:"bucket"`
	AccessKey        string `mapstructure:"access_key"`
	SecretKey        string `mapstructure:"secret_key"`
	UsePathStyle     bool   `mapstructure:"use_path_style"`
	PresignExpireSec int    `mapstructure:"presign_expire_sec"`
}

type PDFEngine struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

type Signing struct {
	// LinkTTLHours is the default lifetime of an issued client signing link.
	LinkTTLHours int `mapstructure:"link_ttl_hours"`
	// EditWindowHours bounds how long after first signing a client may
	// replace their signature.
	EditWindowHours int    `mapstructure:"edit_window_hours"`
	TokenPrefix     string `mapstructure:"token_prefix"`
}

type Root struct {
	OwnerBearerTokenPrefix   string `mapstructure:"owner_bearer_token_prefix"`
	SecretPepper             string `mapstructure:"secret_pepper"`
	EnableArgon2Verification bool   `mapstructure:"enable_argon2_verification"`
	BootstrapOwnerEmail      string `mapstructure:"bootstrap_owner_email"`
	BootstrapOwnerSecret     string `mapstructure:"bootstrap_owner_secret"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OtlpEndpoint string `mapstructure:"otlp_endpoint"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/inkdesk")

	v.SetEnvPrefix("INKDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// config file is optional when env vars carry everything
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "inkdesk-api")
	v.SetDefault("server.addr", ":8011")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.max_open", 20)
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("rabbitmq.exchange_name.notifier", "inkdesk.notifier")
	v.SetDefault("rabbitmq.routing_key.link_ready", "agreement.link_ready")

	v.SetDefault("s3.presign_expire_sec", 900)

	v.SetDefault("pdf_engine.timeout_sec", 60)

	v.SetDefault("signing.link_ttl_hours", 168)
	v.SetDefault("signing.edit_window_hours", 72)
	v.SetDefault("signing.token_prefix", "sgn_")

	v.SetDefault("root.owner_bearer_token_prefix", "sk_owner_")
	v.SetDefault("root.enable_argon2_verification", true)
}
