package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppCfg struct {
	Name string
	Env  string
	Host string
	Port int
}

type LogCfg struct {
	Level string
}

type DBCfg struct {
	DSN         string
	MaxOpen     int
	MaxIdle     int
	AutoMigrate bool
}

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type MQCfg struct {
	URL           string
	ActivityQueue string
	Prefetch      int
}

type S3Cfg struct {
	Endpoint         string
	Region           string
	AccessKey        string
	SecretKey        string
	Bucket           string
	UsePathStyle     bool
	PresignExpireSec int
	SSE              string
}

type TelemetryCfg struct {
	Enabled      bool
	OtlpEndpoint string
	SampleRatio  float64
}

type AuthCfg struct {
	JWTSecret     string
	TokenTTLHours int
	EncryptionKey string
}

type CORSCfg struct {
	AllowedOrigins []string
}

type RateLimitCfg struct {
	RequestsPerSecond int
	Burst             int
}

type AICfg struct {
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	CacheTTLSec   int
	TimeoutSec    int
}

type OAuthClientCfg struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type CloudCfg struct {
	GoogleDrive  OAuthClientCfg
	Dropbox      OAuthClientCfg
	OneDrive     OAuthClientCfg
	AutoSyncCron string
}

type IntegrationsCfg struct {
	GitHubAPI     string
	TrelloAPI     string
	NotionAPI     string
	CapacitiesAPI string
	ObsidianRoot  string
}

type StaticCfg struct {
	Dir string
}

type MetricsCfg struct {
	Enabled bool
	Prefix  string
}

type Config struct {
	App          AppCfg
	Log          LogCfg
	Database     DBCfg
	Redis        RedisCfg
	RabbitMQ     MQCfg
	S3           S3Cfg
	Telemetry    TelemetryCfg
	Auth         AuthCfg
	CORS         CORSCfg
	RateLimit    RateLimitCfg
	AI           AICfg
	Cloud        CloudCfg
	Integrations IntegrationsCfg
	Static       StaticCfg
	Metrics      MetricsCfg
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	base := viper.New()
	base.SetConfigName("config")
	base.SetConfigType("yaml")
	base.AddConfigPath("./configs")
	base.AddConfigPath(".")
	base.AutomaticEnv()
	base.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	base.SetEnvPrefix("APP") // e.g. APP_AUTH_JWTSECRET -> auth.jwtSecret

	setDefaults(base)

	if err := base.ReadInConfig(); err == nil {
		// expand ${ENV} references once before parsing
		path := base.ConfigFileUsed()
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		expanded := os.ExpandEnv(string(raw))

		v := viper.New()
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, err
		}
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.SetEnvPrefix("APP")
		setDefaults(v)

		cfg := new(Config)
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// no config file: env + defaults only
	cfg := new(Config)
	if err := base.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lexflow-api")
	v.SetDefault("app.env", "debug")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 5000)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.dsn", "sqlite:lexflow.db")
	v.SetDefault("database.maxOpen", 20)
	v.SetDefault("database.maxIdle", 5)
	v.SetDefault("database.autoMigrate", true)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("rabbitmq.activityQueue", "lexflow.activity")
	v.SetDefault("rabbitmq.prefetch", 10)
	v.SetDefault("telemetry.sampleRatio", 1.0)
	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.usePathStyle", true)
	v.SetDefault("s3.presignExpireSec", 900)
	v.SetDefault("auth.tokenTTLHours", 24)
	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("rateLimit.requestsPerSecond", 5)
	v.SetDefault("rateLimit.burst", 20)
	v.SetDefault("ai.geminiModel", "gemini-1.5-flash")
	v.SetDefault("ai.geminiBaseURL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ai.openAIModel", "gpt-4o-mini")
	v.SetDefault("ai.openAIBaseURL", "https://api.openai.com/v1")
	v.SetDefault("ai.cacheTTLSec", 3600)
	v.SetDefault("ai.timeoutSec", 30)
	v.SetDefault("cloud.googleDrive.redirectURI", "http://localhost:5000/api/cloud-sync/google_drive/callback")
	v.SetDefault("cloud.dropbox.redirectURI", "http://localhost:5000/api/cloud-sync/dropbox/callback")
	v.SetDefault("cloud.oneDrive.redirectURI", "http://localhost:5000/api/cloud-sync/onedrive/callback")
	v.SetDefault("cloud.autoSyncCron", "0 3 * * *")
	v.SetDefault("integrations.gitHubAPI", "https://api.github.com")
	v.SetDefault("integrations.trelloAPI", "https://api.trello.com/1")
	v.SetDefault("integrations.notionAPI", "https://api.notion.com/v1")
	v.SetDefault("integrations.capacitiesAPI", "https://api.capacities.io")
	v.SetDefault("integrations.obsidianRoot", "./data/obsidian")
	v.SetDefault("static.dir", "./static")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.prefix", "lexflow")
}

// AICacheTTLSeconds falls back to one hour when unset.
func (c *Config) AICacheTTLSeconds() int {
	if c.AI.CacheTTLSec <= 0 {
		return 3600
	}
	return c.AI.CacheTTLSec
}
