package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. QUICKFI_SERVER_ADDR.
const EnvPrefix = "QUICKFI"

// Config is the full process configuration shared by the server and the CLI.
type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	Kafka     Kafka
	Pipeline  Pipeline
	Registry  Registry
	Sanctions Sanctions
	Geocoder  Geocoder
	Extractor Extractor
	StateLink StateLink
	SMTP      SMTP
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	// SeedDemo loads demo vendors when running without a database.
	SeedDemo bool
}

type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// Pipeline bounds a single vendor run.
type Pipeline struct {
	MaxConcurrency    int
	StageTimeout      time.Duration
	RunTimeout        time.Duration
	SanctionsMinScore int
	// RegistryCountries lists jurisdictions whose country code is sent to the registry search.
	RegistryCountries []string
	StalenessYears    int
}

// ClientTimeout caps an outbound client timeout at 90% of the stage timeout
// so a slow provider fails inside its check instead of at the stage deadline.
func (p Pipeline) ClientTimeout(d time.Duration) time.Duration {
	if p.StageTimeout <= 0 {
		return d
	}
	limit := p.StageTimeout * 9 / 10
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

// Registry configures the national business registry (D&B-style) client.
type Registry struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	CacheTTL     time.Duration
}

type Sanctions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Geocoder struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Extractor struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// StateLink points at the optional YAML state -> registry URL table.
type StateLink struct {
	File          string
	ScrapeTimeout time.Duration
}

type SMTP struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string
}

// NewViper returns a viper instance with defaults and environment binding applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.seed_demo", false)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.topic", "vendor.flags")
	v.SetDefault("kafka.acks", "all")
	v.SetDefault("kafka.retries", 3)
	v.SetDefault("kafka.delivery_timeout", 30*time.Second)

	v.SetDefault("pipeline.max_concurrency", 3)
	v.SetDefault("pipeline.stage_timeout", 30*time.Second)
	v.SetDefault("pipeline.run_timeout", 2*time.Minute)
	v.SetDefault("pipeline.sanctions_min_score", 80)
	v.SetDefault("pipeline.registry_countries", []string{"US", "CA"})
	v.SetDefault("pipeline.staleness_years", 5)

	v.SetDefault("registry.base_url", "https://plus.dnb.com")
	v.SetDefault("registry.token_url", "https://plus.dnb.com/v2/token")
	v.SetDefault("registry.timeout", 20*time.Second)
	v.SetDefault("registry.cache_ttl", 24*time.Hour)

	v.SetDefault("sanctions.base_url", "https://data.trade.gov/consolidated_screening_list/v1")
	v.SetDefault("sanctions.timeout", 20*time.Second)

	v.SetDefault("geocoder.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("geocoder.timeout", 10*time.Second)

	v.SetDefault("extractor.base_url", "https://api.openai.com/v1")
	v.SetDefault("extractor.model", "gpt-4o")
	v.SetDefault("extractor.timeout", 25*time.Second)

	v.SetDefault("statelink.scrape_timeout", 20*time.Second)

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Load(NewViper())
}

// Load reads a Config from v, which may carry flag bindings on top of env.
func Load(v *viper.Viper) Config {
	return Config{
		Server: Server{
			Addr:        v.GetString("server.addr"),
			Environment: v.GetString("server.environment"),
			LogLevel:    v.GetString("server.log_level"),
			SeedDemo:    v.GetBool("server.seed_demo"),
		},
		Database: Database{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: Redis{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Kafka: Kafka{
			Brokers:         v.GetString("kafka.brokers"),
			Topic:           v.GetString("kafka.topic"),
			Acks:            v.GetString("kafka.acks"),
			Retries:         v.GetInt("kafka.retries"),
			DeliveryTimeout: v.GetDuration("kafka.delivery_timeout"),
		},
		Pipeline: Pipeline{
			MaxConcurrency:    v.GetInt("pipeline.max_concurrency"),
			StageTimeout:      v.GetDuration("pipeline.stage_timeout"),
			RunTimeout:        v.GetDuration("pipeline.run_timeout"),
			SanctionsMinScore: v.GetInt("pipeline.sanctions_min_score"),
			RegistryCountries: splitList(v.GetStringSlice("pipeline.registry_countries")),
			StalenessYears:    v.GetInt("pipeline.staleness_years"),
		},
		Registry: Registry{
			BaseURL:      v.GetString("registry.base_url"),
			TokenURL:     v.GetString("registry.token_url"),
			ClientID:     v.GetString("registry.client_id"),
			ClientSecret: v.GetString("registry.client_secret"),
			Timeout:      v.GetDuration("registry.timeout"),
			CacheTTL:     v.GetDuration("registry.cache_ttl"),
		},
		Sanctions: Sanctions{
			BaseURL: v.GetString("sanctions.base_url"),
			APIKey:  v.GetString("sanctions.api_key"),
			Timeout: v.GetDuration("sanctions.timeout"),
		},
		Geocoder: Geocoder{
			BaseURL: v.GetString("geocoder.base_url"),
			APIKey:  v.GetString("geocoder.api_key"),
			Timeout: v.GetDuration("geocoder.timeout"),
		},
		Extractor: Extractor{
			BaseURL: v.GetString("extractor.base_url"),
			APIKey:  v.GetString("extractor.api_key"),
			Model:   v.GetString("extractor.model"),
			Timeout: v.GetDuration("extractor.timeout"),
		},
		StateLink: StateLink{
			File:          v.GetString("statelink.file"),
			ScrapeTimeout: v.GetDuration("statelink.scrape_timeout"),
		},
		SMTP: SMTP{
			Host:      v.GetString("smtp.host"),
			Port:      v.GetInt("smtp.port"),
			Username:  v.GetString("smtp.username"),
			Password:  v.GetString("smtp.password"),
			From:      v.GetString("smtp.from"),
			Recipient: v.GetString("smtp.recipient"),
		},
	}
}

// splitList accepts both repeated values and a single comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, strings.ToUpper(p))
			}
		}
	}
	return out
}
