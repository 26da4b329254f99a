package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Server struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	Version        string        `mapstructure:"version"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Cache struct {
	TTL     time.Duration `mapstructure:"ttl"`
	Backend string        `mapstructure:"backend"` // memory | redis
	Redis   Redis         `mapstructure:"redis"`
}

// Source configures one upstream adapter.
type Source struct {
	Enabled bool          `mapstructure:"enabled"`
	Name    string        `mapstructure:"name"`
	URL     string        `mapstructure:"url"`
	RPM     int           `mapstructure:"rpm"`
	Burst   int           `mapstructure:"burst"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Sources struct {
	Binance      Source `mapstructure:"binance"`
	OKX          Source `mapstructure:"okx"`
	DolarAPI     Source `mapstructure:"dolarapi"`
	ExchangeRate Source `mapstructure:"exchangerate"`
}

type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds a libpq key/value connection string.
func (p Postgres) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
	if p.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", p.TimeZone)
	}
	return dsn
}

type History struct {
	Enabled       bool          `mapstructure:"enabled"`
	Postgres      Postgres      `mapstructure:"postgres"`
	Retention     time.Duration `mapstructure:"retention"`
	FetchInterval time.Duration `mapstructure:"fetch_interval"`
	StoreInterval time.Duration `mapstructure:"store_interval"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type NATS struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type Log struct {
	Level       string `mapstructure:"level"`       // debug, info, warn, error
	Format      string `mapstructure:"format"`      // json or console
	OutputFile  string `mapstructure:"output_file"` // optional rotating file
	Environment string `mapstructure:"environment"` // dev or prod
}

type Config struct {
	Server  Server  `mapstructure:"server"`
	Cache   Cache   `mapstructure:"cache"`
	Sources Sources `mapstructure:"sources"`
	History History `mapstructure:"history"`
	NATS    NATS    `mapstructure:"nats"`
	Log     Log     `mapstructure:"log"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:           "3001",
			RequestTimeout: 10 * time.Second,
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
			Version:        "1.0.0",
		},
		Cache: Cache{
			TTL:     60 * time.Second,
			Backend: "memory",
			Redis:   Redis{Addr: "localhost:6379"},
		},
		Sources: Sources{
			Binance:      Source{Enabled: true, Name: "Binance P2P", URL: "https://p2p.binance.com", RPM: 60, Burst: 2, Timeout: 10 * time.Second},
			OKX:          Source{Enabled: true, Name: "OKX P2P", URL: "https://www.okx.com", RPM: 60, Burst: 2, Timeout: 10 * time.Second},
			DolarAPI:     Source{Enabled: true, Name: "DolarAPI", URL: "https://bo.dolarapi.com/v1", RPM: 30, Burst: 1, Timeout: 10 * time.Second},
			ExchangeRate: Source{Enabled: true, Name: "ExchangeRate-API", URL: "https://api.exchangerate-api.com/v4", RPM: 30, Burst: 1, Timeout: 10 * time.Second},
		},
		History: History{
			Enabled: false,
			Postgres: Postgres{
				Host:            "localhost",
				Port:            5432,
				User:            "postgres",
				DBName:          "dollartracker",
				SSLMode:         "disable",
				TimeZone:        "UTC",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
			},
			Retention:     7 * 24 * time.Hour,
			FetchInterval: 5 * time.Second,
			StoreInterval: time.Second,
			PruneInterval: time.Hour,
		},
		NATS: NATS{URL: "nats://localhost:4222", Subject: "prices.current"},
		Log:  Log{Level: "info", Format: "json", Environment: "prod"},
	}
}

// Load reads config.yaml (or the file at path) over the defaults.
// A .env file in the working directory is loaded first, then environment
// variables override file values using underscores for nesting
// (e.g. CACHE_BACKEND, SOURCES_OKX_ENABLED).
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacy(v); err != nil {
		return Config{}, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		secondsHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// bindLegacy keeps the environment names older deployments use.
func bindLegacy(v *viper.Viper) error {
	binds := map[string][]string{
		"server.port":              {"SERVER_PORT", "API_PORT", "PORT"},
		"server.cors_origins":      {"SERVER_CORS_ORIGINS", "CORS_ORIGINS"},
		"sources.dolarapi.url":     {"SOURCES_DOLARAPI_URL", "DOLAR_API_URL"},
		"sources.exchangerate.url": {"SOURCES_EXCHANGERATE_URL", "EXCHANGE_RATE_API_URL"},
	}
	for key, envs := range binds {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// secondsHook reads bare numbers as seconds for duration fields, so
// CACHE_TTL=60 and "ttl: 60" both mean one minute.
func secondsHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if t != reflect.TypeOf(time.Duration(0)) || f == t {
		return data, nil
	}
	switch f.Kind() {
	case reflect.String:
		if secs, err := strconv.Atoi(strings.TrimSpace(reflect.ValueOf(data).String())); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
	}
	return data, nil
}

var ErrInvalid = errors.New("invalid config")

func (c Config) Validate() error {
	switch {
	case c.Server.Port == "":
		return fmt.Errorf("%w: server.port is empty", ErrInvalid)
	case c.Cache.TTL <= 0:
		return fmt.Errorf("%w: cache.ttl must be positive", ErrInvalid)
	case c.Cache.Backend != "memory" && c.Cache.Backend != "redis":
		return fmt.Errorf("%w: cache.backend %q", ErrInvalid, c.Cache.Backend)
	case c.History.Enabled && c.History.Retention <= 0:
		return fmt.Errorf("%w: history.retention must be positive", ErrInvalid)
	}
	return nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.version", d.Server.Version)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)

	for key, s := range map[string]Source{
		"binance":      d.Sources.Binance,
		"okx":          d.Sources.OKX,
		"dolarapi":     d.Sources.DolarAPI,
		"exchangerate": d.Sources.ExchangeRate,
	} {
		p := "sources." + key + "."
		v.SetDefault(p+"enabled", s.Enabled)
		v.SetDefault(p+"name", s.Name)
		v.SetDefault(p+"url", s.URL)
		v.SetDefault(p+"rpm", s.RPM)
		v.SetDefault(p+"burst", s.Burst)
		v.SetDefault(p+"timeout", s.Timeout)
	}

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.retention", d.History.Retention)
	v.SetDefault("history.fetch_interval", d.History.FetchInterval)
	v.SetDefault("history.store_interval", d.History.StoreInterval)
	v.SetDefault("history.prune_interval", d.History.PruneInterval)
	pg := d.History.Postgres
	v.SetDefault("history.postgres.host", pg.Host)
	v.SetDefault("history.postgres.port", pg.Port)
	v.SetDefault("history.postgres.user", pg.User)
	v.SetDefault("history.postgres.password", pg.Password)
	v.SetDefault("history.postgres.dbname", pg.DBName)
	v.SetDefault("history.postgres.sslmode", pg.SSLMode)
	v.SetDefault("history.postgres.timezone", pg.TimeZone)
	v.SetDefault("history.postgres.max_open_conns", pg.MaxOpenConns)
	v.SetDefault("history.postgres.max_idle_conns", pg.MaxIdleConns)
	v.SetDefault("history.postgres.conn_max_lifetime", pg.ConnMaxLifetime)

	v.SetDefault("nats.enabled", d.NATS.Enabled)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.subject", d.NATS.Subject)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_file", d.Log.OutputFile)
	v.SetDefault("log.environment", d.Log.Environment)
}
