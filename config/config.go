package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"docuflow/config/database"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DriverMemory = "memory"

	keyPort            = "port"
	keyVerbose         = "verbose"
	keyDriver          = "db.driver"
	keyDSN             = "db.dsn"
	keyDBUser          = "db.user"
	keyDBPassword      = "db.password"
	keyDBHost          = "db.host"
	keyDBPort          = "db.port"
	keyDBName          = "db.name"
	keyDBSSLMode       = "db.sslmode"
	keyConnectAttempts = "db.connect_attempts"
	keyStaticDir       = "static_dir"
	keyRequestTimeout  = "request_timeout"
	keyShutdownTimeout = "shutdown_timeout"
)

type Config struct {
	Port            int
	Verbose         bool
	DB              DBConfig
	StaticDir       string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Driver          string
	DSN             string
	User            string
	Password        string
	Host            string
	Port            string
	Name            string
	SSLMode         string
	ConnectAttempts int
}

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	keyPort:            "PORT",
	keyVerbose:         "VERBOSE",
	keyDriver:          "DB_DRIVER",
	keyDSN:             "DATABASE_URL",
	keyDBUser:          "DB_USER",
	keyDBPassword:      "DB_PASSWORD",
	keyDBHost:          "DB_HOST",
	keyDBPort:          "DB_PORT",
	keyDBName:          "DB_NAME",
	keyDBSSLMode:       "DB_SSLMODE",
	keyConnectAttempts: "DB_CONNECT_ATTEMPTS",
	keyStaticDir:       "STATIC_DIR",
	keyRequestTimeout:  "REQUEST_TIMEOUT",
	keyShutdownTimeout: "SHUTDOWN_TIMEOUT",
}

// flagBindings maps config keys to command-line flag names.
var flagBindings = map[string]string{
	keyPort:      "port",
	keyVerbose:   "verbose",
	keyDriver:    "driver",
	keyDSN:       "dsn",
	keyStaticDir: "static",
}

// RegisterFlags declares the flags Load understands on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntP("port", "p", 3000, "port to listen on")
	fs.BoolP("verbose", "v", false, "enable debug logging")
	fs.String("driver", "sqlite", "storage driver: sqlite, postgres or memory")
	fs.String("dsn", "", "database connection string (default documents.db for sqlite)")
	fs.String("static", "static", "directory served for unmatched paths (empty disables)")
	fs.String("config", "", "optional config file (yaml, json or toml)")
}

// Load resolves configuration with precedence flag > env > file > default.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault(keyPort, 3000)
	v.SetDefault(keyVerbose, false)
	v.SetDefault(keyDriver, database.DriverSQLite)
	v.SetDefault(keyDBHost, "localhost")
	v.SetDefault(keyDBPort, "5432")
	v.SetDefault(keyDBSSLMode, "require")
	v.SetDefault(keyConnectAttempts, 5)
	v.SetDefault(keyStaticDir, "static")
	v.SetDefault(keyRequestTimeout, 5*time.Second)
	v.SetDefault(keyShutdownTimeout, 10*time.Second)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if fs != nil {
		for key, name := range flagBindings {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Port:    v.GetInt(keyPort),
		Verbose: v.GetBool(keyVerbose),
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString(keyDriver)),
			DSN:             v.GetString(keyDSN),
			User:            v.GetString(keyDBUser),
			Password:        v.GetString(keyDBPassword),
			Host:            v.GetString(keyDBHost),
			Port:            v.GetString(keyDBPort),
			Name:            v.GetString(keyDBName),
			SSLMode:         v.GetString(keyDBSSLMode),
			ConnectAttempts: v.GetInt(keyConnectAttempts),
		},
		StaticDir:       v.GetString(keyStaticDir),
		RequestTimeout:  v.GetDuration(keyRequestTimeout),
		ShutdownTimeout: v.GetDuration(keyShutdownTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.DB.Driver {
	case database.DriverSQLite, database.DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown db driver %q", c.DB.Driver)
	}
	if c.DB.Driver == database.DriverPostgres && c.DB.DSN == "" && c.DB.Name == "" {
		return errors.New("postgres needs DATABASE_URL or DB_NAME")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}

// Addr is the listen address on all interfaces.
func (c *Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// DataSourceName returns the DSN for the configured driver. Postgres falls
// back to assembling one from the DB_* parts.
func (c DBConfig) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case database.DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + c.Port,
			Path:     "/" + c.Name,
			RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
		}
		return u.String()
	case database.DriverSQLite:
		return "documents.db"
	}
	return ""
}
