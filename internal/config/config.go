// Package config loads provisioner settings from flags, environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable.
const EnvPrefix = "SAHAAY"

type Config struct {
	Environment string
	Seed        bool
	Timeout     time.Duration
	Database    DatabaseConfig
}

type DatabaseConfig struct {
	URL      string // takes precedence over the discrete fields
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// settings lists every key Load reads. In the environment and in the .env file
// a key is spelled upper-case with "." replaced by "_", optionally SAHAAY_-prefixed.
var settings = []string{"dsn", "seed", "env", "timeout", "db.host", "db.port", "db.user", "db.password", "db.name", "db.sslmode"}

// Load parses args (without the program name) and overlays environment variables.
// Precedence: flags, then SAHAAY_* variables, then configFile (if it exists), then defaults.
func Load(args []string, configFile string) (*Config, error) {
	v := viper.New()
	fset := pflag.NewFlagSet("provision", pflag.ContinueOnError)
	fset.String("dsn", "", "PostgreSQL connection string")
	fset.Bool("seed", false, "insert demo fixtures")
	fset.String("env", "development", "environment (production|development)")
	fset.Duration("timeout", 2*time.Minute, "overall provisioning timeout")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	for _, name := range []string{"dsn", "seed", "env", "timeout"} {
		if err := v.BindPFlag(name, fset.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "sahaay_emergency")
	v.SetDefault("db.sslmode", "disable")

	if configFile != "" {
		if err := mergeEnvFile(v, configFile); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Environment: v.GetString("env"),
		Seed:        v.GetBool("seed"),
		Timeout:     v.GetDuration("timeout"),
		Database: DatabaseConfig{
			URL:      v.GetString("dsn"),
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	return cfg, nil
}

// DSN returns URL when set, otherwise a postgres:// URL built from the discrete fields.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}

// Redacted is DSN with the password masked, for logs.
func (c *DatabaseConfig) Redacted() string {
	u, err := url.Parse(c.DSN())
	if err != nil {
		return "<unparseable dsn>"
	}
	return u.Redacted()
}

// mergeEnvFile folds the dotenv file at path into v at config-file precedence.
// A missing file is not an error. SAHAAY_DB_HOST wins over DB_HOST in the same file.
func mergeEnvFile(v *viper.Viper, path string) error {
	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType("env")
	if err := fv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	merged := map[string]any{}
	for _, key := range settings {
		name := strings.ReplaceAll(key, ".", "_")
		var val any
		for _, k := range []string{strings.ToLower(EnvPrefix) + "_" + name, name} {
			if fv.IsSet(k) {
				val = fv.Get(k)
				break
			}
		}
		if val == nil {
			continue
		}
		// nest "db.host" as {"db": {"host": ...}}
		m := merged
		parts := strings.Split(key, ".")
		for _, part := range parts[:len(parts)-1] {
			sub, ok := m[part].(map[string]any)
			if !ok {
				sub = map[string]any{}
				m[part] = sub
			}
			m = sub
		}
		m[parts[len(parts)-1]] = val
	}
	return v.MergeConfigMap(merged)
}
