// Package config binds command-line flags, TIENDA_* environment variables
// and an optional config file into one Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"MiniTienda/pkg/kit"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	envPrefix       = "TIENDA"
	minJWTSecretLen = 32
)

type Config struct {
	Addr     string
	LogLevel string

	Store        string
	ProductsFile string
	SalesFile    string
	DatabaseURL  string
	StrictLoad   bool
	Timezone     string

	Users        []string
	JWTSecret    string
	TokenTTL     time.Duration
	MetricsToken string
	CORSOrigins  []string

	TrustedProxies []string
}

// BindFlags registers every setting on fs and binds it into v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("addr", ":8000", "listen address")
	fs.String("log-level", "info", "log level: debug|info|warn|error")
	fs.String("store", StoreFile, "storage backend: file|postgres|memory")
	fs.String("products-file", "productos.json", "products JSON file (file store)")
	fs.String("sales-file", "ventas.json", "sales JSON file (file store)")
	fs.String("database-url", "", "postgres DSN (postgres store)")
	fs.Bool("strict-load", false, "fail at startup on an unreadable store instead of reinitializing it")
	fs.String("timezone", "Local", "IANA zone for sale dates and export timestamps")
	fs.String("users", "admin:1234,user:abcd", "comma separated name:secret pairs")
	fs.String("jwt-secret", "", "HS256 secret for /auth/token; empty disables bearer tokens")
	fs.Duration("token-ttl", 15*time.Minute, "bearer token lifetime")
	fs.String("metrics-token", "", "bearer token for /metrics; empty disables the endpoint")
	fs.String("cors-origins", "", "comma separated allowed CORS origins")
	fs.String("trusted-proxies", "", "comma separated proxy CIDRs whose X-Forwarded-For is honored")

	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}

// Load reads the optional config file named by the "config" key, then
// builds and validates a Config.
func Load(v *viper.Viper) (Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	c := Config{
		Addr:         v.GetString("addr"),
		LogLevel:     v.GetString("log-level"),
		Store:        strings.ToLower(v.GetString("store")),
		ProductsFile: v.GetString("products-file"),
		SalesFile:    v.GetString("sales-file"),
		DatabaseURL:  v.GetString("database-url"),
		StrictLoad:   v.GetBool("strict-load"),
		Timezone:     v.GetString("timezone"),
		Users:        splitList(v.GetString("users")),
		JWTSecret:    v.GetString("jwt-secret"),
		TokenTTL:     v.GetDuration("token-ttl"),
		MetricsToken: v.GetString("metrics-token"),
		CORSOrigins:  splitList(v.GetString("cors-origins")),

		TrustedProxies: splitList(v.GetString("trusted-proxies")),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreFile:
		if c.ProductsFile == "" || c.SalesFile == "" {
			return errors.New("file store needs products-file and sales-file")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("postgres store needs database-url")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store kind: %s", c.Store)
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("jwt-secret must be at least %d chars", minJWTSecretLen)
	}
	if c.JWTSecret != "" && c.TokenTTL <= 0 {
		return errors.New("token-ttl must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := kit.ParsePrefixes(c.TrustedProxies); err != nil {
		return fmt.Errorf("trusted-proxies: %w", err)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
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
