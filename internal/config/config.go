// Package config loads the fetcher configuration from an appsettings file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/graph"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/ldapdir"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/logging"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "appsettings.json"

// ErrInvalidGraphConfig is returned when the app registration is incomplete.
var ErrInvalidGraphConfig = errors.New("invalid Azure AD configuration: make sure to provide all required properties in your app settings")

// Config is the root configuration.
//
// Sources, first match wins:
//  1. the path passed to Load;
//  2. the CONFIG_PATH environment variable;
//  3. ./appsettings.json;
//  4. environment variables only.
//
// A file is overlaid by appsettings.{APP_ENV}.json next to it when that
// exists. Environment variables override file values.
type Config struct {
	Graph   GraphConfig   `json:"graph"`
	LDAP    LDAPConfig    `json:"ldap"`
	Store   StoreConfig   `json:"store"`
	Redis   RedisConfig   `json:"redis"`
	Log     LogConfig     `json:"log"`
	Metrics MetricsConfig `json:"metrics"`
}

// GraphConfig is the Azure AD app registration and Graph endpoint.
type GraphConfig struct {
	TenantID     string   `json:"tenantId"     env:"GRAPH_TENANT_ID"`
	ClientID     string   `json:"clientId"     env:"GRAPH_CLIENT_ID"`
	ClientSecret string   `json:"clientSecret" env:"GRAPH_CLIENT_SECRET"`
	BaseURL      string   `json:"baseUrl"      env:"GRAPH_BASE_URL"   env-default:"https://graph.microsoft.com/v1.0"`
	TokenURL     string   `json:"tokenUrl"     env:"GRAPH_TOKEN_URL"`
	PageSize     int      `json:"pageSize"     env:"GRAPH_PAGE_SIZE"  env-default:"100"`
	Timeout      Duration `json:"timeout"      env:"GRAPH_TIMEOUT"    env-default:"30s"`
	UserAgent    string   `json:"userAgent"    env:"GRAPH_USER_AGENT" env-default:"msgraph-fetcher/1.0"`
}

// LDAPConfig describes the directory server used with --source ldap.
type LDAPConfig struct {
	URL                string   `json:"url"                env:"LDAP_URL"`
	BindDN             string   `json:"bindDn"             env:"LDAP_BIND_DN"`
	BindPassword       string   `json:"bindPassword"       env:"LDAP_BIND_PASSWORD"`
	BaseDN             string   `json:"baseDn"             env:"LDAP_BASE_DN"`
	UserFilter         string   `json:"userFilter"         env:"LDAP_USER_FILTER"`
	GroupFilter        string   `json:"groupFilter"        env:"LDAP_GROUP_FILTER"`
	PageSize           uint32   `json:"pageSize"           env:"LDAP_PAGE_SIZE"    env-default:"500"`
	Timeout            Duration `json:"timeout"            env:"LDAP_TIMEOUT"      env-default:"30s"`
	InsecureSkipVerify bool     `json:"insecureSkipVerify" env:"LDAP_INSECURE_SKIP_VERIFY"`
}

// StoreConfig controls where and how entities are written.
type StoreConfig struct {
	// BaseDir defaults to the MSGraph folder next to the executable.
	BaseDir string `json:"baseDir" env:"STORE_BASE_DIR"`
	// Compact disables indentation.
	Compact bool `json:"compact" env:"STORE_COMPACT"`
}

// RedisConfig enables the shared token cache and throttle state. An empty
// Addr disables Redis.
type RedisConfig struct {
	Addr     string `json:"addr"     env:"REDIS_ADDR"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db"       env:"REDIS_DB"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Pretty bool   `json:"pretty" env:"LOG_PRETTY"`
}

// MetricsConfig enables the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `json:"addr" env:"METRICS_ADDR"`
}

// Load reads the configuration. It does not validate source credentials;
// call ValidateGraph or ValidateLDAP for the source in use.
func Load(path string) (*Config, error) {
	var cfg Config

	read := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", p)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", p, err)
		}
		if overlay := overlayPath(p, os.Getenv("APP_ENV")); overlay != "" {
			if err := cleanenv.ReadConfig(overlay, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", overlay, err)
			}
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if path != "" {
		return read(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return read(envPath)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return read(DefaultFile)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overlayPath returns dir/stem.env.ext when it exists.
func overlayPath(path, env string) string {
	env = strings.TrimSpace(env)
	if env == "" {
		return ""
	}
	ext := filepath.Ext(path)
	p := strings.TrimSuffix(path, ext) + "." + env + ext
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// validate checks values that are wrong for every source.
func (c *Config) validate() error {
	if c.Graph.PageSize < 0 || c.Graph.PageSize > graph.MaxPageSize {
		return fmt.Errorf("graph.pageSize must be between 0 and %d", graph.MaxPageSize)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ValidateGraph reports whether the app registration is complete.
func (c *Config) ValidateGraph() error {
	var missing []string
	if strings.TrimSpace(c.Graph.TenantID) == "" {
		missing = append(missing, "graph.tenantId")
	}
	if strings.TrimSpace(c.Graph.ClientID) == "" {
		missing = append(missing, "graph.clientId")
	}
	if strings.TrimSpace(c.Graph.ClientSecret) == "" {
		missing = append(missing, "graph.clientSecret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w (missing %s)", ErrInvalidGraphConfig, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateLDAP reports whether the directory settings are usable.
func (c *Config) ValidateLDAP() error {
	return c.LDAPSource().Validate()
}

// GraphClient builds the Graph client configuration. rdb may be nil.
func (c *Config) GraphClient(rdb *redis.Client) graph.Config {
	cfg := graph.DefaultConfig(c.Graph.TenantID, c.Graph.ClientID, c.Graph.ClientSecret)
	if c.Graph.BaseURL != "" {
		cfg.BaseURL = c.Graph.BaseURL
	}
	cfg.TokenURL = c.Graph.TokenURL
	cfg.PageSize = c.Graph.PageSize
	if c.Graph.Timeout > 0 {
		cfg.Timeout = c.Graph.Timeout.Std()
	}
	if c.Graph.UserAgent != "" {
		cfg.UserAgent = c.Graph.UserAgent
	}
	cfg.Redis = rdb
	return cfg
}

// LDAPSource builds the LDAP source configuration.
func (c *Config) LDAPSource() ldapdir.Config {
	return ldapdir.Config{
		URL:                c.LDAP.URL,
		BindDN:             c.LDAP.BindDN,
		BindPassword:       c.LDAP.BindPassword,
		BaseDN:             c.LDAP.BaseDN,
		UserFilter:         c.LDAP.UserFilter,
		GroupFilter:        c.LDAP.GroupFilter,
		PageSize:           c.LDAP.PageSize,
		Timeout:            c.LDAP.Timeout.Std(),
		InsecureSkipVerify: c.LDAP.InsecureSkipVerify,
	}.WithDefaults()
}

// RedisOptions returns nil when Redis is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// Logging builds the logger configuration.
func (c *Config) Logging() logging.Config {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.Log.Pretty
	return cfg
}
