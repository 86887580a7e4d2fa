package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "SOCIALS"

const (
	StateStoreCookie = "cookie"
	StateStoreRedis  = "redis"

	minJWTSecretLength = 32
)

var (
	ErrMySQLRequired     = errors.New("config: MySQL is required (set SOCIALS_MYSQL_DSN or SOCIALS_MYSQL_HOST)")
	ErrInvalidLogLevel   = errors.New("config: log level must be one of debug, info, warn, error")
	ErrOAuthIncomplete   = errors.New("config: OAuth needs a base URL, a JWT secret and at least one provider")
	ErrJWTSecretLength   = errors.New("config: JWT secret must be at least 32 characters")
	ErrUnknownStateStore = errors.New("config: state store must be cookie or redis")
	ErrRedisRequired     = errors.New("config: redis state store needs SOCIALS_REDIS_ADDR")
)

type Config struct {
	Production bool   `envconfig:"production"`
	LogLevel   string `envconfig:"log_level" default:"info"`

	Server ServerConfig `envconfig:"server"`
	MySQL  MySQLConfig  `envconfig:"mysql"`
	Redis  RedisConfig  `envconfig:"redis"`
	OAuth  OAuthConfig  `envconfig:"oauth"`
}

type ServerConfig struct {
	Port              int    `envconfig:"port" default:"8080"`
	ReadTimeout       int    `envconfig:"read_timeout" default:"15"`
	WriteTimeout      int    `envconfig:"write_timeout" default:"15"`
	IdleTimeout       int    `envconfig:"idle_timeout" default:"60"`
	ShutdownTimeout   int    `envconfig:"shutdown_timeout" default:"30"`
	TLSCertFile       string `envconfig:"tls_cert_file"`
	TLSKeyFile        string `envconfig:"tls_key_file"`
	TrustedProxyCIDRs string `envconfig:"trusted_proxy_cidrs" default:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,::1/128,fc00::/7"`
}

func (c ServerConfig) TLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

type MySQLConfig struct {
	RawDSN   string   `envconfig:"dsn"`
	Host     string   `envconfig:"host"`
	Port     int      `envconfig:"port" default:"3306"`
	User     string   `envconfig:"user" default:"root"`
	Password string   `envconfig:"password"`
	Database string   `envconfig:"database" default:"socials"`
	Replicas []string `envconfig:"replicas"`

	MaxOpenConns       int `envconfig:"max_open_conns"`
	MaxIdleConns       int `envconfig:"max_idle_conns"`
	ConnMaxLifetimeSec int `envconfig:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `envconfig:"addr"`
	Password string `envconfig:"password"`
	DB       int    `envconfig:"db"`
}

type OAuthConfig struct {
	BaseURL    string `envconfig:"base_url"`
	JWTSecret  string `envconfig:"jwt_secret"`
	SuccessURL string `envconfig:"success_url" default:"/"`
	// StateStore is where authorization states wait for the callback.
	StateStore string `envconfig:"state_store" default:"cookie"`
	// SessionKey signs the state cookie; the JWT secret is used when empty.
	SessionKey string `envconfig:"session_key"`

	Discord   DiscordConfig   `envconfig:"discord"`
	Google    GoogleConfig    `envconfig:"google"`
	GitHub    GitHubConfig    `envconfig:"github"`
	Facebook  FacebookConfig  `envconfig:"facebook"`
	Microsoft MicrosoftConfig `envconfig:"microsoft"`
	TikTok    TikTokConfig    `envconfig:"tiktok"`
}

// ProviderConfig is the part every provider shares. A provider is enabled
// once both client ID and secret are set.
type ProviderConfig struct {
	ClientID     string   `envconfig:"client_id"`
	ClientSecret string   `envconfig:"client_secret"`
	Scopes       []string `envconfig:"scopes"`
}

func (p ProviderConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type DiscordConfig struct {
	ProviderConfig
	Prompt string `envconfig:"prompt"`
}

type GoogleConfig struct {
	ProviderConfig
	AccessType           string `envconfig:"access_type"`
	IncludeGrantedScopes bool   `envconfig:"include_granted_scopes"`
	Prompt               string `envconfig:"prompt"`
	HostedDomain         string `envconfig:"hosted_domain"`
}

type GitHubConfig struct {
	ProviderConfig
	AllowSignup *bool  `envconfig:"allow_signup"`
	UserAgent   string `envconfig:"user_agent"`
}

type FacebookConfig struct {
	ProviderConfig
	GraphAPIVersion string   `envconfig:"graph_api_version"`
	ExtraFields     []string `envconfig:"extra_fields"`
}

type MicrosoftConfig struct {
	ProviderConfig
	Tenant string `envconfig:"tenant"`
	Prompt string `envconfig:"prompt"`
}

type TikTokConfig struct {
	ProviderConfig
	ExtraFields []string `envconfig:"extra_fields"`
}

// Load reads the configuration from SOCIALS_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration. MySQL and OAuth are only mandatory when
// the caller asks for them.
func (c *Config) Validate(requireMySQL, requireOAuth bool) error {
	if requireMySQL && c.MySQL.DSN() == "" {
		return ErrMySQLRequired
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch c.OAuth.StateStore {
	case "", StateStoreCookie:
	case StateStoreRedis:
		if c.Redis.Addr == "" {
			return ErrRedisRequired
		}
	default:
		return ErrUnknownStateStore
	}
	if requireOAuth {
		if c.OAuth.BaseURL == "" || c.OAuth.JWTSecret == "" || len(c.OAuth.Enabled()) == 0 {
			return ErrOAuthIncomplete
		}
		if len(c.OAuth.JWTSecret) < minJWTSecretLength {
			return ErrJWTSecretLength
		}
	}
	return nil
}

// Enabled lists the names of the providers with credentials.
func (c OAuthConfig) Enabled() []string {
	var out []string
	for name, p := range map[string]ProviderConfig{
		"discord":   c.Discord.ProviderConfig,
		"facebook":  c.Facebook.ProviderConfig,
		"github":    c.GitHub.ProviderConfig,
		"google":    c.Google.ProviderConfig,
		"microsoft": c.Microsoft.ProviderConfig,
		"tiktok":    c.TikTok.ProviderConfig,
	} {
		if p.Enabled() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// CallbackURL is where provider redirects land for the named provider.
func (c OAuthConfig) CallbackURL(provider string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/" + provider + "/callback"
}

func (c OAuthConfig) StateKey() []byte {
	if c.SessionKey != "" {
		return []byte(c.SessionKey)
	}
	return []byte(c.JWTSecret)
}

// DSN is the driver connection string. Timestamps are scanned into
// time.Time and migrations need multi statements, so both flags are forced
// on a raw DSN too.
func (c MySQLConfig) DSN() string {
	if c.RawDSN != "" {
		cfg, err := mysql.ParseDSN(c.RawDSN)
		if err != nil {
			// Left as is; opening the pool reports the error.
			return c.RawDSN
		}
		cfg.ParseTime = true
		cfg.MultiStatements = true
		return cfg.FormatDSN()
	}
	if c.Host == "" {
		return ""
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}
