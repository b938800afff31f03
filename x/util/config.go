// Package util carries configuration and build metadata helpers
package util

import (
	"log/slog"
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

// Config is gatehouse base configuration
type Config struct {
	Server Server `yaml:"server"`
	Gate   Gate   `yaml:"gate"`
	Auth   Auth   `yaml:"auth"`
}

type Server struct {
	Bind          string `yaml:"bind"`
	Dsn           string `yaml:"dsn"`
	RedisAddr     string `yaml:"redisAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

// Gate configures route classification and the session gate.
type Gate struct {
	PublicPrefixes   []string `yaml:"publicPrefixes"`
	AuthFlowPrefixes []string `yaml:"authflowPrefixes"`
	LoginPath        string   `yaml:"loginPath"`

	ProviderTimeoutMs int `yaml:"providerTimeoutMs"`

	// AllowDegraded lets requests through when the identity provider itself
	// is unreachable (not when a credential is merely invalid). Off unless a
	// deployment explicitly opts in; every degraded allow is logged.
	AllowDegraded bool `yaml:"allowDegraded"`
}

type Auth struct {
	JWTSecret         string `yaml:"jwtSecret"`
	SessionTTLMinutes int    `yaml:"sessionTTLMinutes"`
}

// Load loads gatehouse config from given path
func (c *Config) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("failed to open configuration file", slog.String("error", err.Error()))
		return err
	}
	defer f.Close()

	err = yaml.NewDecoder(f).Decode(&c)
	if err != nil {
		slog.Error("failed to load configuration file", slog.String("error", err.Error()))
		return err
	}

	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Bind == "" {
		c.Server.Bind = ":8000"
	}
	if c.Gate.LoginPath == "" {
		c.Gate.LoginPath = "/auth/login"
	}
	if c.Gate.ProviderTimeoutMs <= 0 {
		c.Gate.ProviderTimeoutMs = 3000
	}
	if c.Auth.SessionTTLMinutes <= 0 {
		c.Auth.SessionTTLMinutes = 720
	}
}

// ProviderTimeout is the bound on a single identity provider call.
func (g Gate) ProviderTimeout() time.Duration {
	if g.ProviderTimeoutMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(g.ProviderTimeoutMs) * time.Millisecond
}

// SessionTTL is the lifetime of a newly opened session.
func (a Auth) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}
