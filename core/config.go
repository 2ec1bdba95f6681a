package core

import (
	"fmt"
	"net/url"
	"strings"
)

// EndpointConfig is the immutable description of the remote ERP endpoint and
// the service account used to reach it. It is created at process start and
// never mutated afterwards.
type EndpointConfig struct {
	BaseURL  string `koanf:"base_url" mapstructure:"base_url"`
	Database string `koanf:"database" mapstructure:"database"`
	Username string `koanf:"username" mapstructure:"username"`
	Secret   string `koanf:"secret" mapstructure:"secret"`
}

func (c EndpointConfig) Validate() error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return fmt.Errorf("core: endpoint base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: endpoint base_url %q is not an absolute url", base)
	}
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("core: endpoint database is required")
	}
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("core: endpoint username is required")
	}
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("core: endpoint secret is required")
	}
	return nil
}

type ServerConfig struct {
	Addr string `koanf:"addr" mapstructure:"addr"`
}

type AuditConfig struct {
	DSN string `koanf:"dsn" mapstructure:"dsn"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Endpoint    EndpointConfig `koanf:"endpoint" mapstructure:"endpoint"`
	Server      ServerConfig   `koanf:"server" mapstructure:"server"`
	Audit       AuditConfig    `koanf:"audit" mapstructure:"audit"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "erp-bridge",
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	return nil
}
