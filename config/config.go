package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the configuration for a gatehouse server.
type Config struct {
	LogLevel           string `hcl:"log_level,optional"`
	LogFormat          string `hcl:"log_format,optional"`
	LogFile            string `hcl:"log_file,optional"`
	LogRotateMegabytes int    `hcl:"log_rotate_megabytes,optional"`
	LogRotateMaxFiles  int    `hcl:"log_rotate_max_files,optional"`

	Listeners     []ListenerBlock     `hcl:"listener,block"`
	Storage       *StorageBlock       `hcl:"storage,block"`
	JWT           *JWTBlock           `hcl:"jwt,block"`
	Introspection *IntrospectionBlock `hcl:"introspection,block"`
}

type ListenerBlock struct {
	Name        string `hcl:"name,label"`
	Address     string `hcl:"address"`
	TLSCertFile string `hcl:"tls_cert_file,optional"`
	TLSKeyFile  string `hcl:"tls_key_file,optional"`
	TLSEnabled  bool   `hcl:"tls_enabled,optional"`
}

type StorageBlock struct {
	Type string `hcl:"type,label"` // "inmem"
}

// JWTBlock configures token issuance and validation. The issuer string
// must match exactly between the issuer and all relying services.
type JWTBlock struct {
	Issuer           string `hcl:"issuer"`
	TTLSeconds       int64  `hcl:"ttl_seconds,optional"`
	ClockSkewSeconds int64  `hcl:"clock_skew_seconds,optional"`
}

// IntrospectionBlock configures how a relying service reaches the
// issuer's introspection endpoint.
type IntrospectionBlock struct {
	Endpoint       string `hcl:"endpoint"`
	TimeoutSeconds int64  `hcl:"timeout_seconds,optional"`
}

const (
	// DefaultTokenTTL applies when ttl_seconds is not configured.
	DefaultTokenTTL = 3600 * time.Second

	// Clock-skew tolerance defaults to zero: an expired token is
	// expired the instant its exp claim passes.
	DefaultClockSkew = 0 * time.Second
)

// TokenTTL returns the configured token lifetime.
func (j *JWTBlock) TokenTTL() time.Duration {
	if j == nil || j.TTLSeconds <= 0 {
		return DefaultTokenTTL
	}
	return time.Duration(j.TTLSeconds) * time.Second
}

// ClockSkew returns the configured clock-skew tolerance.
func (j *JWTBlock) ClockSkew() time.Duration {
	if j == nil || j.ClockSkewSeconds <= 0 {
		return DefaultClockSkew
	}
	return time.Duration(j.ClockSkewSeconds) * time.Second
}

// Timeout returns the bounded introspection call timeout.
func (i *IntrospectionBlock) Timeout() time.Duration {
	if i == nil || i.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// LoadConfig loads and validates an HCL configuration file.
func LoadConfig(configFile string) (*Config, error) {
	var config Config
	if err := hclsimple.DecodeFile(configFile, nil, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the parts every mode needs.
func (c *Config) Validate() error {
	if c.JWT == nil || c.JWT.Issuer == "" {
		return fmt.Errorf("jwt block with issuer is required")
	}
	if len(c.Listeners) == 0 {
		return fmt.Errorf("at least one listener is required")
	}
	return nil
}

// GetListenerByName returns a listener by its name (label).
func (c *Config) GetListenerByName(name string) (*ListenerBlock, error) {
	for _, listener := range c.Listeners {
		if listener.Name == name {
			return &listener, nil
		}
	}
	return nil, fmt.Errorf("listener '%s' not found", name)
}

// GetApiListener is a convenience method to get the api listener.
func (c *Config) GetApiListener() (*ListenerBlock, error) {
	return c.GetListenerByName("api")
}
