package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
)

// Profile is the top-level shape of a profile file. Every block is optional.
type Profile struct {
	Server *Server `hcl:"server,block"`
	Retry  *Retry  `hcl:"retry,block"`
	Submit *Submit `hcl:"submit,block"`
	Export *Export `hcl:"export,block"`
}

// Server names the engine instance and its credentials.
type Server struct {
	URL      string `hcl:"url,optional"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	Timeout  string `hcl:"timeout,optional"`
}

// Retry bounds the event-stream reconnect policy.
type Retry struct {
	ReconnectInterval string `hcl:"reconnect_interval,optional"`
	MaxRetries        int    `hcl:"max_retries,optional"`
}

// Submit configures the submission side channel.
type Submit struct {
	// ExtraData is free-form; whatever the profile author writes here is
	// sent to the engine verbatim.
	ExtraData cty.Value `hcl:"extra_data,optional"`
}

// Export configures the S3-compatible sink fetched results are mirrored to.
type Export struct {
	Endpoint  string `hcl:"endpoint"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`
	Bucket    string `hcl:"bucket"`
	Prefix    string `hcl:"prefix,optional"`
	UseSSL    bool   `hcl:"use_ssl,optional"`
}

// LoadProfile parses a profile file. The path must end in .hcl.
func LoadProfile(path string) (*Profile, error) {
	var profile Profile
	if err := hclsimple.DecodeFile(path, nil, &profile); err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", path, err)
	}
	return &profile, nil
}

// ParseTimeout resolves the server block's request timeout, zero when unset.
func (s *Server) ParseTimeout() (time.Duration, error) {
	if s == nil || s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid server timeout %q: %w", s.Timeout, err)
	}
	return d, nil
}

// ParseInterval resolves the reconnect interval, zero when unset.
func (r *Retry) ParseInterval() (time.Duration, error) {
	if r == nil || r.ReconnectInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.ReconnectInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid reconnect interval %q: %w", r.ReconnectInterval, err)
	}
	return d, nil
}

// ExtraDataMap converts the profile's free-form extra_data object into the
// JSON-ready form the submission request carries.
func (s *Submit) ExtraDataMap() (map[string]any, error) {
	if s == nil || s.ExtraData.IsNull() {
		return nil, nil
	}
	value, err := FromCtyValue(s.ExtraData)
	if err != nil {
		return nil, fmt.Errorf("invalid extra_data: %w", err)
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("extra_data must be an object, got %T", value)
	}
	return m, nil
}
