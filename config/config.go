// Package config loads the subagent's process configuration from a single
// YAML file, grounded on the reference collector's config package: an
// env-var-driven path with a documented default, errors from parsing
// accumulated rather than failing on the first bad field, and a
// withDefaults step that fills in zero values before anything downstream
// sees the struct. It is narrower than the six-directory tree the reference
// collector loads, since this runtime has one coarse decision per adapter
// (which cache, how often) rather than a per-device, per-object MIB to
// assemble at runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnvVar is the environment variable naming the YAML config file.
const PathEnvVar = "AX_SUBAGENT_CONFIG_PATH"

// DefaultPath is used when PathEnvVar is unset or empty.
const DefaultPath = "/etc/ax-subagent/config.yml"

// PathFromEnv resolves the config file path from the environment, falling
// back to DefaultPath.
func PathFromEnv() string {
	if v := os.Getenv(PathEnvVar); v != "" {
		return v
	}
	return DefaultPath
}

// AdapterConfig tunes one background cache's refresh cadence. The zero
// value is valid: both fields fall back to updater.Params' own defaults
// when left unset here.
type AdapterConfig struct {
	// FrequencySeconds is the nominal interval between refresh cycles.
	FrequencySeconds int `yaml:"frequency_seconds"`
	// ReinitRate is the number of refresh cycles between full re-inits.
	ReinitRate int `yaml:"reinit_rate"`
}

// Frequency returns the configured frequency as a time.Duration, or zero if
// unset (letting the caller apply its own default).
func (a AdapterConfig) Frequency() time.Duration {
	if a.FrequencySeconds <= 0 {
		return 0
	}
	return time.Duration(a.FrequencySeconds) * time.Second
}

// Config is the top-level process configuration.
type Config struct {
	// Socket is the AgentX master agent's listening path.
	Socket string `yaml:"socket"`

	// AgentDescr is the human-readable description sent in the Open PDU.
	AgentDescr string `yaml:"agent_descr"`

	// RedisAddr is the address of the state database. It is loaded and
	// defaulted here; ax-subagentd does not read it, and its adapters read
	// through dbconn's in-memory Fake.
	RedisAddr string `yaml:"redis_addr"`

	// Adapters maps adapter name ("arp", "fdb", "ifmib") to its cadence
	// overrides. A missing entry means "use the adapter's own defaults".
	Adapters map[string]AdapterConfig `yaml:"adapters"`
}

const (
	defaultSocket     = "/var/agentx/master"
	defaultRedisAddr  = "127.0.0.1:6379"
	defaultAgentDescr = "ax-subagentd"
)

func (c *Config) withDefaults() {
	if c.Socket == "" {
		c.Socket = defaultSocket
	}
	if c.RedisAddr == "" {
		c.RedisAddr = defaultRedisAddr
	}
	if c.AgentDescr == "" {
		c.AgentDescr = defaultAgentDescr
	}
	if c.Adapters == nil {
		c.Adapters = map[string]AdapterConfig{}
	}
}

// Adapter returns the configuration for the named adapter, or the zero
// value (all defaults) if it has no entry.
func (c *Config) Adapter(name string) AdapterConfig {
	return c.Adapters[name]
}

// Load reads and parses the YAML file at path. A missing file is not an
// error — it yields a Config with every field defaulted, matching the
// reference collector's "missing directory means skip that section"
// tolerance for partial deployments.
func Load(path string) (*Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.withDefaults()
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.withDefaults()
	return &cfg, nil
}
