package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddress = "127.0.0.1:8000"
	DefaultTimeout       = 30 * time.Second
	DefaultQueueTimeout  = 75 * time.Second
	DefaultInstanceName  = "default"
)

var ErrNoInstances = errors.New("no instances configured: set backend_url and model, or an instances list")

// LoadEnvFile loads KEY=value pairs into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads the optional config file, overlays PROXY_* environment
// variables and returns the validated configuration.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("listen_address", DefaultListenAddress)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("queue_timeout", DefaultQueueTimeout)
	v.SetDefault("max_concurrent", 0)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.allow_credentials", true)

	v.SetEnvPrefix("PROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"backend_url", "model"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var configuration Config
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	configuration.applyInstanceDefaults()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

func (c *Config) applyInstanceDefaults() {
	if len(c.Instances) == 0 {
		if c.BackendURL == "" && c.Model == "" {
			return
		}
		c.Instances = []InstanceConfig{{
			Name:          DefaultInstanceName,
			ListenAddress: c.ListenAddress,
			BackendURL:    c.BackendURL,
			Model:         c.Model,
		}}
	}
	for i := range c.Instances {
		inst := &c.Instances[i]
		if inst.Name == "" {
			inst.Name = fmt.Sprintf("instance%d", i+1)
		}
		if inst.ListenAddress == "" {
			inst.ListenAddress = c.ListenAddress
		}
		if inst.Timeout == 0 {
			inst.Timeout = c.Timeout
		}
		if inst.QueueTimeout == 0 {
			inst.QueueTimeout = c.QueueTimeout
		}
		if inst.MaxConcurrent == nil {
			inst.MaxConcurrent = Int(c.MaxConcurrent)
		}
	}
}

// Validate checks every instance and the uniqueness of names and addresses.
func (c *Config) Validate() error {
	if len(c.Instances) == 0 {
		return ErrNoInstances
	}
	names := make(map[string]struct{}, len(c.Instances))
	addrs := make(map[string]string, len(c.Instances))
	for _, inst := range c.Instances {
		if _, dup := names[inst.Name]; dup {
			return fmt.Errorf("duplicate instance name %q", inst.Name)
		}
		names[inst.Name] = struct{}{}
		if other, dup := addrs[inst.ListenAddress]; dup {
			return fmt.Errorf("instances %q and %q share listen_address %s", other, inst.Name, inst.ListenAddress)
		}
		addrs[inst.ListenAddress] = inst.Name
		if err := inst.Validate(); err != nil {
			return fmt.Errorf("instance %q: %w", inst.Name, err)
		}
	}
	return nil
}

// Validate checks a single instance.
func (i InstanceConfig) Validate() error {
	if i.BackendURL == "" {
		return errors.New("backend_url is required")
	}
	u, err := url.Parse(i.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend_url must be an absolute http(s) URL, got %q", i.BackendURL)
	}
	if i.Model == "" {
		return errors.New("model is required")
	}
	if i.ListenAddress == "" {
		return errors.New("listen_address is required")
	}
	if i.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if i.Limit() < 0 {
		return errors.New("max_concurrent must not be negative")
	}
	if i.Limit() > 0 && i.QueueTimeout <= 0 {
		return errors.New("queue_timeout must be positive when max_concurrent is set")
	}
	return nil
}
