package config

import "time"

// InstanceConfig represents the configuration for a single proxy instance.
type InstanceConfig struct {
	Name          string        `mapstructure:"name"`
	ListenAddress string        `mapstructure:"listen_address"`
	BackendURL    string        `mapstructure:"backend_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent *int          `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout"`
}

// Limit returns the in-flight cap; 0 means unlimited.
func (i InstanceConfig) Limit() int {
	if i.MaxConcurrent == nil {
		return 0
	}
	return *i.MaxConcurrent
}

// Int returns a pointer to v, for building InstanceConfig literals.
func Int(v int) *int {
	return &v
}

// CORSConfig is shared by every instance.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// Config holds the application configuration.
//
// The top-level ListenAddress, BackendURL and Model describe a single
// instance and are only used when Instances is empty. Timeout, MaxConcurrent
// and QueueTimeout are defaults inherited by instances that leave them unset;
// an instance setting max_concurrent: 0 explicitly is unlimited.
type Config struct {
	LogLevel      string           `mapstructure:"log_level"`
	CORS          CORSConfig       `mapstructure:"cors"`
	Instances     []InstanceConfig `mapstructure:"instances"`
	ListenAddress string           `mapstructure:"listen_address"`
	BackendURL    string           `mapstructure:"backend_url"`
	Model         string           `mapstructure:"model"`
	Timeout       time.Duration    `mapstructure:"timeout"`
	MaxConcurrent int              `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration    `mapstructure:"queue_timeout"`
}
