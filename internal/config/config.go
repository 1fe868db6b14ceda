package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath       string        `mapstructure:"database_path" yaml:"database_path"`
	StoreRetryInterval time.Duration `mapstructure:"store_retry_interval" yaml:"store_retry_interval"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// AdminUsername/AdminPassword seed the bootstrap admin account on start.
	// Leaving the password empty skips seeding.
	AdminUsername string `mapstructure:"admin_username" yaml:"admin_username"`
	AdminPassword string `mapstructure:"admin_password" yaml:"admin_password"`

	UploadDir      string `mapstructure:"upload_dir" yaml:"upload_dir"`
	PublicBaseURL  string `mapstructure:"public_base_url" yaml:"public_base_url"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`

	// ClientBuffer is the per-connection outbound event queue length.
	ClientBuffer int `mapstructure:"client_buffer" yaml:"client_buffer"`
	// WSRateLimit caps inbound live events per connection per WSRateWindow; 0 disables it.
	WSRateLimit    int           `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"`
	WSRateWindow   time.Duration `mapstructure:"ws_rate_window" yaml:"ws_rate_window"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":5001",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		DatabasePath:       "shopdesk.db",
		StoreRetryInterval: 10 * time.Second,
		JWTSecret:          "change-me",
		JWTIssuer:          "shopdesk",
		JWTAudience:        "shopdesk",
		JWTTTL:             24 * time.Hour,
		AdminUsername:      "admin",
		UploadDir:          "uploads",
		MaxUploadBytes:     10 << 20,
		ClientBuffer:       32,
		WSRateLimit:        120,
		WSRateWindow:       time.Minute,
		AllowedOrigins:     []string{"*"},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.StoreRetryInterval != 0 {
		c.StoreRetryInterval = other.StoreRetryInterval
	}
	if other.UploadDir != "" {
		c.UploadDir = other.UploadDir
	}
	if other.PublicBaseURL != "" {
		c.PublicBaseURL = other.PublicBaseURL
	}
}
