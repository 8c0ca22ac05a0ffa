package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	AdminAddr string `mapstructure:"admin_addr" yaml:"admin_addr"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	StorageDir   string `mapstructure:"storage_dir" yaml:"storage_dir"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	PingInterval    time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	PresenceTimeout time.Duration `mapstructure:"presence_timeout" yaml:"presence_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	OutboundQueueSize int `mapstructure:"outbound_queue_size" yaml:"outbound_queue_size"`
	RouterQueueSize   int `mapstructure:"router_queue_size" yaml:"router_queue_size"`
	HistoryLimit      int `mapstructure:"history_limit" yaml:"history_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8888",
		AdminAddr:         ":8889",
		DatabasePath:      "chat_server.db",
		StorageDir:        "storage",
		LogLevel:          "info",
		LogFormat:         "console",
		PingInterval:      30 * time.Second,
		PresenceTimeout:   60 * time.Second,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		OutboundQueueSize: 64,
		RouterQueueSize:   256,
		HistoryLimit:      100,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.AdminAddr != "" {
		c.AdminAddr = other.AdminAddr
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.StorageDir != "" {
		c.StorageDir = other.StorageDir
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.PingInterval != 0 {
		c.PingInterval = other.PingInterval
	}
	if other.PresenceTimeout != 0 {
		c.PresenceTimeout = other.PresenceTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.OutboundQueueSize != 0 {
		c.OutboundQueueSize = other.OutboundQueueSize
	}
	if other.RouterQueueSize != 0 {
		c.RouterQueueSize = other.RouterQueueSize
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
}
