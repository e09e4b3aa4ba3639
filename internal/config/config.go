package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	MetaTimeout       time.Duration `mapstructure:"meta_timeout" yaml:"meta_timeout"`

	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// StorageConfig holds object storage settings for avatar uploads.
// An empty endpoint disables uploads; generated avatars still work.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "messenger.db",
		LogLevel:          "info",
		MetaTimeout:       3 * time.Second,
		Storage: StorageConfig{
			Bucket: "avatars",
		},
	}
}
