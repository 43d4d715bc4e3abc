package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Binding types.
const (
	TypeMemory     = "memory"
	TypeFilesystem = "filesystem"
	TypeS3         = "s3"
	TypeMinio      = "minio"
)

// DefaultTable is the metadata table used by filesystem bindings that do not
// name one.
const DefaultTable = "bucketgate_objects"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for bucketgate.
type Config struct {
	Env      string                   `mapstructure:"env"`
	Server   ServerConfig             `mapstructure:"server"`
	Bucket   BucketConfig             `mapstructure:"bucket"`
	Bindings map[string]BindingConfig `mapstructure:"bindings" validate:"dive"`
	Metrics  MetricsConfig            `mapstructure:"metrics"`
	Log      LogConfig                `mapstructure:"log"`
}

// IsProduction reports whether env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
//
// ReadTimeout bounds the whole request including its body, so it is off by
// default to keep large uploads streaming. ReadHeaderTimeout always applies.
type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"min=0"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
}

// BucketConfig selects the binding the gateway serves. An empty Binding is
// not a load error; the gateway reports it per request.
type BucketConfig struct {
	Binding string `mapstructure:"binding"`
}

// BindingConfig describes one named store.
type BindingConfig struct {
	Type     string         `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem s3 minio"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage,omitempty"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database,omitempty"`
	S3       S3Config       `mapstructure:"s3" yaml:"s3,omitempty"`
	Minio    MinioConfig    `mapstructure:"minio" yaml:"minio,omitempty"`
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// DatabaseConfig holds the metadata backend of a filesystem binding.
type DatabaseConfig struct {
	Type        string `mapstructure:"type" yaml:"type,omitempty" validate:"omitempty,oneof=sqlite postgres badger"`
	DSN         string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	Table       string `mapstructure:"table" yaml:"table,omitempty"`
	AutoMigrate *bool  `mapstructure:"auto_migrate" yaml:"auto_migrate,omitempty"`
}

// Migrate reports whether the schema should be created on open. It defaults
// to true.
func (d DatabaseConfig) Migrate() bool {
	return d.AutoMigrate == nil || *d.AutoMigrate
}

// S3Config holds an AWS S3 (or compatible) binding.
type S3Config struct {
	Bucket       string `mapstructure:"bucket" yaml:"bucket"`
	Region       string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKey    string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey    string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	UsePathStyle bool   `mapstructure:"use_path_style" yaml:"use_path_style,omitempty"`
}

// MinioConfig holds a MinIO binding.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl,omitempty"`
}

// MetricsConfig holds the Prometheus listener configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":         "server.port",
	"binding":      "bucket.binding",
	"metrics":      "metrics.enabled",
	"metrics-addr": "metrics.addr",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 8787)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.read_timeout", 0) // streaming bodies have no upper bound
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("bucket.binding", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("BUCKETGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.validateBindings(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// normalize lowercases binding names and fills per-type defaults.
func (c *Config) normalize() {
	c.Bucket.Binding = strings.ToLower(strings.TrimSpace(c.Bucket.Binding))

	bindings := make(map[string]BindingConfig, len(c.Bindings))
	for name, b := range c.Bindings {
		b.Type = strings.ToLower(b.Type)
		if b.Type == TypeFilesystem {
			if b.Database.Type == "" {
				b.Database.Type = "sqlite"
			}
			if b.Database.Table == "" {
				b.Database.Table = DefaultTable
			}
		}
		bindings[strings.ToLower(name)] = b
	}
	c.Bindings = bindings
}

// validateBindings checks the fields each binding type needs.
func (c *Config) validateBindings() error {
	var errs []error
	for _, name := range c.BindingNames() {
		b := c.Bindings[name]
		switch b.Type {
		case TypeFilesystem:
			if b.Storage.Path == "" {
				errs = append(errs, fmt.Errorf("binding %q: storage.path is required", name))
			}
			if b.Database.DSN == "" {
				errs = append(errs, fmt.Errorf("binding %q: database.dsn is required", name))
			}
		case TypeS3:
			if b.S3.Bucket == "" {
				errs = append(errs, fmt.Errorf("binding %q: s3.bucket is required", name))
			}
		case TypeMinio:
			if b.Minio.Endpoint == "" {
				errs = append(errs, fmt.Errorf("binding %q: minio.endpoint is required", name))
			}
			if b.Minio.Bucket == "" {
				errs = append(errs, fmt.Errorf("binding %q: minio.bucket is required", name))
			}
		}
	}
	return errors.Join(errs...)
}

// BindingNames returns the configured binding names in sorted order.
func (c *Config) BindingNames() []string {
	return slices.Sorted(maps.Keys(c.Bindings))
}
