package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/database"
	vaulthttp "github.com/sagarc03/cybervault/http"
	"github.com/sagarc03/cybervault/s3store"
	"github.com/sagarc03/cybervault/stowrystore"
)

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

// Config is the root configuration struct for cybervault.
type Config struct {
	Env      string               `mapstructure:"env" validate:"omitempty,oneof=dev development prod production"`
	Server   ServerConfig         `mapstructure:"server"`
	Vault    VaultConfig          `mapstructure:"vault"`
	Database database.Config      `mapstructure:"database"`
	Storage  StorageConfig        `mapstructure:"storage"`
	Auth     AuthConfig           `mapstructure:"auth"`
	Session  SessionConfig        `mapstructure:"session"`
	CORS     vaulthttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig            `mapstructure:"log"`
}

// IsProduction reports whether env selects production logging.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxRequestSize  int64         `mapstructure:"max_request_size" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics"`
}

// VaultConfig holds upload and consistency settings shared by the server and CLI.
type VaultConfig struct {
	Consistency    string        `mapstructure:"consistency" validate:"required,oneof=compensate best_effort"`
	CleanupTimeout time.Duration `mapstructure:"cleanup_timeout"`
	MaxUploadSize  int64         `mapstructure:"max_upload_size" validate:"min=0"`
}

// ConsistencyMode returns the parsed consistency mode.
func (v VaultConfig) ConsistencyMode() cybervault.ConsistencyMode {
	return cybervault.ConsistencyMode(v.Consistency)
}

// StorageConfig selects and configures the blob store.
type StorageConfig struct {
	Backend string             `mapstructure:"backend" validate:"required,oneof=filesystem s3 stowry"`
	Path    string             `mapstructure:"path" validate:"required_if=Backend filesystem"`
	S3      s3store.Config     `mapstructure:"s3"`
	Stowry  stowrystore.Config `mapstructure:"stowry"`
}

// AuthConfig holds access token and revocation configuration.
type AuthConfig struct {
	Secret     string        `mapstructure:"secret" validate:"omitempty,min=32"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Revocation string        `mapstructure:"revocation" validate:"required,oneof=memory redis"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

// RedisConfig locates the Redis server used for token revocation.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// SessionConfig holds CLI session persistence settings.
type SessionConfig struct {
	// Path of the session file. Empty uses ~/.cybervault/session.yaml.
	Path string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-path": "storage.path",
	"storage":      "storage.backend",
	"port":         "server.port",
	"consistency":  "vault.consistency",
	"session-file": "session.path",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
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

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.max_request_size", 1<<30)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.metrics", true)

	v.SetDefault("vault.consistency", string(cybervault.ConsistencyCompensate))
	v.SetDefault("vault.cleanup_timeout", 30*time.Second)
	v.SetDefault("vault.max_upload_size", cybervault.DefaultMaxUploadSize)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "cybervault.db")
	v.SetDefault("database.tables.files", "files")
	v.SetDefault("database.tables.users", "users")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.revocation", "memory")
	v.SetDefault("auth.redis.addr", "localhost:6379")
}

// bindEnvKeys registers keys that have no default so AutomaticEnv can still
// find them during Unmarshal. Must run after SetEnvPrefix.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"auth.secret",
		"auth.redis.password",
		"session.path",
		"log.level",
		"storage.s3.bucket",
		"storage.s3.endpoint",
		"storage.s3.access_key",
		"storage.s3.secret_key",
		"storage.s3.prefix",
		"storage.s3.path_style",
		"storage.stowry.endpoint",
		"storage.stowry.access_key",
		"storage.stowry.secret_key",
	} {
		_ = v.BindEnv(key)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateStorage, StorageConfig{})
	v.RegisterStructValidation(validateAuth, AuthConfig{})
	return v
}

func validateStorage(sl validator.StructLevel) {
	s := sl.Current().Interface().(StorageConfig)
	switch s.Backend {
	case "s3":
		if s.S3.Bucket == "" {
			sl.ReportError(s.S3.Bucket, "S3.Bucket", "bucket", "required", "")
		}
	case "stowry":
		if s.Stowry.Endpoint == "" {
			sl.ReportError(s.Stowry.Endpoint, "Stowry.Endpoint", "endpoint", "required", "")
		}
	}
}

func validateAuth(sl validator.StructLevel) {
	a := sl.Current().Interface().(AuthConfig)
	if a.Revocation == "redis" && a.Redis.Addr == "" {
		sl.ReportError(a.Redis.Addr, "Redis.Addr", "addr", "required", "")
	}
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
	v.SetEnvPrefix("CYBERVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
