// Package config loads CLI settings from sidecards.yaml, SIDECARDS_*
// environment variables and command flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Kazi-Aidah/sidecards/internal/platform"
)

// FileName is the vault-level configuration file.
const FileName = "sidecards.yaml"

// EnvPrefix prefixes every environment override (SIDECARDS_REDIS_ADDR, ...).
const EnvPrefix = "SIDECARDS"

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Config is the resolved configuration of one CLI invocation.
type Config struct {
	Vault      string        `mapstructure:"vault"`
	Folder     string        `mapstructure:"folder"`
	Pattern    string        `mapstructure:"pattern"`
	SystemDir  string        `mapstructure:"system_dir"`
	Settings   string        `mapstructure:"settings"` // settings backend
	SQLitePath string        `mapstructure:"sqlite_path"`
	Redis      Redis         `mapstructure:"redis"`
	Versioning *bool         `mapstructure:"versioning"` // nil follows the vault
	ReadOnly   bool          `mapstructure:"read_only"`
	DevSafety  bool          `mapstructure:"dev_safety"`
	SaveDelay  time.Duration `mapstructure:"save_delay"`
	BulkDelay  time.Duration `mapstructure:"bulk_delay"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("vault", ".")
	v.SetDefault("folder", "")
	v.SetDefault("pattern", "**/*.md")
	v.SetDefault("system_dir", ".sidecards")
	v.SetDefault("settings", platform.BackendJSON)
	v.SetDefault("sqlite_path", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", time.Duration(0))
	v.SetDefault("read_only", false)
	v.SetDefault("dev_safety", true)
	v.SetDefault("save_delay", 2*time.Second)
	v.SetDefault("bulk_delay", 5*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	_ = v.BindEnv("versioning")
	return v
}

// BindFlags binds the flags that share a name with a config key. Flags
// use dashes where keys use underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch key {
		case "redis_addr", "redis_password", "redis_db", "redis_ttl":
			key = "redis." + strings.TrimPrefix(key, "redis_")
		}
		if key == "config" || key == "verbose" {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Load reads the configuration. An explicit file must exist; otherwise
// sidecards.yaml is looked up in dir, and its absence is not an error.
func Load(v *viper.Viper, file, dir string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// Unset means "follow the vault"; a bound flag's default must not count.
	cfg.Versioning = nil
	if v.IsSet("versioning") {
		enabled := v.GetBool("versioning")
		cfg.Versioning = &enabled
	}
	cfg.File = v.ConfigFileUsed()
	if cfg.File != "" && !filepath.IsAbs(cfg.Vault) {
		// Relative vaults in a config file are relative to the file.
		if v.InConfig("vault") {
			cfg.Vault = filepath.Join(filepath.Dir(cfg.File), cfg.Vault)
		}
	}
	return &cfg, nil
}

// Options translates the configuration into vault options.
func (c *Config) Options() []platform.Option {
	opts := []platform.Option{
		platform.WithNotesFolder(c.Folder),
		platform.WithPattern(c.Pattern),
		platform.WithSystemDir(c.SystemDir),
		platform.WithSettingsBackend(c.Settings),
		platform.WithReadOnly(c.ReadOnly),
		platform.WithDevSafety(c.DevSafety),
		platform.WithDelays(c.SaveDelay, c.BulkDelay),
	}
	if c.Versioning != nil {
		opts = append(opts, platform.WithVersioning(*c.Versioning))
	}
	switch c.Settings {
	case platform.BackendRedis:
		opts = append(opts,
			platform.WithRedis(c.Redis.Addr, c.Redis.Password, c.Redis.DB),
			platform.WithRedisTTL(c.Redis.TTL),
		)
	case platform.BackendSQLite:
		if c.SQLitePath != "" {
			opts = append(opts, platform.WithSQLitePath(c.SQLitePath))
		}
	}
	return opts
}

// Write stores the non-default parts of cfg as a sidecards.yaml in dir,
// unless one exists already.
func Write(dir string, cfg Config) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if cfg.Folder != "" {
		v.Set("folder", cfg.Folder)
	}
	if cfg.Settings != "" && cfg.Settings != platform.BackendJSON {
		v.Set("settings", cfg.Settings)
	}
	if cfg.Versioning != nil {
		v.Set("versioning", *cfg.Versioning)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
