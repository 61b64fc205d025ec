// Package config loads talondash settings with Viper from an optional YAML
// file, environment variables and built-in defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TALONDASH_SERVER_PORT.
const EnvPrefix = "TALONDASH"

// DefaultAdminPassword is the built-in login password. serve warns while it
// is still in use.
const DefaultAdminPassword = "admin"

const minSecretLen = 16

// Config holds all runtime configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Tiles   TilesConfig   `mapstructure:"tiles"`
	Drives  DrivesConfig  `mapstructure:"drives"`
	Docker  DockerConfig  `mapstructure:"docker"`
	Disk    DiskConfig    `mapstructure:"disk"`
	Thermal ThermalConfig `mapstructure:"thermal"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// Addr is the host:port to listen on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// DBConfig locates the audit database. Only "sqlite" is supported.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// AuthConfig guards the container control endpoints. AdminPasswordHash is a
// bcrypt hash and wins over AdminPassword when set.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AdminUser         string        `mapstructure:"admin_user"`
	AdminPassword     string        `mapstructure:"admin_password"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`

	// JWTSecretGenerated is set when no secret was configured and a random
	// one was made for this process. Tokens then die with the process.
	JWTSecretGenerated bool `mapstructure:"-"`
}

// DefaultPassword reports whether login still uses the built-in password.
func (a AuthConfig) DefaultPassword() bool {
	return a.AdminPasswordHash == "" && a.AdminPassword == DefaultAdminPassword
}

type TilesConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// DrivesConfig tunes the physical drive probes.
type DrivesConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	SmartctlPath   string        `mapstructure:"smartctl_path"`
	UseSudo        bool          `mapstructure:"use_sudo"`
	LsblkPath      string        `mapstructure:"lsblk_path"`
}

type DockerConfig struct {
	Path           string        `mapstructure:"path"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

type DiskConfig struct {
	DfPath string `mapstructure:"df_path"`
}

type ThermalConfig struct {
	Dir string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.max_body_bytes", 64<<10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", "talondash.db")

	// An empty secret is replaced by a random one at load time.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_password", DefaultAdminPassword)
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("tiles.timeout", 30*time.Second)

	v.SetDefault("drives.max_concurrency", 4)
	v.SetDefault("drives.probe_timeout", 8*time.Second)
	v.SetDefault("drives.smartctl_path", "smartctl")
	v.SetDefault("drives.use_sudo", true)
	v.SetDefault("drives.lsblk_path", "lsblk")

	v.SetDefault("docker.path", "docker")
	v.SetDefault("docker.command_timeout", 20*time.Second)

	v.SetDefault("disk.df_path", "df")

	v.SetDefault("thermal.dir", "/sys/class/thermal")
}

// Load reads the config file at path, or talondash.yaml from ./ or
// ~/.talondash when path is empty, and applies TALONDASH_* overrides on top
// of the defaults. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("talondash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.talondash")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generating jwt secret: %w", err)
		}
		cfg.Auth.JWTSecret = secret
		cfg.Auth.JWTSecretGenerated = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.DB.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("db.driver %q not supported", c.DB.Driver))
	}
	if len(c.Auth.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d characters", minSecretLen))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Tiles.Timeout <= 0 {
		errs = append(errs, errors.New("tiles.timeout must be positive"))
	}
	if c.Drives.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("drives.max_concurrency must be positive"))
	}
	if c.Drives.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("drives.probe_timeout must be positive"))
	}
	if c.Docker.CommandTimeout <= 0 {
		errs = append(errs, errors.New("docker.command_timeout must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
