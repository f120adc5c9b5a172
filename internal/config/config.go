// Package config provides configuration management for the platform-cli.
//
// It implements the disciplined Viper pattern where Viper stays contained
// in this package and the rest of the codebase receives explicit Config structs.
// Configuration sources are resolved in this order: flags > env > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/platform-cli/internal/credentials"
)

const (
	envPrefix     = "PLATFORM_CLI"
	configDirName = ".platform-cli"
)

// Keys understood by Set and the config file.
const (
	KeyAccessKey       = "access-key"
	KeySecretKey       = "secret-key"
	KeyOwner           = "owner"
	KeyRegion          = "region"
	KeyEndpoint        = "endpoint"
	KeyCatalogFile     = "catalog-file"
	KeyCredentialsFile = "credentials-file"
	KeyVerbosity       = "verbosity"
)

var ErrMissingCredentials = errors.New("access key and secret key are required (set access-key/secret-key or AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY)")

// Config is the explicit configuration struct
// This is what the rest of the codebase sees
type Config struct {
	AccessKey       string
	SecretKey       string
	Owner           string
	Region          string
	Endpoint        string
	CatalogFile     string
	CredentialsFile string
	Verbosity       int
}

// Init initializes viper with defaults and config file paths
func Init() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath("$HOME/" + configDirName)
	viper.AddConfigPath(".")

	viper.SetDefault(KeyRegion, "us-east-1")
	viper.SetDefault(KeyVerbosity, 0)
	if path, err := credentials.DefaultPath(); err == nil {
		viper.SetDefault(KeyCredentialsFile, path)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// identity keys also accept the variables other AWS tooling uses
	fallbacks := map[string]string{
		KeyAccessKey: "AWS_ACCESS_KEY_ID",
		KeySecretKey: "AWS_SECRET_ACCESS_KEY",
		KeyRegion:    "AWS_REGION",
	}
	for key, env := range fallbacks {
		if err := viper.BindEnv(key, envName(key), env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return nil
}

// BindFlag lets a command flag override key.
func BindFlag(key string, flag *pflag.Flag) error {
	return viper.BindPFlag(key, flag)
}

// Load reads from all sources and returns explicit Config
func Load() (*Config, error) {
	cfg := current()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func current() *Config {
	return &Config{
		AccessKey:       viper.GetString(KeyAccessKey),
		SecretKey:       viper.GetString(KeySecretKey),
		Owner:           viper.GetString(KeyOwner),
		Region:          viper.GetString(KeyRegion),
		Endpoint:        viper.GetString(KeyEndpoint),
		CatalogFile:     viper.GetString(KeyCatalogFile),
		CredentialsFile: viper.GetString(KeyCredentialsFile),
		Verbosity:       viper.GetInt(KeyVerbosity),
	}
}

// Validate ensures config is sane
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return fmt.Errorf("owner is required (set --owner or %s_OWNER)", envPrefix)
	}
	if strings.TrimSpace(c.Region) == "" {
		return fmt.Errorf("region must not be empty")
	}
	if c.Verbosity < 0 {
		return fmt.Errorf("invalid verbosity: %d", c.Verbosity)
	}
	return nil
}

// RequireCredentials reports whether both halves of the key pair are set.
func (c *Config) RequireCredentials() error {
	if c.AccessKey == "" || c.SecretKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Set stores value under key in the config file. Only the file's own
// contents are rewritten; values resolved from flags, the environment or
// defaults never reach the file.
func Set(key, value string) error {
	if !known(key) {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	var typed interface{} = value
	if key == KeyVerbosity {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid verbosity: %q", value)
		}
		typed = n
	}

	path, err := filePath()
	if err != nil {
		return err
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	file.Set(key, typed)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// keep this process consistent with the file
	viper.Set(key, typed)
	if viper.ConfigFileUsed() == "" {
		viper.SetConfigFile(path)
	}
	return nil
}

// filePath is the config file that was read, or the default location
// under $HOME when there was none.
func filePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName, "config.yaml"), nil
}

// Display shows current config (for platform-cli config get)
func Display() (string, error) {
	cfg := current()

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = "(not found)"
	}

	return fmt.Sprintf(`Configuration:
  access-key:         %s
  secret-key:         %s
  owner:              %s
  region:             %s
  endpoint:           %s
  catalog-file:       %s
  credentials-file:   %s
  verbosity:          %d

Sources:
  Config file:        %s
  Environment:        %s_*, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION
  Flags:              (global)
`,
		orUnset(cfg.AccessKey),
		orUnset(Mask(cfg.SecretKey)),
		orUnset(cfg.Owner),
		cfg.Region,
		orDefault(cfg.Endpoint, "(provider default)"),
		orDefault(cfg.CatalogFile, "(built-in)"),
		cfg.CredentialsFile,
		cfg.Verbosity,
		configFile,
		envPrefix,
	), nil
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := []string{
		KeyAccessKey, KeySecretKey, KeyOwner, KeyRegion,
		KeyEndpoint, KeyCatalogFile, KeyCredentialsFile, KeyVerbosity,
	}
	sort.Strings(keys)
	return keys
}

func known(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func orUnset(s string) string {
	return orDefault(s, "(not set)")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
