package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	configDir  = ".dbdash"
	configFile = "config"
	configType = "yaml"
	envPrefix  = "DBDASH"

	keyringService   = "dbdash"
	keyringSecretKey = "auth-secret"
)

// ErrSecretNotPersisted is returned with a usable secret when the keyring
// could not store it; tokens will not survive a restart.
var ErrSecretNotPersisted = errors.New("auth secret not persisted")

// Load reads the configuration from path, or from ~/.dbdash/config.yaml when
// path is empty. A missing file yields the defaults. DBDASH_* environment
// variables override file values.
func Load(path string) (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	if path == "" {
		path = filepath.Join(dir, configFile+"."+configType)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil && !notFound(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path

	loadPasswords(cfg)
	return cfg, nil
}

// Save writes connections and preferences back to the file the config was
// loaded from. Other sections already in the file are preserved.
func Save(cfg *Config) error {
	path := cfg.path
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return fmt.Errorf("config dir: %w", err)
		}
		path = filepath.Join(dir, configFile+"."+configType)
		cfg.path = path
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	if err := v.ReadInConfig(); err != nil && !notFound(err) {
		return fmt.Errorf("read config: %w", err)
	}

	v.Set("connections", cfg.Connections)
	v.Set("preferences", cfg.Preferences)

	return v.WriteConfigAs(path)
}

// SaveConnection adds conn to the config, keeps its password in the keyring
// and writes the file. Existing profiles of the same name are left alone.
func SaveConnection(cfg *Config, conn Connection) error {
	if conn.Password != "" {
		if err := keyring.Set(keyringService, conn.Name, conn.Password); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
	}
	if !cfg.AddConnection(conn) {
		return nil
	}
	return Save(cfg)
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if cfg.Preferences.DefaultConnection != "" {
		for i := range cfg.Connections {
			if cfg.Connections[i].Name == cfg.Preferences.DefaultConnection {
				return &cfg.Connections[i]
			}
		}
	}

	return &cfg.Connections[0]
}

// AuthSecret returns the token signing secret: the configured one, the one in
// the keyring, or a freshly generated one that is then stored there.
func AuthSecret(cfg *Config) (string, error) {
	if cfg.Auth.Secret != "" {
		return cfg.Auth.Secret, nil
	}

	secret, err := keyring.Get(keyringService, keyringSecretKey)
	if err == nil && secret != "" {
		cfg.Auth.Secret = secret
		return secret, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		secret, genErr := generateSecret()
		if genErr != nil {
			return "", genErr
		}
		cfg.Auth.Secret = secret
		return secret, fmt.Errorf("%w: %v", ErrSecretNotPersisted, err)
	}

	secret, err = generateSecret()
	if err != nil {
		return "", err
	}
	cfg.Auth.Secret = secret
	if err := keyring.Set(keyringService, keyringSecretKey, secret); err != nil {
		return secret, fmt.Errorf("%w: %v", ErrSecretNotPersisted, err)
	}
	return secret, nil
}

// Path returns the file the config is read from and saved to.
func (cfg *Config) Path() string {
	return cfg.path
}

// DefaultDir returns ~/.dbdash.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("preferences.theme", "default")
	v.SetDefault("pool.max_conns", 5)
	v.SetDefault("pool.min_conns", 1)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.transfer_ttl", 2*time.Minute)
	v.SetDefault("server.addr", "127.0.0.1:7070")
	v.SetDefault("server.storage_dir", filepath.Join(dir, "storage"))
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "dbdash.log"))
}

// loadPasswords fills saved connection passwords from the keyring. Missing
// entries are left empty.
func loadPasswords(cfg *Config) {
	for i := range cfg.Connections {
		c := &cfg.Connections[i]
		if c.Password != "" || c.Backend() != "postgres" {
			continue
		}
		if pw, err := keyring.Get(keyringService, c.Name); err == nil {
			c.Password = pw
		}
	}
}

func notFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
