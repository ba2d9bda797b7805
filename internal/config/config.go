package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joacominatel/dbdash/internal/database"
)

// Config represents the application configuration.
type Config struct {
	Connections []Connection `mapstructure:"connections" yaml:"connections"`
	Preferences Preferences  `mapstructure:"preferences" yaml:"preferences"`
	Pool        Pool         `mapstructure:"pool" yaml:"pool"`
	Auth        Auth         `mapstructure:"auth" yaml:"auth"`
	Server      Server       `mapstructure:"server" yaml:"server"`
	Redis       Redis        `mapstructure:"redis" yaml:"redis"`
	Log         Log          `mapstructure:"log" yaml:"log"`

	path string
}

// Connection represents a saved database connection profile. The password
// is kept in the OS keyring, never in the file.
type Connection struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Path     string `mapstructure:"path" yaml:"path,omitempty"`
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"-" yaml:"-"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`
}

// Preferences holds user preferences.
type Preferences struct {
	Theme             string `mapstructure:"theme" yaml:"theme"`
	DefaultConnection string `mapstructure:"default_connection" yaml:"default_connection"`
}

// Pool sizes the connection pool of every backend.
type Pool struct {
	MaxConns int32 `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns int32 `mapstructure:"min_conns" yaml:"min_conns"`
}

// Auth configures the API tokens. An empty secret is generated on first use
// and stored in the keyring.
type Auth struct {
	Secret      string        `mapstructure:"secret" yaml:"-"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	TransferTTL time.Duration `mapstructure:"transfer_ttl" yaml:"transfer_ttl"`
}

// Server controls the HTTP listener.
type Server struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	StorageDir   string        `mapstructure:"storage_dir" yaml:"storage_dir"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Redis locates the token revocation store. An empty address starts an
// in-process instance.
type Redis struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// Log configures the log sink.
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Backend returns the database backend of the profile.
func (c Connection) Backend() database.Backend {
	if strings.EqualFold(c.Driver, string(database.SQLite)) || (c.Driver == "" && c.Path != "") {
		return database.SQLite
	}
	return database.Postgres
}

// DSN builds the connection string for the profile's backend.
func (c Connection) DSN() string {
	if c.Backend() == database.SQLite {
		return c.Path
	}

	dsn := "postgresql://"
	if c.Username != "" {
		u := url.User(c.Username)
		if c.Password != "" {
			u = url.UserPassword(c.Username, c.Password)
		}
		dsn += u.String() + "@"
	}
	dsn += c.Host
	if c.Port > 0 {
		dsn += ":" + strconv.Itoa(c.Port)
	}
	dsn += "/" + c.Database
	if c.SSLMode != "" {
		dsn += "?sslmode=" + c.SSLMode
	}
	return dsn
}

// DisplayString returns a human-readable summary of the connection.
func (c Connection) DisplayString() string {
	if c.Backend() == database.SQLite {
		return "sqlite:" + c.Path
	}
	s := c.Host
	if c.Port > 0 {
		s += ":" + strconv.Itoa(c.Port)
	}
	s += "/" + c.Database
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	return s
}

// ParseDSN parses a connection string into a Connection. PostgreSQL URLs
// keep their parts; anything else is taken as a SQLite file path.
func ParseDSN(dsn string) (Connection, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return Connection{}, fmt.Errorf("invalid DSN: empty")
	}

	if database.DetectBackend(dsn) == database.SQLite {
		path := dsn
		if abs, err := filepath.Abs(dsn); err == nil && dsn != ":memory:" {
			path = abs
		}
		return Connection{
			Name:   "sqlite-" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Driver: string(database.SQLite),
			Path:   path,
		}, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return Connection{}, fmt.Errorf("invalid DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Connection{}, fmt.Errorf("invalid DSN: only postgres URLs can be saved")
	}

	conn := Connection{
		Driver:   string(database.Postgres),
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}

	if u.User != nil {
		conn.Username = u.User.Username()
		if p, ok := u.User.Password(); ok {
			conn.Password = p
		}
	}

	if portStr := u.Port(); portStr != "" {
		conn.Port, _ = strconv.Atoi(portStr)
	}
	if conn.Port == 0 {
		conn.Port = 5432
	}

	conn.Name = fmt.Sprintf("postgres-%s-%d-%s", conn.Host, conn.Port, conn.Database)

	return conn, nil
}

// HasConnection checks if a connection with the given name already exists.
func (cfg *Config) HasConnection(name string) bool {
	for _, c := range cfg.Connections {
		if c.Name == name {
			return true
		}
	}
	return false
}

// AddConnection appends a connection if it doesn't already exist.
func (cfg *Config) AddConnection(conn Connection) bool {
	if cfg.HasConnection(conn.Name) {
		return false
	}
	cfg.Connections = append(cfg.Connections, conn)
	return true
}

// PoolOptions converts the pool section into database options.
func (cfg *Config) PoolOptions() database.Options {
	return database.Options{MaxConns: cfg.Pool.MaxConns, MinConns: cfg.Pool.MinConns}
}
