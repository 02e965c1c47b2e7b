// Package config loads DryDB settings from defaults, a YAML file, DRYDB_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/filestore"
	"github.com/koustreak/DryDB/internal/logger"
	"go.yaml.in/yaml/v3"
)

// Config is the full application configuration.
type Config struct {
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Gateway GatewayConfig `koanf:"gateway" yaml:"gateway"`
	History HistoryConfig `koanf:"history" yaml:"history"`
	Export  ExportConfig  `koanf:"export" yaml:"export"`
	Server  ServerConfig  `koanf:"server" yaml:"server"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`   // debug, info, warn, error
	Format string `koanf:"format" yaml:"format"` // json, console
}

// GatewayConfig bounds every driver call.
type GatewayConfig struct {
	ConnectTimeout time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
	QueryTimeout   time.Duration `koanf:"query_timeout" yaml:"query_timeout"`
}

// HistoryConfig locates the saved-connection store. Limit is the number of
// executed queries kept per connection.
type HistoryConfig struct {
	Path  string `koanf:"path" yaml:"path"`
	Limit int    `koanf:"limit" yaml:"limit"`
}

type ExportConfig struct {
	Dir    string       `koanf:"dir" yaml:"dir"`
	Sheet  string       `koanf:"sheet" yaml:"sheet"`
	Upload UploadConfig `koanf:"upload" yaml:"upload"`
}

// UploadConfig describes the optional object store that receives exports.
type UploadConfig struct {
	Enabled   bool          `koanf:"enabled" yaml:"enabled"`
	Endpoint  string        `koanf:"endpoint" yaml:"endpoint"`
	AccessKey string        `koanf:"access_key" yaml:"access_key"`
	SecretKey string        `koanf:"secret_key" yaml:"secret_key"`
	UseSSL    bool          `koanf:"use_ssl" yaml:"use_ssl"`
	Bucket    string        `koanf:"bucket" yaml:"bucket"`
	Region    string        `koanf:"region" yaml:"region"`
	URLTTL    time.Duration `koanf:"url_ttl" yaml:"url_ttl"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
}

// defaults is the base layer of every Load.
func defaults() map[string]any {
	return map[string]any{
		"log.level":               "info",
		"log.format":              "json",
		"gateway.connect_timeout": "10s",
		"gateway.query_timeout":   "30s",
		"history.path":            defaultHistoryPath(),
		"history.limit":           100,
		"export.dir":              ".",
		"export.sheet":            "Results",
		"export.upload.enabled":   false,
		"export.upload.use_ssl":   false,
		"export.upload.url_ttl":   "1h",
		"server.addr":             "127.0.0.1:8765",
		"server.read_timeout":     "15s",
		"server.write_timeout":    "60s",
	}
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "drydb.db"
	}
	return filepath.Join(dir, "drydb", "drydb.db")
}

// Validate rejects settings that would make the gateway or store unusable.
func (c *Config) Validate() error {
	if c.Gateway.ConnectTimeout <= 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "gateway.connect_timeout must be positive, got %s", c.Gateway.ConnectTimeout)
	}
	if c.Gateway.QueryTimeout <= 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "gateway.query_timeout must be positive, got %s", c.Gateway.QueryTimeout)
	}
	if c.History.Limit <= 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "history.limit must be positive, got %d", c.History.Limit)
	}
	if c.History.Path == "" {
		return errs.New(errs.ErrKindInvalidInput, "history.path must not be empty")
	}
	if c.Export.Sheet == "" {
		return errs.New(errs.ErrKindInvalidInput, "export.sheet must not be empty")
	}
	if up := c.Export.Upload; up.Enabled {
		if up.Endpoint == "" || up.Bucket == "" {
			return errs.New(errs.ErrKindInvalidInput, "export.upload requires endpoint and bucket when enabled")
		}
		if up.URLTTL <= 0 {
			return errs.Newf(errs.ErrKindInvalidInput, "export.upload.url_ttl must be positive, got %s", up.URLTTL)
		}
	}
	return nil
}

// Timeouts returns the gateway limits.
func (c *Config) Timeouts() database.Timeouts {
	return database.Timeouts{Connect: c.Gateway.ConnectTimeout, Query: c.Gateway.QueryTimeout}
}

// Logger returns the logger settings writing to stderr.
func (c *Config) Logger() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}

// Filestore returns the object store settings for export uploads.
func (c *Config) Filestore() *filestore.Config {
	up := c.Export.Upload
	return &filestore.Config{
		Endpoint:  up.Endpoint,
		AccessKey: up.AccessKey,
		SecretKey: up.SecretKey,
		UseSSL:    up.UseSSL,
		Region:    up.Region,
		Bucket:    up.Bucket,
		URLTTL:    up.URLTTL,
	}
}

// YAML renders the effective configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	if out.Export.Upload.SecretKey != "" {
		out.Export.Upload.SecretKey = "********"
	}
	return yaml.Marshal(&out)
}
