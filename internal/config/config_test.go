package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/DryDB/internal/errs"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drydb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10*time.Second, cfg.Gateway.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.Gateway.QueryTimeout)
	assert.Equal(t, 100, cfg.History.Limit)
	assert.NotEmpty(t, cfg.History.Path)
	assert.Equal(t, "Results", cfg.Export.Sheet)
	assert.False(t, cfg.Export.Upload.Enabled)
	assert.Equal(t, time.Hour, cfg.Export.Upload.URLTTL)
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.Addr)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
  format: console
gateway:
  query_timeout: 5s
history:
  limit: 20
server:
  addr: 0.0.0.0:9000
`)
	t.Setenv("DRYDB_GATEWAY__QUERY_TIMEOUT", "7s")
	t.Setenv("DRYDB_HISTORY__LIMIT", "50")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("addr", "", "")
	flags.Int("history-keep", 100, "")
	flags.String("dialect", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level=warn", "--dialect=mysql"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level, "flag beats file")
	assert.Equal(t, "console", cfg.Log.Format, "file beats default")
	assert.Equal(t, 7*time.Second, cfg.Gateway.QueryTimeout, "env beats file")
	assert.Equal(t, 50, cfg.History.Limit, "env beats file, unset flag ignored")
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr, "unset flag ignored")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeFile(t, `
history:
  limit: 0
`)
	_, err := Load(path, nil)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Gateway.ConnectTimeout = 0
	assert.True(t, errs.IsInvalidInput(cfg.Validate()))

	cfg = base()
	cfg.Gateway.QueryTimeout = -time.Second
	assert.True(t, errs.IsInvalidInput(cfg.Validate()))

	cfg = base()
	cfg.Export.Upload.Enabled = true
	assert.True(t, errs.IsInvalidInput(cfg.Validate()))

	cfg.Export.Upload.Endpoint = "localhost:9000"
	cfg.Export.Upload.Bucket = "exports"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Derived(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	up := &cfg.Export.Upload
	up.Endpoint = "s3.local:9000"
	up.AccessKey = "ak"
	up.SecretKey = "sk"
	up.UseSSL = true
	up.Bucket = "exports"

	to := cfg.Timeouts()
	assert.Equal(t, 10*time.Second, to.Connect)
	assert.Equal(t, 30*time.Second, to.Query)

	lc := cfg.Logger()
	assert.Equal(t, "info", lc.Level)
	assert.NotNil(t, lc.Output)

	fc := cfg.Filestore()
	assert.Equal(t, "s3.local:9000", fc.Endpoint)
	assert.Equal(t, "exports", fc.Bucket)
	assert.Equal(t, time.Hour, fc.URLTTL)
	assert.True(t, fc.UseSSL)
}

func TestConfig_YAMLMasksSecret(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.Export.Upload.SecretKey = "hunter2"

	out, err := cfg.YAML()
	require.NoError(t, err)

	assert.Contains(t, string(out), "query_timeout: 30s")
	assert.Contains(t, string(out), "********")
	assert.NotContains(t, string(out), "hunter2")
	assert.Equal(t, "hunter2", cfg.Export.Upload.SecretKey)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "export.upload.url_ttl", envKey("DRYDB_EXPORT__UPLOAD__URL_TTL"))
	assert.Equal(t, "log.level", envKey("DRYDB_LOG__LEVEL"))
}
