package filestore

import (
	"testing"
	"time"

	"github.com/koustreak/DryDB/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	ok := Config{Endpoint: "localhost:9000", Bucket: "exports", URLTTL: time.Hour}
	assert.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no endpoint", func(c *Config) { c.Endpoint = "" }},
		{"no bucket", func(c *Config) { c.Bucket = "" }},
		{"zero ttl", func(c *Config) { c.URLTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ok
			tt.mutate(&c)
			assert.True(t, errs.IsInvalidInput(c.Validate()))
		})
	}

	var nilCfg *Config
	assert.True(t, errs.IsInvalidInput(nilCfg.Validate()))
}
