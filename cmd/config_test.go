//go:build !integration

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/report-agent/internal/config"
)

func TestRedact(t *testing.T) {
	c := config.Config{}
	c.Google.APIKey = "g-key"
	c.SMTP.Password = "hunter2"
	c.Notion.Token = "secret_abc"
	c.SMTP.Host = "smtp.example.org"
	c.RunLog = config.RunLogConfig{Driver: "postgres", DatabaseURL: "postgres://u:p@db/runs"}

	r := redact(c)
	assert.Equal(t, redacted, r.Google.APIKey)
	assert.Equal(t, redacted, r.SMTP.Password)
	assert.Equal(t, redacted, r.Notion.Token)
	assert.Equal(t, redacted, r.RunLog.DatabaseURL)
	assert.Equal(t, "smtp.example.org", r.SMTP.Host)
	assert.Empty(t, r.Jina.Key, "empty secrets stay empty")

	// The input copy is untouched.
	assert.Equal(t, "g-key", c.Google.APIKey)
}

func TestRedact_SQLitePathKept(t *testing.T) {
	c := config.Config{}
	c.RunLog = config.RunLogConfig{Driver: "sqlite", DatabaseURL: "data/runs.db"}
	assert.Equal(t, "data/runs.db", redact(c).RunLog.DatabaseURL)
}

func TestWriteConfig(t *testing.T) {
	c := &config.Config{}
	c.Discovery.Query = "climate adaptation"
	c.Gate.MinYear = 2015
	c.Google.APIKey = "g-key"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, c))
	assert.NotContains(t, buf.String(), "g-key")

	var back config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "climate adaptation", back.Discovery.Query)
	assert.Equal(t, 2015, back.Gate.MinYear)
	assert.Equal(t, redacted, back.Google.APIKey)
}
