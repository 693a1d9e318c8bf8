package cmd

import (
	"bytes"
	"context"
	"feedwatch/config"
	"feedwatch/server"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[inputs.rust]
url = "https://blog.rust-lang.org/feed.xml"
interval = "15m"
tags = ["news"]

[inputs.go]
url = "https://go.dev/blog/feed.atom"

[[outputs.rust]]
type = "slack"
url = "https://hooks.slack.com/services/x"

[[outputs.news]]
type = "discord_webhook"
url = "https://discord.com/api/webhooks/1/a"

[[outputs.default]]
type = "custom"
command = "cat"
use_stdin = true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	var out bytes.Buffer
	app := RootApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"feedwatch", "validate", "--config", path}))

	assert.Equal(t, `go (https://go.dev/blog/feed.atom, every 30m0s, 10 retries)
  custom cat
rust (https://blog.rust-lang.org/feed.xml, every 15m0s, 10 retries)
  slack hooks.slack.com
  discord_webhook discord.com
`, out.String())
}

func TestInvalidLogLevel(t *testing.T) {
	app := RootApp()
	err := app.Run([]string{"feedwatch", "--log-level", "loud", "validate"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestStarterConfigIsValid(t *testing.T) {
	cfg := starterConfig("blog", "https://go.dev/blog/feed.atom", config.Output{
		Type: config.TypeDiscordWebhook,
		URL:  "https://discord.com/api/webhooks/1/a",
	})
	require.NoError(t, cfg.Validate())

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.Save(path, cfg))

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"blog"}, loaded.InputNames())
	assert.Len(t, loaded.Outputs[config.DefaultTag], 1)
}

func TestUserAgentDefault(t *testing.T) {
	assert.Equal(t, config.DefaultUserAgent, userAgent(&config.Config{}))
	assert.Equal(t, "bot/1.0", userAgent(&config.Config{HTTP: config.HTTP{UserAgent: "bot/1.0"}}))
}

func TestValidateListsDuplicateRoutes(t *testing.T) {
	path := writeConfig(t, `
[inputs.rust]
url = "https://blog.rust-lang.org/feed.xml"
tags = ["news"]

[[outputs.rust]]
type = "discord_bot"
token = "secret"
user_id = 42

[[outputs.news]]
type = "discord_bot"
token = "secret"
user_id = 42
`)

	var out bytes.Buffer
	app := RootApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"feedwatch", "validate", "--config", path}))
	assert.Equal(t, `rust (https://blog.rust-lang.org/feed.xml, every 30m0s, 10 retries)
  discord_bot user 42
  discord_bot user 42
`, out.String())
}

func TestMetricsServerFailureIsLoggedImmediately(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := startMetricsServer(ctx, busy.Addr().String(), &server.ServerConfig{})

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("server on a busy port kept running")
	}

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.ErrorLevel, entry.Level)
	assert.Equal(t, "Metrics server failed", entry.Message)
}
