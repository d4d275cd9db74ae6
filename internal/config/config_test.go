package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRequiresExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "typo.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOptionalAppliesDefaultsForMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
	assert.Equal(t, 5, cfg.Pipeline.MaxTurns)
	assert.Equal(t, DefaultTerminationPhrase, cfg.Pipeline.TerminationPhrase)
	assert.Equal(t, "AutoGen_System", cfg.Pipeline.AnalystTag)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.False(t, cfg.Storage.Enabled)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090

[mail]
sender = "ops@example.com"
receiver = "mx@example.com"

[pipeline]
max_turns = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Pipeline.MaxTurns)
	assert.Equal(t, "ops@example.com", cfg.Mail.Username, "username defaults to sender")
	assert.Equal(t, "mx@example.com", cfg.Mail.Receiver)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, "[server\nport = ")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.MaxTurns = 0
	cfg.Mail.Port = 0
	cfg.Storage.Enabled = true
	cfg.Storage.Path = ""
	cfg.Server.MaxImagePixels = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.max_turns")
	assert.Contains(t, err.Error(), "mail.port")
	assert.Contains(t, err.Error(), "storage.path")
	assert.Contains(t, err.Error(), "server.max_image_pixels")
}

func TestApplyEnvOverridesSecrets(t *testing.T) {
	env := map[string]string{
		EnvLLMAPIKey:    "sk-test",
		EnvMailPassword: "app-password",
		EnvMailSender:   "sender@example.com",
		EnvMailReceiver: "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	cfg.Mail.Receiver = "kept@example.com"
	cfg.applyEnv(lookup)
	cfg.applyDerived()

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "app-password", cfg.Mail.Password)
	assert.Equal(t, "sender@example.com", cfg.Mail.Sender)
	assert.Equal(t, "sender@example.com", cfg.Mail.Username)
	assert.Equal(t, "kept@example.com", cfg.Mail.Receiver, "empty env values do not clear the file")
}
