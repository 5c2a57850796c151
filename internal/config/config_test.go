package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("ASSIST_CONFIG", "")
	t.Setenv("ASSIST_CONFIG_CONTENT", "")
	t.Setenv("ASSIST_SERVER", "")
	t.Setenv("ASSIST_API_KEY", "")
	t.Setenv("ASSIST_SCOPE", "")
	t.Setenv("ASSIST_DATA_DIR", "")
	t.Setenv("ASSIST_LOG_LEVEL", "")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4406", cfg.BaseURL)
	assert.Equal(t, "global", cfg.Scope)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadProjectFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "assist.json"), `{"baseUrl":"https://api.example.com","scope":"grant/g1"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, "grant/g1", cfg.Scope)
}

func TestLoadJSONCComments(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "assist.jsonc"), `{
  // answer service endpoint
  "baseUrl": "https://api.example.com",
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
}

func TestProjectOverridesGlobal(t *testing.T) {
	isolate(t)
	globalDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "grantline")
	writeFile(t, filepath.Join(globalDir, "assist.json"), `{"baseUrl":"https://global.example.com","logLevel":"debug"}`)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "assist.json"), `{"baseUrl":"https://project.example.com"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://project.example.com", cfg.BaseURL)
	// Untouched fields survive from the earlier layer.
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvInterpolation(t *testing.T) {
	isolate(t)
	t.Setenv("TEST_ASSIST_KEY", "sk-123")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "assist.json"), `{"apiKey":"{env:TEST_ASSIST_KEY}"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-123", cfg.APIKey)
}

func TestFileInterpolation(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "key.txt"), "sk-from-file\n")
	writeFile(t, filepath.Join(dir, "assist.json"), `{"apiKey":"{file:key.txt}"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.APIKey)
}

func TestInlineConfigContent(t *testing.T) {
	isolate(t)
	t.Setenv("ASSIST_CONFIG_CONTENT", `{"scope":"workstream/w9"}`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "workstream/w9", cfg.Scope)
}

func TestEnvOverridesBeatFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "assist.json"), `{"baseUrl":"https://file.example.com","apiKey":"file-key"}`)
	t.Setenv("ASSIST_SERVER", "https://env.example.com")
	t.Setenv("ASSIST_API_KEY", "env-key")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "env-key", cfg.APIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "assist.json")
	require.NoError(t, Save(&Config{BaseURL: "https://api.example.com"}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://api.example.com")
}
