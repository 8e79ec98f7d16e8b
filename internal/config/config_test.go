package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Tucson", cfg.Location.Name)
	assert.Equal(t, "Shopping", cfg.GroceryList)
	assert.Equal(t, "data/reminders.json", cfg.ReminderFile)
	assert.Len(t, cfg.Teams, 1)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verba.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
location:
  name: Portland
  latitude: 45.5
  longitude: -122.6
  timezone: America/Los_Angeles
symbols:
  acme: ACME
grocery_list: Groceries
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Portland", cfg.Location.Name)
	assert.Equal(t, 45.5, cfg.Location.Latitude)
	assert.Equal(t, "ACME", cfg.Symbols["acme"])
	assert.Equal(t, "Groceries", cfg.GroceryList)

	// Untouched keys keep their defaults.
	assert.Equal(t, "data/dispatch.jsonl", cfg.DispatchLog)
	assert.Equal(t, "gpt-4o-mini", cfg.AskModel)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verba.yaml")
	require.NoError(t, os.WriteFile(path, []byte("location: [not: valid"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GROCERY_USERNAME", "pat@example.com")
	t.Setenv("SPOTIFY_CLIENT_ID", "client123")

	creds := Env()
	assert.Equal(t, "sk-test", creds.OpenAIKey)
	assert.Equal(t, "pat@example.com", creds.GroceryUser)
	assert.Equal(t, "client123", creds.SpotifyID)
}
