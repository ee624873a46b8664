package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_readConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log: /var/log/genesis.log
server_addr: 0.0.0.0:9000
data_dir: /srv/genesis/data
drop_dir: /srv/genesis/inbox
write_debounce_ms: 250
embedder:
  base_url: http://localhost:11434/v1
  model: all-minilm
  dimension: 384
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := readConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/log/genesis.log", cfg.LogFile)
	assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddr)
	assert.Equal(t, "/srv/genesis/data", cfg.DataDir)
	assert.Equal(t, "/srv/genesis/inbox", cfg.DropDir)
	assert.Equal(t, 250, cfg.MergeEventsMs)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedder.BaseURL)
	assert.Equal(t, "all-minilm", cfg.Embedder.Model)
	assert.Equal(t, 384, cfg.Embedder.Dimension)

	// defaults fill in what the file omits
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, 30, cfg.StoreTimeoutSecs)
}

func Test_readConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: app.log\n"), 0o644))

	cfg, err := readConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8000", cfg.ServerAddr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 500, cfg.MergeEventsMs)
}

func Test_readConfig_MissingFile(t *testing.T) {
	_, err := readConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func Test_readConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o644))

	_, err := readConfig(path)
	assert.Error(t, err)
}
