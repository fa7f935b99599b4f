package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), store.Path())
	assert.NoFileExists(t, store.Path())
}

func TestConfigStore_LoadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
host = "127.0.0.1"
port = 9000

[llm]
model = "llama"
temperature = 0.2
requests_per_second = 2

[embedding]
cache_size = 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", store.GetString("server.host"))
	assert.Equal(t, 9000, store.GetInt("server.port"))
	assert.Equal(t, "llama", store.GetString("llm.model"))
	assert.InDelta(t, 0.2, store.GetFloat("llm.temperature"), 1e-9)
	assert.InDelta(t, 2.0, store.GetFloat("llm.requests_per_second"), 1e-9)

	val, ok := store.Get("embedding.cache_size")
	assert.True(t, ok)
	assert.Equal(t, int64(0), val)
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("[server\nport ="), 0600))

	_, err := NewConfigStore(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_SetPersistsAsTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.model", "mixtral"))
	require.NoError(t, store.Set("server.port", 8100))
	require.NoError(t, store.Set("search.top_k", 3))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[llm]")
	assert.Contains(t, string(data), "[server]")

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "mixtral", reopened.GetString("llm.model"))
	assert.Equal(t, 8100, reopened.GetInt("server.port"))
	assert.Equal(t, 3, reopened.GetInt("search.top_k"))
}

func TestConfigStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.api_key", "secret"))
	require.NoError(t, store.Delete("llm.api_key"))
	require.NoError(t, store.Delete("never.set"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := reopened.Get("llm.api_key")
	assert.False(t, ok)
}

func TestConfigStore_TypedGettersWrongType(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "text"))

	assert.Equal(t, 0, store.GetInt("k"))
	assert.Zero(t, store.GetFloat("k"))
	assert.False(t, store.GetBool("k"))
	assert.Equal(t, "", store.GetString("missing"))
}

func TestFlattenAndUnflatten(t *testing.T) {
	nested := map[string]any{
		"llm":    map[string]any{"model": "m", "retry": map[string]any{"max": int64(3)}},
		"scalar": "x",
	}

	flat := flattenMap(nested, "")
	assert.Equal(t, map[string]any{
		"llm.model":     "m",
		"llm.retry.max": int64(3),
		"scalar":        "x",
	}, flat)

	assert.Equal(t, nested, unflattenMap(flat))
}
