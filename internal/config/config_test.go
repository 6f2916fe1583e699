package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func load(t *testing.T, path string) (Settings, error) {
	t.Helper()
	store, err := NewFileStore(path)
	require.NoError(t, err)
	return store.Load()
}

func clearEnv(t *testing.T) {
	t.Setenv(EnvTelegramToken, "")
	t.Setenv(EnvTelegramChatID, "")
	t.Setenv(EnvDataDir, "")
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	got, err := load(t, filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendFile, got.Storage.Backend)
	assert.Equal(t, time.Second, got.Scheduler.TickInterval)
	assert.Equal(t, []string{"Workout", "Study", "Break"}, got.Categories)
	assert.True(t, got.Notify.Bell)
	assert.False(t, got.Notify.Telegram.Enabled())
	assert.Equal(t, DefaultAddr, got.Web.Addr)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
storage:
  backend: SQLite
  path: /tmp/countdown-test
scheduler:
  tick_interval: 250ms
  resume_on_start: true
categories: [Deep work, " Deep work ", Chores]
log_level: debug
notify:
  bell: false
  telegram:
    token: abc
    chat_id: 12345
web:
  addr: 0.0.0.0:8080
`)
	got, err := load(t, path)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, got.Storage.Backend)
	assert.Equal(t, "/tmp/countdown-test", got.Storage.Path)
	assert.Equal(t, 250*time.Millisecond, got.Scheduler.TickInterval)
	assert.True(t, got.Scheduler.ResumeOnStart)
	assert.Equal(t, []string{"Deep work", "Chores"}, got.Categories)
	assert.Equal(t, "debug", got.LogLevel)
	assert.False(t, got.Notify.Bell)
	assert.True(t, got.Notify.Telegram.Enabled())
	assert.Equal(t, int64(12345), got.Notify.Telegram.ChatID)
	assert.Equal(t, "0.0.0.0:8080", got.Web.Addr)
}

func TestLoadEmptyFile(t *testing.T) {
	clearEnv(t)
	got, err := load(t, writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, BackendFile, got.Storage.Backend)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvTelegramToken, "from-env")
	t.Setenv(EnvTelegramChatID, "777")
	t.Setenv(EnvDataDir, "/srv/countdown")

	got, err := load(t, writeFile(t, "notify: {telegram: {token: file, chat_id: 1}}\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", got.Notify.Telegram.Token)
	assert.Equal(t, int64(777), got.Notify.Telegram.ChatID)
	assert.Equal(t, "/srv/countdown", got.Storage.Path)

	t.Setenv(EnvTelegramChatID, "not-a-number")
	_, err = load(t, writeFile(t, ""))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"backend":       "storage: {backend: postgres}\n",
		"tick too fast": "scheduler: {tick_interval: 1ms}\n",
		"tick too slow": "scheduler: {tick_interval: 2m}\n",
		"no categories": "categories: [\"\", \" \"]\n",
		"log level":     "log_level: loud\n",
		"unknown field": "colour: blue\n",
		"not yaml":      "storage: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	want := Default()
	want.Storage.Backend = BackendMemory
	want.Scheduler.TickInterval = 500 * time.Millisecond
	want.Categories = []string{"A", "B"}
	require.NoError(t, store.Save(want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick_interval: 500ms")

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), ExpandHome("~/data"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "rel/~", ExpandHome("rel/~"))
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
