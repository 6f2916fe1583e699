package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/domain"
	"countdown/internal/logging"
	"countdown/internal/usecase"
)

func writeSettings(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "storage:\n  backend: " + backend + "\n  path: " + filepath.Join(dir, "data") + "\nnotify:\n  bell: false\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("COUNTDOWN_TELEGRAM_TOKEN", "")
	t.Setenv("COUNTDOWN_TELEGRAM_CHAT_ID", "")
	t.Setenv("COUNTDOWN_DATA", "")
	return path
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTimerLifecycleAcrossInvocations(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := writeSettings(t, backend)

			out, err := run(t, cfg, "timer", "add", "Plank", "--category", "Workout", "--duration", "1m30s", "--mid", "50")
			require.NoError(t, err)
			assert.Contains(t, out, `"Plank" (Workout, 1:30)`)

			out, err = run(t, cfg, "timer", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "Plank")
			assert.Contains(t, out, "Created")
			assert.Contains(t, out, "50%")

			_, err = run(t, cfg, "timer", "reset", "plank")
			require.NoError(t, err)

			out, err = run(t, cfg, "timer", "delete", "Plank")
			require.NoError(t, err)
			assert.Contains(t, out, "delete")

			out, err = run(t, cfg, "timer", "list")
			require.NoError(t, err)
			assert.NotContains(t, out, "Plank")
		})
	}
}

func TestTimerAddValidation(t *testing.T) {
	cfg := writeSettings(t, "file")

	_, err := run(t, cfg, "timer", "add", "x", "--category", "Nope", "--duration", "10")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)

	_, err = run(t, cfg, "timer", "add", "x", "--category", "Workout", "--duration", "1.5s")
	assert.Error(t, err)

	_, err = run(t, cfg, "timer", "add", "x", "--category", "Workout")
	assert.Error(t, err, "duration is required")
}

func TestUnknownTimerIsNotFound(t *testing.T) {
	cfg := writeSettings(t, "file")
	_, err := run(t, cfg, "timer", "pause", "ghost")
	assert.ErrorIs(t, err, domain.ErrTimerNotFound)
}

func TestCategoryThemeAndExport(t *testing.T) {
	cfg := writeSettings(t, "file")

	_, err := run(t, cfg, "category", "add", "Reading")
	require.NoError(t, err)
	_, err = run(t, cfg, "timer", "add", "Novel", "-c", "Reading", "-d", "600")
	require.NoError(t, err)

	out, err := run(t, cfg, "category", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Reading")
	assert.Contains(t, out, "10:00")

	_, err = run(t, cfg, "theme", "set", "DARK")
	require.NoError(t, err)
	out, err = run(t, cfg, "theme", "get")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)
	_, err = run(t, cfg, "theme", "set", "neon")
	assert.ErrorIs(t, err, domain.ErrInvalidTheme)

	out, err = run(t, cfg, "export", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Novel")

	file := filepath.Join(t.TempDir(), "out.json")
	out, err = run(t, cfg, "export", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 timer(s)")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Novel"`)

	out, err = run(t, cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED")
}

func TestConfigCommands(t *testing.T) {
	cfg := writeSettings(t, "memory")

	out, err := run(t, cfg, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfg+"\n", out)

	out, err = run(t, cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: memory")
	assert.Contains(t, out, "tick_interval: 1s")

	fresh := filepath.Join(t.TempDir(), "new", "config.yaml")
	_, err = run(t, fresh, "config", "init")
	require.NoError(t, err)
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = run(t, fresh, "config", "init")
	assert.Error(t, err)
}

func TestSharedEngineKeepsTimersRunning(t *testing.T) {
	cfgPath = writeSettings(t, "memory")
	e, err := openEngine(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	sharedEngine = e
	t.Cleanup(func() {
		sharedEngine = nil
		e.Close()
	})

	cfg := cfgPath
	_, err = run(t, cfg, "timer", "add", "Plank", "-c", "Workout", "-d", "300")
	require.NoError(t, err)
	_, err = run(t, cfg, "timer", "start", "plank")
	require.NoError(t, err, "start returns immediately inside the shell")
	assert.Len(t, e.scheduler.Running(), 1)

	_, err = run(t, cfg, "category", "pause", "Workout")
	require.NoError(t, err)
	assert.Empty(t, e.scheduler.Running())

	paused := domain.StatusPaused
	assert.Len(t, e.timers.Timers(usecase.TimerFilter{Status: &paused}), 1)
}

func TestResolveID(t *testing.T) {
	cfgPath = writeSettings(t, "memory")
	e, err := openEngine(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	defer e.Close()

	a, err := e.timers.CreateTimer(domain.TimerDraft{Name: "Plank", Category: "Workout", Duration: 10})
	require.NoError(t, err)
	_, err = e.timers.CreateTimer(domain.TimerDraft{Name: "Squat", Category: "Workout", Duration: 10})
	require.NoError(t, err)

	id, err := resolveID(e.timers, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	id, err = resolveID(e.timers, a.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	id, err = resolveID(e.timers, "PLANK")
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	_, err = resolveID(e.timers, "nothing")
	assert.ErrorIs(t, err, domain.ErrTimerNotFound)
}

func TestParseSeconds(t *testing.T) {
	for in, want := range map[string]int{"90": 90, "1m30s": 90, "2h": 7200, " 5 ": 5} {
		got, err := parseSeconds(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "1.5s"} {
		_, err := parseSeconds(in)
		assert.Error(t, err, in)
	}
}

func TestShellLogCommand(t *testing.T) {
	t.Cleanup(func() {
		verbosity = 0
		logging.SetVerbosity(0)
	})
	var session int
	require.NoError(t, handleShellLog([]string{"--level", "debug"}, &session))
	assert.Equal(t, 2, session)
	require.NoError(t, handleShellLog([]string{"-v"}, &session))
	assert.Equal(t, 1, session)
	assert.Error(t, handleShellLog([]string{"--level", "loud"}, &session))
	assert.Equal(t, "info", logging.LevelName())
}
