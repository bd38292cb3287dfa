package reload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countStarts(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return strings.Count(string(data), "start")
}

func runSupervisor(t *testing.T, s *Supervisor) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- s.Run(ctx) }()
	return cancelFn, ch
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestNew_RequiresCommand(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestSupervisor_RestartsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "starts.log")
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("A=1\n"), 0o600))

	s, err := New(Options{
		Command:     "/bin/sh",
		Args:        []string{"-c", "echo start >> " + logFile + "; exec sleep 30"},
		WatchFiles:  []string{envFile},
		GracePeriod: 2 * time.Second,
		Debounce:    20 * time.Millisecond,
	})
	require.NoError(t, err)

	cancel, done := runSupervisor(t, s)
	require.Eventually(t, func() bool { return countStarts(t, logFile) == 1 }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(envFile, []byte("A=2\n"), 0o600))
	require.Eventually(t, func() bool { return countStarts(t, logFile) == 2 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	waitDone(t, done)
	assert.Equal(t, 1, s.restarts)
}

func TestSupervisor_IgnoresUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("A=1\n"), 0o600))

	s, err := New(Options{Command: "/bin/true", WatchFiles: []string{envFile}})
	require.NoError(t, err)

	abs := s.opts.WatchFiles[0]
	assert.False(t, s.changed(abs))

	require.NoError(t, os.WriteFile(envFile, []byte("A=1\n"), 0o600))
	assert.False(t, s.changed(abs))

	require.NoError(t, os.WriteFile(envFile, []byte("A=3\n"), 0o600))
	assert.True(t, s.changed(abs))
	assert.False(t, s.changed(abs))
}

func TestSupervisor_MissingFileCreationIsChange(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	s, err := New(Options{Command: "/bin/true", WatchFiles: []string{envFile}})
	require.NoError(t, err)

	abs := s.opts.WatchFiles[0]
	assert.False(t, s.changed(abs))
	require.NoError(t, os.WriteFile(envFile, []byte("A=1\n"), 0o600))
	assert.True(t, s.changed(abs))
}

func TestSupervisor_RestartsCrashedChild(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "starts.log")

	s, err := New(Options{
		Command:        "/bin/sh",
		Args:           []string{"-c", "echo start >> " + logFile + "; exit 1"},
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     40 * time.Millisecond,
	})
	require.NoError(t, err)

	cancel, done := runSupervisor(t, s)
	require.Eventually(t, func() bool { return countStarts(t, logFile) >= 3 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	waitDone(t, done)

	assert.LessOrEqual(t, s.backoff, 40*time.Millisecond)
}

func TestIncreaseBackoff(t *testing.T) {
	s, err := New(Options{Command: "x", InitialBackoff: time.Second, MaxBackoff: 3 * time.Second})
	require.NoError(t, err)

	s.increaseBackoff()
	assert.Equal(t, 2*time.Second, s.backoff)
	s.increaseBackoff()
	assert.Equal(t, 3*time.Second, s.backoff)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	a, err := HashFile(path)
	require.NoError(t, err)
	b, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = HashFile(path + ".missing")
	assert.Error(t, err)
}
