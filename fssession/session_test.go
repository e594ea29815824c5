package fssession

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeFS writes a stand-in filesystem binary that idles until
// interrupted.
func fakeFS(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakefs")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func testConfig(t *testing.T, binary string) Config {
	t.Helper()
	return Config{
		Binary:       binary,
		ConfigPath:   filepath.Join(t.TempDir(), "fs.json"),
		MountDir:     t.TempDir(),
		LogDir:       t.TempDir(),
		ReadyTimeout: 5 * time.Second,
		ReadyPoll:    20 * time.Millisecond,
		Drain:        5 * time.Second,
	}
}

func TestStartStopLeavesNoOrphan(t *testing.T) {
	binary := fakeFS(t, `trap 'exit 0' INT TERM
echo started
while :; do sleep 0.1; done
`)

	s, err := Start(zerolog.Nop(), testConfig(t, binary))
	require.NoError(t, err)
	require.Equal(t, StateReady, s.State())
	require.True(t, s.Alive())

	pid := s.Pid()

	s.Begin()
	require.Equal(t, StateRunning, s.State())

	require.NoError(t, s.Stop())
	require.Equal(t, StateStopped, s.State())
	require.False(t, s.Alive())

	// Signal 0 probes liveness without delivering anything.
	require.Error(t, unix.Kill(pid, 0))
}

func TestStartCapturesOutput(t *testing.T) {
	binary := fakeFS(t, `trap 'exit 0' INT
echo fs-log-line
while :; do sleep 0.1; done
`)

	s, err := Start(zerolog.Nop(), testConfig(t, binary))
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	data, err := os.ReadFile(s.LogPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "fs-log-line")
}

func TestStartMissingBinary(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := Start(zerolog.Nop(), cfg)
	require.Error(t, err)

	var sessErr *SessionError
	require.ErrorAs(t, err, &sessErr)
	require.Equal(t, "start", sessErr.Op)
}

func TestStartExitsBeforeReady(t *testing.T) {
	binary := fakeFS(t, "exit 1\n")

	cfg := testConfig(t, binary)
	// A mount root that never appears keeps the poll waiting on the
	// process instead.
	cfg.MountDir = filepath.Join(t.TempDir(), "never-mounted")
	cfg.ReadyTimeout = 2 * time.Second

	_, err := Start(zerolog.Nop(), cfg)
	require.Error(t, err)

	var sessErr *SessionError
	require.ErrorAs(t, err, &sessErr)
	require.Equal(t, "start", sessErr.Op)
	require.Contains(t, err.Error(), "exited before becoming ready")
}

func TestStartNotReadyReapsProcess(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	binary := fakeFS(t, `echo $$ > `+pidFile+`
trap 'exit 0' INT TERM
while :; do sleep 0.1; done
`)

	cfg := testConfig(t, binary)
	// Healthy process, but its mount root never appears.
	cfg.MountDir = filepath.Join(t.TempDir(), "never-mounted")
	cfg.ReadyTimeout = 500 * time.Millisecond

	_, err := Start(zerolog.Nop(), cfg)
	require.Error(t, err)

	var sessErr *SessionError
	require.ErrorAs(t, err, &sessErr)
	require.Equal(t, "start", sessErr.Op)
	require.Contains(t, err.Error(), "not ready")

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)

	// The readiness failure must not leave the filesystem running.
	require.Error(t, unix.Kill(pid, 0))
}

func TestStopDrainTimeout(t *testing.T) {
	binary := fakeFS(t, `trap '' INT
while :; do sleep 0.1; done
`)

	cfg := testConfig(t, binary)
	cfg.Drain = 300 * time.Millisecond

	s, err := Start(zerolog.Nop(), cfg)
	require.NoError(t, err)

	err = s.Stop()
	require.Error(t, err)

	var sessErr *SessionError
	require.ErrorAs(t, err, &sessErr)
	require.Equal(t, "stop", sessErr.Op)
	require.Equal(t, StateStopping, s.State())

	// The anomaly is reported, not suppressed; clean up manually.
	require.NoError(t, unix.Kill(s.Pid(), unix.SIGKILL))
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not die after SIGKILL")
	}
}
