// Package fssession manages the lifecycle of the filesystem under test:
// an external binary that accepts a configuration file and a mount
// directory. The binary is an opaque collaborator; the only channel
// back from it is an interrupt signal and its exit status.
package fssession

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// State is the session lifecycle position. Transitions are strictly
// starting -> ready -> running -> stopping -> stopped; no transition
// skips intermediate states.
type State string

const (
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// SessionError indicates the external filesystem process failed to
// start, become ready, or exit within the drain interval.
type SessionError struct {
	Op  string // "start" or "stop"
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("filesystem session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// Config describes how to launch and drain the filesystem process.
type Config struct {
	// Binary is the filesystem executable
	Binary string
	// ConfigPath is passed through to the binary unmodified
	ConfigPath string
	// MountDir is the directory the filesystem serves
	MountDir string
	// LogDir receives the process's combined output, one file per
	// session named by start timestamp
	LogDir string
	// ReadyTimeout bounds the readiness poll (default 10s)
	ReadyTimeout time.Duration
	// ReadyPoll is the interval between readiness probes (default 100ms)
	ReadyPoll time.Duration
	// Drain bounds the wait for the process to flush and exit after the
	// interrupt signal (default 30s)
	Drain time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 10 * time.Second
	}
	if cfg.ReadyPoll == 0 {
		cfg.ReadyPoll = 100 * time.Millisecond
	}
	if cfg.Drain == 0 {
		cfg.Drain = 30 * time.Second
	}
	return cfg
}

// Session is a live filesystem process. It is owned by a single
// goroutine for its whole lifetime and destroyed once the process has
// exited.
type Session struct {
	cfg    Config
	logger zerolog.Logger
	cmd    *exec.Cmd
	log    *os.File

	// LogPath is the file capturing the process's combined output
	LogPath string

	state   State
	done    chan struct{}
	waitErr error
}

// Start launches the filesystem as a background process, redirecting
// its combined output to a log file, and waits for the mount to become
// ready. Readiness is probed with a retry-with-timeout loop stat'ing
// the mount root rather than a blind sleep, so the wait is
// machine-independent.
func Start(logger zerolog.Logger, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	logPath := filepath.Join(cfg.LogDir,
		fmt.Sprintf("fs-%s.log", time.Now().Format("20060102-150405")))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, &SessionError{Op: "start", Err: fmt.Errorf("create log %s: %w", logPath, err)}
	}

	cmd := exec.Command(cfg.Binary, "--config", cfg.ConfigPath, cfg.MountDir)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	s := &Session{
		cfg:     cfg,
		logger:  logger.With().Str("binary", cfg.Binary).Str("mount", cfg.MountDir).Logger(),
		cmd:     cmd,
		log:     logFile,
		LogPath: logPath,
		state:   StateStarting,
		done:    make(chan struct{}),
	}

	s.logger.Info().
		Str("config", cfg.ConfigPath).
		Str("log", logPath).
		Msg("Starting filesystem under test")

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, &SessionError{Op: "start", Err: err}
	}

	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()

	if err := s.awaitReady(); err != nil {
		s.abort()
		return nil, err
	}

	s.state = StateReady
	s.logger.Info().Int("pid", cmd.Process.Pid).Msg("Filesystem ready")
	return s, nil
}

// abort tears down a session that never became ready: interrupt the
// process, wait up to the drain interval for it to exit, and release
// the log file. Like Stop, a process that ignores the interrupt is a
// reportable anomaly and is never force-killed.
func (s *Session) abort() {
	if err := s.cmd.Process.Signal(unix.SIGINT); err != nil {
		// Already gone; the wait below confirms.
		s.logger.Debug().Err(err).Msg("Interrupt delivery failed")
	}

	select {
	case <-s.done:
	case <-time.After(s.cfg.Drain):
		s.logger.Error().
			Int("pid", s.Pid()).
			Msg("Unready filesystem did not exit within drain interval")
	}

	if err := s.log.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to close session log")
	}
}

// awaitReady polls the mount root until a stat succeeds, the process
// dies, or the timeout elapses.
func (s *Session) awaitReady() error {
	deadline := time.Now().Add(s.cfg.ReadyTimeout)

	for {
		if _, err := os.Stat(s.cfg.MountDir); err == nil {
			return nil
		}

		if time.Now().After(deadline) {
			return &SessionError{
				Op:  "start",
				Err: fmt.Errorf("mount %s not ready after %s", s.cfg.MountDir, s.cfg.ReadyTimeout),
			}
		}

		select {
		case <-s.done:
			return &SessionError{
				Op:  "start",
				Err: fmt.Errorf("filesystem exited before becoming ready: %v", s.waitErr),
			}
		case <-time.After(s.cfg.ReadyPoll):
		}
	}
}

// Begin marks the session as serving a workload.
func (s *Session) Begin() {
	if s.state == StateReady {
		s.state = StateRunning
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Alive reports whether the filesystem process is still running.
func (s *Session) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Pid returns the filesystem process's identifier.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// Stop requests graceful shutdown with an interrupt signal and blocks
// until the process has flushed and exited, up to the drain interval. A
// filesystem that fails to exit in time is a reportable anomaly: Stop
// returns a SessionError and never force-kills.
func (s *Session) Stop() error {
	s.state = StateStopping
	s.logger.Info().Int("pid", s.Pid()).Msg("Stopping filesystem under test")

	if err := s.cmd.Process.Signal(unix.SIGINT); err != nil {
		// Already gone; let the wait below confirm.
		s.logger.Debug().Err(err).Msg("Interrupt delivery failed")
	}

	select {
	case <-s.done:
	case <-time.After(s.cfg.Drain):
		return &SessionError{
			Op:  "stop",
			Err: fmt.Errorf("process %d did not exit within drain interval %s", s.Pid(), s.cfg.Drain),
		}
	}

	s.state = StateStopped
	if err := s.log.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to close session log")
	}

	s.logger.Info().Msg("Filesystem stopped")
	return nil
}
