package reload

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// DefaultGracePeriod is the time to wait after SIGTERM before sending SIGKILL.
	DefaultGracePeriod = 10 * time.Second

	// DefaultInitialBackoff is the initial delay before restarting after an abnormal exit.
	DefaultInitialBackoff = time.Second

	// DefaultMaxBackoff is the maximum delay between restarts.
	DefaultMaxBackoff = time.Minute

	backoffFactor = 2.0

	// successRunTime is how long the child must run before backoff resets.
	successRunTime = 30 * time.Second

	// DefaultDebounce is the delay after an fsnotify event before checking checksums.
	DefaultDebounce = 100 * time.Millisecond
)

type Options struct {
	// Command and Args start the child server, e.g. the current binary with
	// "serve --no-reload".
	Command string
	Args    []string
	// WatchFiles trigger a restart when their content changes.
	WatchFiles []string

	GracePeriod    time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Debounce       time.Duration

	Logger *zap.Logger
}

// Supervisor runs the server as a child process and restarts it when a
// watched file changes or the child crashes.
type Supervisor struct {
	opts    Options
	logger  *zap.Logger
	backoff time.Duration

	mu     sync.Mutex
	hashes map[string][sha256.Size]byte

	// Restarts counts children started after the first one.
	restarts int
}

func New(opts Options) (*Supervisor, error) {
	if opts.Command == "" {
		return nil, errors.New("reload: command is required")
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Supervisor{
		opts:    opts,
		logger:  opts.Logger.Named("reload"),
		backoff: opts.InitialBackoff,
		hashes:  make(map[string][sha256.Size]byte),
	}
	s.opts.WatchFiles = make([]string, 0, len(opts.WatchFiles))
	for _, f := range opts.WatchFiles {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("reload: resolve %s: %w", f, err)
		}
		if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
			abs = filepath.Join(dir, filepath.Base(abs))
		}
		s.opts.WatchFiles = append(s.opts.WatchFiles, abs)
		s.hashes[abs] = hashOrZero(abs)
	}
	return s, nil
}

// Run blocks until ctx is cancelled, then stops the child and returns.
func (s *Supervisor) Run(ctx context.Context) error {
	updateCh := make(chan string, 1)
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	if len(s.opts.WatchFiles) > 0 {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("reload: create watcher: %w", err)
		}
		defer watcher.Close()
		if err := s.addWatches(watcher); err != nil {
			return err
		}
		go s.watch(watchCtx, watcher, updateCh)
	}

	first := true
	for {
		if ctx.Err() != nil {
			return nil
		}

		child, err := s.startChild()
		if err != nil {
			s.logger.Error("failed to start child", zap.Error(err))
			if !s.sleepBackoff(ctx) {
				return nil
			}
			s.increaseBackoff()
			continue
		}
		if !first {
			s.restarts++
		}
		first = false

		startTime := time.Now()
		childDone := make(chan error, 1)
		go func() {
			childDone <- child.Wait()
		}()

		select {
		case err := <-childDone:
			elapsed := time.Since(startTime)
			if elapsed >= successRunTime {
				s.backoff = s.opts.InitialBackoff
			}
			s.logger.Warn("child exited", zap.Duration("after", elapsed), zap.Error(err))
			if !s.sleepBackoff(ctx) {
				return nil
			}
			s.increaseBackoff()

		case file := <-updateCh:
			s.logger.Info("change detected, restarting server", zap.String("file", file))
			s.stopChild(child, childDone)
			s.backoff = s.opts.InitialBackoff

		case <-ctx.Done():
			s.logger.Info("stopping server")
			s.stopChild(child, childDone)
			return nil
		}
	}
}

func (s *Supervisor) startChild() (*exec.Cmd, error) {
	cmd := exec.Command(s.opts.Command, s.opts.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("exec %s: %w", s.opts.Command, err)
	}
	s.logger.Info("started server process", zap.Int("pid", cmd.Process.Pid))
	return cmd, nil
}

// stopChild sends SIGTERM, escalates to SIGKILL after the grace period and
// drains childDone.
func (s *Supervisor) stopChild(cmd *exec.Cmd, childDone <-chan error) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		<-childDone
		return
	}
	select {
	case <-childDone:
	case <-time.After(s.opts.GracePeriod):
		s.logger.Warn("grace period expired, killing server", zap.Int("pid", cmd.Process.Pid))
		_ = cmd.Process.Kill()
		<-childDone
	}
}

// addWatches watches parent directories so atomic replaces (write temp
// file, rename) are seen.
func (s *Supervisor) addWatches(w *fsnotify.Watcher) error {
	dirs := make(map[string]bool)
	for _, f := range s.opts.WatchFiles {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("reload: watch %s: %w", dir, err)
		}
		s.logger.Debug("watching directory", zap.String("dir", dir))
	}
	return nil
}

func (s *Supervisor) watch(ctx context.Context, w *fsnotify.Watcher, updateCh chan<- string) {
	watched := make(map[string]bool, len(s.opts.WatchFiles))
	for _, f := range s.opts.WatchFiles {
		watched[f] = true
	}

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if !watched[name] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			if t, ok := timers[name]; ok {
				t.Stop()
			}
			timers[name] = time.AfterFunc(s.opts.Debounce, func() {
				if s.changed(name) {
					select {
					case updateCh <- name:
					default:
					}
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("fsnotify error", zap.Error(err))

		case <-ctx.Done():
			return
		}
	}
}

// changed reports whether the file's checksum differs from the last one seen.
func (s *Supervisor) changed(path string) bool {
	h := hashOrZero(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if h == s.hashes[path] {
		s.logger.Debug("event but checksum unchanged", zap.String("file", path))
		return false
	}
	s.hashes[path] = h
	return true
}

func (s *Supervisor) sleepBackoff(ctx context.Context) bool {
	s.logger.Info("waiting before restart", zap.Duration("backoff", s.backoff))
	select {
	case <-time.After(s.backoff):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Supervisor) increaseBackoff() {
	s.backoff = time.Duration(float64(s.backoff) * backoffFactor)
	if s.backoff > s.opts.MaxBackoff {
		s.backoff = s.opts.MaxBackoff
	}
}

// HashFile computes the SHA256 hash of the file at the given path.
func HashFile(path string) ([sha256.Size]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("hash %s: %w", path, err)
	}

	var result [sha256.Size]byte
	copy(result[:], h.Sum(nil))
	return result, nil
}

// hashOrZero treats a missing file as the zero hash so creating it counts
// as a change.
func hashOrZero(path string) [sha256.Size]byte {
	h, err := HashFile(path)
	if err != nil {
		return [sha256.Size]byte{}
	}
	return h
}
