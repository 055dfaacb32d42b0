// Package proclock provides the cross-process single-instance guard. The
// messaging platform rejects concurrent pollers on one token, so exactly one
// orchestrator process may run; acquisition failure is a fail-fast condition,
// not something to queue on.
package proclock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning means a live process holds the lock.
var ErrAlreadyRunning = errors.New("another orchestrator instance is already running")

// Handle is the held exclusive lock. Release is idempotent; the OS drops the
// underlying lock anyway if the process dies without releasing.
type Handle struct {
	lock    *flock.Flock
	pidPath string
	once    sync.Once
}

// Acquire takes a non-blocking exclusive lock on path and records the holder
// pid alongside it. When the lock is held, the recorded pid is probed: a pid
// that is no longer alive marks a stale lock from a crashed process, which is
// reclaimed with a single retry.
func Acquire(path string) (*Handle, error) {
	handle, err := tryAcquire(path)
	if err == nil {
		return handle, nil
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		return nil, err
	}

	pid := readHolderPid(pidPathFor(path))
	if pid > 0 && pidAlive(pid) {
		return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	// Stale artifact from a crashed holder: reclaim once.
	_ = os.Remove(pidPathFor(path))
	_ = os.Remove(path)
	handle, err = tryAcquire(path)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func tryAcquire(path string) (*Handle, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	pidPath := pidPathFor(path)
	pid := []byte(strconv.Itoa(os.Getpid()))
	if err := os.WriteFile(pidPath, pid, 0o644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("write pid file %s: %w", pidPath, err)
	}
	return &Handle{lock: lock, pidPath: pidPath}, nil
}

// Release drops the lock and removes the artifacts. Safe to call more than
// once and from deferred and signal paths simultaneously.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		_ = h.lock.Unlock()
		_ = os.Remove(h.pidPath)
		_ = os.Remove(h.lock.Path())
	})
}

func pidPathFor(path string) string {
	return path + ".pid"
}

func readHolderPid(pidPath string) int {
	raw, err := os.ReadFile(pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
