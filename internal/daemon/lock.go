// Package daemon guards against two tanasted processes watching the
// same data root at once with an exclusive flock on a lock file (no PID
// is written to it), adapted from the teacher's registry lock for
// cross-process daemon coordination and trimmed from a multi-workspace
// registry down to the single lock Tanaste actually needs.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is an exclusive, cross-process advisory lock tied to one data
// root. Only one process may hold it at a time.
type Lock struct {
	flock *flock.Flock
	path  string
}

// Acquire takes the lock for dataRoot, creating dataRoot if needed.
// It returns an error immediately if another process already holds it —
// tanasted never blocks waiting for a peer to exit.
func Acquire(dataRoot string) (*Lock, error) {
	if err := os.MkdirAll(dataRoot, 0o750); err != nil {
		return nil, fmt.Errorf("daemon: create data root: %w", err)
	}
	path := filepath.Join(dataRoot, "tanasted.lock")
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("daemon: lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("daemon: another tanasted process already holds %s", path)
	}
	return &Lock{flock: fl, path: path}, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("daemon: unlock %s: %w", l.path, err)
	}
	_ = os.Remove(l.path)
	return nil
}
