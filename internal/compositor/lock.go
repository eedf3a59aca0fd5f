package compositor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is created in the work directory while a generation runs.
const LockFileName = ".generate.lock"

// Lock takes the cross-process generation lock in dir, waiting until ctx is
// done. The returned function releases it.
func Lock(ctx context.Context, dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory %s: %w", dir, err)
	}

	fl := flock.New(filepath.Join(dir, LockFileName))
	ok, err := fl.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire generation lock: %w", err)
	}
	if !ok {
		return nil, errors.New("generation lock is held by another process")
	}
	return fl.Unlock, nil
}
