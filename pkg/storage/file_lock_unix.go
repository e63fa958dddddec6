//go:build !windows

package storage

import (
	"os"
	"path/filepath"
	"syscall"
)

// Advisory lock modes for Unix systems.
const (
	lockShared    = syscall.LOCK_SH
	lockExclusive = syscall.LOCK_EX
)

// acquireFileLock takes an advisory flock on a sidecar lock file so
// concurrent processes cannot interleave a save with a load. The caller is
// responsible for calling releaseFileLock when done.
func (f *FileStore) acquireFileLock(lockType int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return nil, err
	}

	lockFile, err := os.OpenFile(f.path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	if err := syscall.Flock(int(lockFile.Fd()), lockType); err != nil {
		lockFile.Close()
		return nil, err
	}

	return lockFile, nil
}

// releaseFileLock releases a lock acquired by acquireFileLock.
func (f *FileStore) releaseFileLock(lockFile *os.File) {
	if lockFile != nil {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		lockFile.Close()
	}
}
