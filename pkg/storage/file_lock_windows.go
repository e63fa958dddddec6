//go:build windows

package storage

import "os"

// Cross-process file locking is not implemented on Windows; the store's
// mutex still covers in-process callers.
const (
	lockShared    = 0
	lockExclusive = 0
)

// acquireFileLock is a no-op on Windows.
func (f *FileStore) acquireFileLock(lockType int) (*os.File, error) {
	return nil, nil
}

// releaseFileLock is a no-op on Windows.
func (f *FileStore) releaseFileLock(lockFile *os.File) {
}
