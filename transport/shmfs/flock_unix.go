//go:build unix

package shmfs

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// tryLock attempts an exclusive non-blocking lock on f. It returns false
// when another descriptor, in this or any other process, holds the lock.
func tryLock(f *os.File) (bool, error) {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return false, nil
	}
	return false, err
}

func unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
