//go:build unix

package flock

import "golang.org/x/sys/unix"

// Exclusive acquires an exclusive non-blocking lock on the file descriptor.
// Returns an error if the lock cannot be acquired immediately.
func Exclusive(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB) //#nosec G115 -- file descriptors fit in int
}

// Unlock releases the lock on the file descriptor.
func Unlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN) //#nosec G115 -- file descriptors fit in int
}
