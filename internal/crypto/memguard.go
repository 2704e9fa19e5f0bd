//go:build linux || darwin

package crypto

import "golang.org/x/sys/unix"

// LockMemory pins a buffer so key material never hits swap.
func LockMemory(b []byte) error { return unix.Mlock(b) }

// UnlockMemory releases a previously pinned buffer.
func UnlockMemory(b []byte) error { return unix.Munlock(b) }
