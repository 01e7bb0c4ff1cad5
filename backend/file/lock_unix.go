//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an advisory exclusive lock on f so that a second
// instance opening the same image observes a clear error rather than
// silently racing with this process. The FAT and directory tree carry
// no distributed-lock or crash-consistency guarantee of their own
// (spec.md §5); this is the single-host best-effort guard.
func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
