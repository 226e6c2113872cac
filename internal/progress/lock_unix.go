//go:build unix

package progress

import (
	"os"

	"golang.org/x/sys/unix"
)

func lockShared(f *os.File) error    { return unix.Flock(int(f.Fd()), unix.LOCK_SH) }
func lockExclusive(f *os.File) error { return unix.Flock(int(f.Fd()), unix.LOCK_EX) }
func unlock(f *os.File) error        { return unix.Flock(int(f.Fd()), unix.LOCK_UN) }
