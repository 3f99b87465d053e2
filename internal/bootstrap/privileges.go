package bootstrap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DropPrivileges chroots (if chroot is non-empty) and then switches to
// gid/uid, in that order — chroot requires the root the process is
// about to give up. Best-effort: original_source's drop_privileges does
// the same setgid-then-setuid sequence and treats any failure as fatal
// rather than continuing privileged.
func DropPrivileges(chroot string, uid, gid int) error {
	if chroot != "" {
		if err := unix.Chroot(chroot); err != nil {
			return fmt.Errorf("bootstrap: chroot: %w", err)
		}
		if err := unix.Chdir("/"); err != nil {
			return fmt.Errorf("bootstrap: chdir after chroot: %w", err)
		}
	}
	if gid != 0 {
		if err := unix.Setgid(gid); err != nil {
			return fmt.Errorf("bootstrap: setgid: %w", err)
		}
	}
	if uid != 0 {
		if err := unix.Setuid(uid); err != nil {
			return fmt.Errorf("bootstrap: setuid: %w", err)
		}
	}
	return nil
}
