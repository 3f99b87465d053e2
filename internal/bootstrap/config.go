// Package bootstrap wires the other components together and loads the
// initial PK/KEK/db/dbx state (spec.md §4.7, §6 "Initial PK/KEK/db
// load"). Unlike original_source/src/main.c, which keeps
// secure_boot_enabled/enforcement_level/domid as process-wide globals,
// every setting lives in an explicit Config threaded through the event
// loop (spec.md §9 Design Notes: "no module-level mutable data").
package bootstrap

import (
	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/remoteblob"
)

// Config is the explicit, immutable-after-construction configuration
// threaded through Bootstrap and the event loop.
type Config struct {
	Domain int
	// Resume tolerates a corrupt or unreadable durable snapshot at
	// startup by beginning with an empty store instead of failing
	// (spec.md §7: "fatal unless the caller passed --resume, in which
	// case the store begins empty").
	Resume bool

	Nonpersistent     bool // parsed, always rejected — see Config.Validate
	Deprivilege       bool
	UID               int
	GID               int
	Chroot            string
	PidFile           string
	AuthFiles         []string
	SecureBootEnabled bool
	EnforcementLevel  auth.Enforcement
	RemoteBlob        remoteblob.Config
}

// Validate rejects configurations this backend doesn't support.
// --nonpersistent is parsed (original_source's getopt_long table
// carries it) but was always an UNIMPLEMENTED stub there too; spec.md's
// own CLI table drops it, so this backend rejects it outright rather
// than silently ignoring it.
func (c Config) Validate() error {
	if c.Nonpersistent {
		return errNonpersistentUnsupported
	}
	return nil
}
