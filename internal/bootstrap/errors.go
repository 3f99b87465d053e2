package bootstrap

import "errors"

var (
	errNonpersistentUnsupported = errors.New("bootstrap: --nonpersistent is not supported by this backend")
	errUnknownAuthFile          = errors.New("bootstrap: auth file name does not match PK/KEK/db/dbx")
)
