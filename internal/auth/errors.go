package auth

import "errors"

// Sentinel errors forming the internal taxonomy of spec.md §7. auth
// returns plain Go errors; only protocol.classify maps them onto an
// EFI_STATUS.
var (
	ErrSecurityViolation = errors.New("auth: security violation")
	ErrWriteProtected     = errors.New("auth: write protected")
	ErrOutOfResources     = errors.New("auth: out of resources")
	ErrNotFound           = errors.New("auth: not found")
)
