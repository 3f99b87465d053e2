package auth

import "errors"

// Attribute bits, UEFI-standard (spec.md §6).
const (
	NonVolatile              uint32 = 0x01
	BootserviceAccess        uint32 = 0x02
	RuntimeAccess            uint32 = 0x04
	HardwareErrorRecord      uint32 = 0x08
	AuthenticatedWriteAccess uint32 = 0x10 // legacy, always rejected
	TimeBasedAuthWriteAccess uint32 = 0x20
	AppendWrite              uint32 = 0x40
)

// ErrInvalidParameter signals a structurally illegal request.
var ErrInvalidParameter = errors.New("auth: invalid parameter")

// ValidateAttrs rejects attribute combinations outlawed by the
// attribute validation table (spec.md §4.3). It does not know about a
// specific variable's identity — the PK/KEK/db/dbx TIME_BASED_AUTH
// requirement (I5) is enforced by Engine, which knows the name.
func ValidateAttrs(attrs uint32) error {
	if attrs&AuthenticatedWriteAccess != 0 {
		return ErrInvalidParameter
	}
	if attrs&RuntimeAccess != 0 && attrs&BootserviceAccess == 0 {
		return ErrInvalidParameter
	}

	base := attrs &^ (AppendWrite | TimeBasedAuthWriteAccess)
	switch base {
	case NonVolatile | BootserviceAccess | RuntimeAccess:
		return nil
	case NonVolatile | BootserviceAccess:
		return nil
	case BootserviceAccess:
		return nil
	case HardwareErrorRecord:
		return nil
	default:
		return ErrInvalidParameter
	}
}

// IsTimeBasedAuth reports whether attrs carries TIME_BASED_AUTH.
func IsTimeBasedAuth(attrs uint32) bool {
	return attrs&TimeBasedAuthWriteAccess != 0
}

// IsAppend reports whether attrs carries APPEND_WRITE.
func IsAppend(attrs uint32) bool {
	return attrs&AppendWrite != 0
}
