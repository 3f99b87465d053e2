// Package protocol implements the request/response dispatcher for the
// four UEFI commands carried over the shared guest page (spec.md §4.4).
package protocol

import (
	"errors"

	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/store"
)

// Status is a 32-bit EFI_STATUS value, written to the wire status
// field. Error codes are the real UEFI Appendix D encoding (error bit
// set, i.e. 0x80000000 | code) so a guest's existing EFI_STATUS
// handling needs no protocol-specific translation.
type Status uint32

const (
	Success           Status = 0
	InvalidParameter  Status = 0x80000002
	Unsupported       Status = 0x80000003
	BufferTooSmall    Status = 0x80000005
	WriteProtected    Status = 0x80000008
	OutOfResources    Status = 0x80000009
	NotFound          Status = 0x8000000E
	SecurityViolation Status = 0x8000001A
)

// classify maps a component-level error onto a wire Status
// (spec.md §7's taxonomy, centralized here per the component design:
// store/auth return plain Go errors, only the protocol boundary
// classifies them).
func classify(err error) Status {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, store.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		return NotFound
	case errors.Is(err, store.ErrOutOfResources), errors.Is(err, auth.ErrOutOfResources):
		return OutOfResources
	case errors.Is(err, auth.ErrSecurityViolation):
		return SecurityViolation
	case errors.Is(err, auth.ErrWriteProtected):
		return WriteProtected
	case errors.Is(err, auth.ErrInvalidParameter):
		return InvalidParameter
	default:
		return InvalidParameter
	}
}
