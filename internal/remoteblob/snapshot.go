// Package remoteblob implements the snapshot/base64/XML-RPC round-trip
// to the external configuration database (spec.md §4.5, §6). The
// transport itself — the opaque fetch/store operations against that
// database — is out of scope (spec.md §1); only the framing around it
// is this package's job.
package remoteblob

import (
	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/store"
)

// EncodeSnapshot serialises s and base64-encodes the result, the first
// half of the durable blob wire format (spec.md §6).
func EncodeSnapshot(s *store.Store) (string, error) {
	blob, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	return codec.Base64Encode(blob), nil
}

// DecodeSnapshot reverses EncodeSnapshot, rebuilding a Store from a
// base64 string.
func DecodeSnapshot(b64 string) (*store.Store, error) {
	blob, err := codec.Base64Decode(b64)
	if err != nil {
		return nil, err
	}
	return store.Restore(blob)
}
