package remoteblob

import (
	"context"
	"fmt"

	"github.com/varstored/govarstored/internal/store"
)

// Session is the opaque remote-database collaborator (spec.md §1):
// fetch_blob(session) -> bytes, store_blob(session, bytes). The string
// each method carries is already XML-RPC-enveloped, matching the C
// original's XAPI session being handed a serialized document rather
// than raw bytes.
type Session interface {
	FetchBlob(ctx context.Context) (string, error)
	StoreBlob(ctx context.Context, envelope string) error
}

// Config carries backend-specific connection parameters fed in via the
// CLI's repeatable --arg k:v flag (spec.md §6), mirroring
// original_source's xapi_parse_arg.
type Config struct {
	Endpoint     string
	SessionToken string
	MethodName   string
}

// RemoteBlob ties a Session to the snapshot/envelope framing.
type RemoteBlob struct {
	Session Session
	Method  string
}

// New returns a RemoteBlob using method as the XML-RPC method name for
// save requests (the fetch side has no method name of its own — it's a
// bare response read).
func New(session Session, method string) *RemoteBlob {
	return &RemoteBlob{Session: session, Method: method}
}

// Load fetches the durable blob and restores a Store from it.
func (r *RemoteBlob) Load(ctx context.Context) (*store.Store, error) {
	raw, err := r.Session.FetchBlob(ctx)
	if err != nil {
		return nil, fmt.Errorf("remoteblob: fetch: %w", err)
	}
	b64, err := UnwrapResponse([]byte(raw))
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(b64)
}

// Save snapshots s, envelopes it, and writes it back through the
// session.
func (r *RemoteBlob) Save(ctx context.Context, s *store.Store) error {
	b64, err := EncodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("remoteblob: encoding snapshot: %w", err)
	}
	envelope, err := WrapRequest(r.Method, b64)
	if err != nil {
		return fmt.Errorf("remoteblob: wrapping request: %w", err)
	}
	if err := r.Session.StoreBlob(ctx, string(envelope)); err != nil {
		return fmt.Errorf("remoteblob: store: %w", err)
	}
	return nil
}
