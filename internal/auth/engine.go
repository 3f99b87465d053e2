// Package auth implements the UEFI Authenticated Variable state
// machine: attribute validation, EFI_VARIABLE_AUTHENTICATION_2 parsing
// and verification, the PK/KEK/db/dbx policy hierarchy, append/delete
// semantics, and setup-mode transitions (spec.md §4.3).
package auth

import (
	"crypto/x509"

	log "github.com/sirupsen/logrus"

	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/store"
)

// Enforcement controls what happens when a signature fails verification
// or is denied by dbx (spec.md §1/§9 — "permissive" is an Open Question
// the spec never resolves). Enforcing is the zero value so a bare
// Engine{} behaves strictly.
type Enforcement int

const (
	// Enforcing returns ErrSecurityViolation to the caller.
	Enforcing Enforcement = iota
	// Permissive logs the would-be violation and lets the write
	// through unauthenticated, matching the C original's historical
	// behavior of gating secure boot only at the XenStore flag, not at
	// each write.
	Permissive
)

// Engine applies SetVariable requests against a Store under the
// authenticated-variable rules. It carries no mutable state beyond its
// enforcement mode — every policy decision is recomputed from Store on
// each call, per the "pure verify(payload, roots)" design note
// (spec.md §9); the Store itself is the only thing threaded through.
type Engine struct {
	Level Enforcement
}

// NewEngine returns a ready-to-use Engine in Enforcing mode.
func NewEngine() *Engine { return &Engine{} }

// NewEngineWithLevel returns an Engine running under the given
// enforcement mode.
func NewEngineWithLevel(level Enforcement) *Engine { return &Engine{Level: level} }

// Apply executes one SetVariable request: attribute validation, the
// EFI_VARIABLE_AUTHENTICATION_2 path when TIME_BASED_AUTH is set, and
// the plain-write path otherwise. raw is the request's "data" field
// verbatim (the caller has already stripped name/guid/attrs framing).
func (e *Engine) Apply(s *store.Store, key store.Key, attrs uint32, raw []byte) error {
	if attrs == 0 {
		return e.applyDelete(s, key, raw)
	}

	if err := ValidateAttrs(attrs); err != nil {
		return err
	}
	if isPolicyVariable(key) && !IsTimeBasedAuth(attrs) {
		return ErrInvalidParameter
	}

	if !IsTimeBasedAuth(attrs) {
		return e.applyPlain(s, key, attrs, raw)
	}
	return e.applyAuthenticated(s, key, attrs, raw)
}

// applyPlain handles variables without TIME_BASED_AUTH: no signature,
// no timestamp, just shape and resource limits (enforced by
// store.Store itself).
func (e *Engine) applyPlain(s *store.Store, key store.Key, attrs uint32, data []byte) error {
	if len(data) == 0 {
		s.Remove(key)
		return nil
	}
	if err := s.Set(key, data, attrs, codec.Time{}, nil); err != nil {
		return toAuthError(err)
	}
	return nil
}

// applyDelete handles a SetVariable carrying attrs == 0, which spec.md
// §4.3 treats as a delete request. The variable's own attrs (not the
// caller-supplied zero) govern whether a signature is required.
func (e *Engine) applyDelete(s *store.Store, key store.Key, raw []byte) error {
	rec, err := s.Get(key)
	if err != nil {
		return ErrNotFound
	}
	if !IsTimeBasedAuth(rec.Attrs) {
		s.Remove(key)
		return nil
	}

	parsed, err := ParseAuthentication2(raw)
	if err != nil {
		return err
	}
	if len(parsed.Payload) != 0 {
		// A delete carries no residual payload; a non-empty one under
		// attrs==0 is a malformed request, not a delete.
		return ErrInvalidParameter
	}
	if err := e.checkTimestamp(rec.Timestamp, parsed.Timestamp, false); err != nil {
		return err
	}
	if err := e.verifyAgainstPolicy(s, key, rec.Attrs, parsed); err != nil {
		return err
	}
	s.Remove(key)
	return nil
}

// applyAuthenticated handles the EFI_VARIABLE_AUTHENTICATION_2 path
// (spec.md §4.3 steps 1-5), including setup-mode bypass for PK,
// append semantics, and delete-via-empty-payload.
func (e *Engine) applyAuthenticated(s *store.Store, key store.Key, attrs uint32, raw []byte) error {
	parsed, err := ParseAuthentication2(raw)
	if err != nil {
		return err
	}

	// The first write of a variable accepts any timestamp; later writes
	// are checked against the stored one.
	if rec, err := s.Get(key); err == nil {
		if err := e.checkTimestamp(rec.Timestamp, parsed.Timestamp, IsAppend(attrs)); err != nil {
			return err
		}
	}

	bypassed := key == pkKey() && SetupMode(s)
	signer, err := e.resolveCert(s, key, attrs, parsed, bypassed)
	if err != nil {
		return err
	}
	var signerDER []byte
	if signer != nil {
		signerDER = signer.Raw
	}

	if IsAppend(attrs) {
		// Signature-owner pairs already present in the stored list are
		// not deduplicated: the payload is concatenated as-is.
		if err := s.Append(key, parsed.Payload, parsed.Timestamp, signerDER); err != nil {
			return toAuthError(err)
		}
		return nil
	}
	if len(parsed.Payload) == 0 {
		s.Remove(key)
		return nil
	}
	if err := s.Set(key, parsed.Payload, attrs, parsed.Timestamp, signerDER); err != nil {
		return toAuthError(err)
	}
	return nil
}

// checkTimestamp enforces I3/P2: strictly increasing for a replace,
// non-decreasing for an append.
func (e *Engine) checkTimestamp(prev, next codec.Time, isAppend bool) error {
	if isAppend {
		if !next.AtLeast(prev) {
			return ErrSecurityViolation
		}
		return nil
	}
	if !next.After(prev) {
		return ErrSecurityViolation
	}
	return nil
}

// verifyAgainstPolicy runs the PKCS#7 verification and policy-root
// check without returning the signer certificate, for callers (the
// delete path) that only need a pass/fail.
func (e *Engine) verifyAgainstPolicy(s *store.Store, key store.Key, attrs uint32, parsed *Authentication2) error {
	_, err := e.resolveCert(s, key, attrs, parsed, false)
	return err
}

// resolveCert verifies parsed's PKCS#7 signature against key's policy
// roots and returns the signer certificate. When bypassed is true (PK
// write during setup mode) verification is skipped entirely and a nil
// certificate is returned.
func (e *Engine) resolveCert(s *store.Store, key store.Key, attrs uint32, parsed *Authentication2, bypassed bool) (*x509.Certificate, error) {
	if bypassed {
		return nil, nil
	}

	digest, err := SignedDigest(key.Name, key.GUID, attrs, parsed.Timestamp, parsed.Payload)
	if err != nil {
		return nil, ErrInvalidParameter
	}
	signer, err := verifySigner(parsed.CertData, digest)
	if err != nil {
		return nil, err
	}

	roots, ok := rootsFor(s, key)
	if !ok {
		// Only PK-in-setup-mode returns ok==false, and that case is
		// handled by bypassed above; reaching here means no policy
		// exists yet to trust against.
		return e.admit(signer, key, "no trust policy established")
	}
	if !trusted(signer, roots) {
		return e.admit(signer, key, "signer not chained to a trusted root")
	}
	if key != dbxKey() && deniedByDbx(signer, dbxEntries(s)) {
		return e.admit(signer, key, "signer denied by dbx")
	}
	return signer, nil
}

// admit applies the configured Enforcement to a failed verification:
// Enforcing rejects, Permissive logs and lets the write through as if
// it had verified (returning the parsed signer for bookkeeping).
func (e *Engine) admit(signer *x509.Certificate, key store.Key, reason string) (*x509.Certificate, error) {
	if e.Level != Permissive {
		return nil, ErrSecurityViolation
	}
	log.WithField("variable", key.Name).Warn("auth: permissive mode admitting unverified write: " + reason)
	return signer, nil
}

// toAuthError maps a store.Store error onto this package's taxonomy.
func toAuthError(err error) error {
	switch err {
	case store.ErrOutOfResources:
		return ErrOutOfResources
	case store.ErrNotFound:
		return ErrNotFound
	default:
		return err
	}
}
