package auth

import (
	"bytes"
	"crypto/x509"

	"github.com/fullsailor/pkcs7"
)

// pkcs7SignedDataOID is 1.2.840.113549.1.7.2 (id-signedData), encoded as
// the 9-byte DER OID body used by the ContentInfo prefix check below.
var pkcs7SignedDataOID = []byte{0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x07, 0x02}

// isWrappedContentInfo detects the fixed 19-byte ContentInfo prefix
// original_source/src/uefi/pkcs7_verify.c checks for before deciding
// whether a blob needs wrapping: a SEQUENCE holding the signedData OID
// followed by an explicit [0] tag around the actual SignedData.
//
//	30 82 LL LL 06 09 <9-byte OID> A0 82 LL LL
func isWrappedContentInfo(der []byte) bool {
	if len(der) < 19 {
		return false
	}
	if der[0] != 0x30 || der[1] != 0x82 {
		return false
	}
	if der[4] != 0x06 || der[5] != 0x09 {
		return false
	}
	if !bytes.Equal(der[6:15], pkcs7SignedDataOID) {
		return false
	}
	if der[15] != 0xA0 || der[16] != 0x82 {
		return false
	}
	return true
}

// wrapContentInfo ports wrap_with_content_info: it prepends a
// ContentInfo SEQUENCE/OID/explicit-[0] envelope around a raw
// SignedData blob that doesn't already carry one. The two outer length
// fields are always encoded as long-form 2-byte lengths (0x82 LL LL),
// matching the C original rather than using DER's shortest-form rule,
// since that's the fixed layout downstream parsers here expect.
func wrapContentInfo(signedData []byte) []byte {
	inner := len(signedData)
	// [0] EXPLICIT wrapper around signedData.
	tagged := make([]byte, 0, 4+inner)
	tagged = append(tagged, 0xA0, 0x82, byte(inner>>8), byte(inner))
	tagged = append(tagged, signedData...)

	// SEQUENCE { OID, [0] tagged }
	body := make([]byte, 0, 2+9+len(tagged))
	body = append(body, 0x06, 0x09)
	body = append(body, pkcs7SignedDataOID...)
	body = append(body, tagged...)

	out := make([]byte, 0, 4+len(body))
	out = append(out, 0x30, 0x82, byte(len(body)>>8), byte(len(body)))
	out = append(out, body...)
	return out
}

// ensureContentInfo returns der wrapped in a ContentInfo envelope if it
// isn't already (spec.md §4.3 step 4).
func ensureContentInfo(der []byte) []byte {
	if isWrappedContentInfo(der) {
		return der
	}
	return wrapContentInfo(der)
}

// verifySigner parses certData as a (possibly bare) PKCS#7 SignedData,
// checks its signature covers digest, and returns a copy of the signer
// certificate. Certificates are copied out of the PKCS#7 object before
// it is discarded (spec.md §9's resolution of the signer-lifetime
// question); Go's GC makes use-after-free moot, but copying keeps the
// contract honest since policy roots can be recomputed from Store state
// that changes between verify and append.
func verifySigner(certData []byte, digest []byte) (*x509.Certificate, error) {
	wrapped := ensureContentInfo(certData)

	p7, err := pkcs7.Parse(wrapped)
	if err != nil {
		return nil, ErrSecurityViolation
	}
	p7.Content = digest

	signer := p7.GetOnlySigner()
	if signer == nil {
		return nil, ErrSecurityViolation
	}
	if err := p7.Verify(); err != nil {
		return nil, ErrSecurityViolation
	}

	// Copy so nothing downstream aliases the PKCS#7 object's memory.
	cp := *signer
	cp.Raw = append([]byte(nil), signer.Raw...)
	return &cp, nil
}

// certEqual compares two certificates by their raw DER encoding — the
// UEFI db/KEK/PK trust model is leaf equality, not CA-style chain
// building.
func certEqual(a, b *x509.Certificate) bool {
	return bytes.Equal(a.Raw, b.Raw)
}

// trusted reports whether signer matches one of roots by raw equality,
// or was issued by one of roots acting as an intermediate CA (spec.md
// §4.3: "partial chains terminated by a non-self-signed trusted
// intermediate are accepted"). Certificate time validity and EKU are
// deliberately not checked (firmware has no trustworthy clock).
func trusted(signer *x509.Certificate, roots []*x509.Certificate) bool {
	for _, root := range roots {
		if certEqual(signer, root) {
			return true
		}
		if signer.CheckSignatureFrom(root) == nil {
			return true
		}
	}
	return false
}
