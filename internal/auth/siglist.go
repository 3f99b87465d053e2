package auth

import (
	"crypto/sha256"
	"crypto/x509"

	"github.com/varstored/govarstored/internal/codec"
)

// signatureListHeaderSize is SignatureType(16) + SignatureListSize(4) +
// SignatureHeaderSize(4) + SignatureSize(4).
const signatureListHeaderSize = 28

// signatureEntry is one EFI_SIGNATURE_DATA record: an owner GUID
// followed by SignatureSize-16 bytes of payload (an X.509 DER cert or a
// SHA-256 digest, depending on the enclosing list's SignatureType).
type signatureEntry struct {
	Type  codec.GUID
	Owner codec.GUID
	Data  []byte
}

// parseSignatureDatabase walks a raw EFI_SIGNATURE_LIST array the same
// way original_source/src/uefi/pkcs7_verify.c and firmware.go's
// parseGuidTable both walk fixed-header tables: read a header, validate
// it bounds a whole number of fixed-size entries, advance by
// SignatureListSize, repeat until the buffer is exhausted. Malformed
// trailing bytes fail closed rather than panicking.
func parseSignatureDatabase(raw []byte) ([]signatureEntry, error) {
	var entries []signatureEntry
	c := codec.NewCursor(raw)

	for c.Len() > 0 {
		if c.Len() < signatureListHeaderSize {
			return nil, ErrInvalidParameter
		}
		sigType, err := c.ReadGUID()
		if err != nil {
			return nil, ErrInvalidParameter
		}
		listSize, err := c.U32()
		if err != nil {
			return nil, ErrInvalidParameter
		}
		headerSize, err := c.U32()
		if err != nil {
			return nil, ErrInvalidParameter
		}
		sigSize, err := c.U32()
		if err != nil {
			return nil, ErrInvalidParameter
		}
		if sigSize < 16 || listSize < signatureListHeaderSize+headerSize {
			return nil, ErrInvalidParameter
		}
		if err := c.Skip(int(headerSize)); err != nil {
			return nil, ErrInvalidParameter
		}

		remaining := int(listSize) - signatureListHeaderSize - int(headerSize)
		if remaining < 0 || remaining%int(sigSize) != 0 {
			return nil, ErrInvalidParameter
		}
		count := remaining / int(sigSize)
		for i := 0; i < count; i++ {
			owner, err := c.ReadGUID()
			if err != nil {
				return nil, ErrInvalidParameter
			}
			data, err := c.Bytes(int(sigSize) - 16)
			if err != nil {
				return nil, ErrInvalidParameter
			}
			entries = append(entries, signatureEntry{Type: sigType, Owner: owner, Data: append([]byte(nil), data...)})
		}
	}
	return entries, nil
}

// x509Certs extracts the X.509 certificates out of a parsed signature
// database, ignoring any SHA-256-typed entries (those only matter for
// dbx denial checks, via sha256Digests).
func x509Certs(entries []signatureEntry) []*x509.Certificate {
	var certs []*x509.Certificate
	for _, e := range entries {
		if e.Type != codec.EFICertX509GUID {
			continue
		}
		cert, err := x509.ParseCertificate(e.Data)
		if err != nil {
			continue
		}
		certs = append(certs, cert)
	}
	return certs
}

// sha256Digests extracts SHA-256 digests from a signature database
// (dbx entries).
func sha256Digests(entries []signatureEntry) map[[32]byte]bool {
	out := make(map[[32]byte]bool)
	for _, e := range entries {
		if e.Type != codec.EFICertSHA256GUID || len(e.Data) != 32 {
			continue
		}
		var digest [32]byte
		copy(digest[:], e.Data)
		out[digest] = true
	}
	return out
}

// deniedByDbx reports whether signer's SHA-256 digest is present in
// dbx's signature database.
func deniedByDbx(signer *x509.Certificate, dbxEntries []signatureEntry) bool {
	digests := sha256Digests(dbxEntries)
	sum := sha256.Sum256(signer.Raw)
	return digests[sum]
}
