package auth

import (
	"crypto/x509"

	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/store"
)

// Well-known names and GUIDs for the four policy variables (spec.md §6).
const (
	NamePK  = "PK"
	NameKEK = "KEK"
	NameDB  = "db"
	NameDBX = "dbx"
)

func pkKey() store.Key  { return store.Key{Name: NamePK, GUID: codec.EFIGlobalVariableGUID} }
func kekKey() store.Key { return store.Key{Name: NameKEK, GUID: codec.EFIGlobalVariableGUID} }
func dbKey() store.Key  { return store.Key{Name: NameDB, GUID: codec.EFIImageSecurityDatabaseGUID} }
func dbxKey() store.Key { return store.Key{Name: NameDBX, GUID: codec.EFIImageSecurityDatabaseGUID} }

// isPolicyVariable reports whether key is one of PK/KEK/db/dbx, which
// I5 requires to always carry TIME_BASED_AUTH|NV|BS|RT.
func isPolicyVariable(key store.Key) bool {
	return key == pkKey() || key == kekKey() || key == dbKey() || key == dbxKey()
}

// SetupMode reports whether the store currently has no PK installed
// (spec.md §3 "Secure-boot mode").
func SetupMode(s *store.Store) bool {
	_, err := s.Get(pkKey())
	return err != nil
}

// certsOf reads key's stored signature-list data and returns the X.509
// certificates it contains, or nil if the variable isn't present.
func certsOf(s *store.Store, key store.Key) []*x509.Certificate {
	rec, err := s.Get(key)
	if err != nil {
		return nil
	}
	entries, err := parseSignatureDatabase(rec.Data)
	if err != nil {
		return nil
	}
	return x509Certs(entries)
}

// dbxEntries returns the parsed dbx signature database, or nil if dbx
// is absent or malformed.
func dbxEntries(s *store.Store) []signatureEntry {
	rec, err := s.Get(dbxKey())
	if err != nil {
		return nil
	}
	entries, _ := parseSignatureDatabase(rec.Data)
	return entries
}

// rootsFor computes the trusted root set for target per the policy
// table in spec.md §4.3. ok is false only for PK-in-setup-mode, which
// has no root set at all (any signer, or no signer, is accepted).
func rootsFor(s *store.Store, target store.Key) (roots []*x509.Certificate, ok bool) {
	switch target {
	case pkKey():
		if SetupMode(s) {
			return nil, false
		}
		return certsOf(s, pkKey()), true
	case kekKey():
		return certsOf(s, pkKey()), true
	case dbKey(), dbxKey():
		roots = append(roots, certsOf(s, pkKey())...)
		roots = append(roots, certsOf(s, kekKey())...)
		return roots, true
	default:
		roots = append(roots, certsOf(s, pkKey())...)
		roots = append(roots, certsOf(s, kekKey())...)
		roots = append(roots, certsOf(s, dbKey())...)
		return roots, true
	}
}
