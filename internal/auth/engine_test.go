package auth

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/store"
)

func ts(day uint8) codec.Time {
	return codec.Time{Year: 2024, Month: 1, Day: day, Hour: 12}
}

// TestSetupModePKInstall is spec.md §8 scenario 1.
func TestSetupModePKInstall(t *testing.T) {
	s := store.New()
	e := NewEngine()
	require.True(t, SetupMode(s))

	pk := newTestKey(t, "platform key")
	sigList := signatureList(codec.EFIGlobalVariableGUID, pk.cert)
	blob := authPayload(t, pk, NamePK, codec.EFIGlobalVariableGUID, 0x27, ts(1), sigList)

	err := e.Apply(s, pkKey(), 0x27, blob)
	require.NoError(t, err)

	rec, err := s.Get(pkKey())
	require.NoError(t, err)
	require.Equal(t, sigList, rec.Data)
	require.False(t, SetupMode(s))
}

// TestKEKRequiresPK is spec.md §8 scenario 2.
func TestKEKRequiresPK(t *testing.T) {
	s := store.New()
	e := NewEngine()

	pk := newTestKey(t, "platform key")
	installPK(t, e, s, pk)

	kek := newTestKey(t, "key exchange key")
	kekList := signatureList(codec.EFIGlobalVariableGUID, kek.cert)
	blob := authPayload(t, pk, NameKEK, codec.EFIGlobalVariableGUID, 0x27, ts(2), kekList)

	require.NoError(t, e.Apply(s, kekKey(), 0x27, blob))

	rec, err := s.Get(kekKey())
	require.NoError(t, err)
	require.Equal(t, kekList, rec.Data)

	// Signed by an unrelated key: rejected.
	other := newTestKey(t, "impostor")
	badBlob := authPayload(t, other, NameKEK, codec.EFIGlobalVariableGUID, 0x27, ts(3), kekList)
	err = e.Apply(s, kekKey(), 0x27, badBlob)
	require.ErrorIs(t, err, ErrSecurityViolation)
}

// TestReplayRejected is spec.md §8 scenario 3.
func TestReplayRejected(t *testing.T) {
	s := store.New()
	e := NewEngine()

	pk := newTestKey(t, "platform key")
	installPK(t, e, s, pk)

	kek := newTestKey(t, "key exchange key")
	kekList := signatureList(codec.EFIGlobalVariableGUID, kek.cert)
	blob := authPayload(t, pk, NameKEK, codec.EFIGlobalVariableGUID, 0x27, ts(2), kekList)
	require.NoError(t, e.Apply(s, kekKey(), 0x27, blob))

	err := e.Apply(s, kekKey(), 0x27, blob)
	require.ErrorIs(t, err, ErrSecurityViolation)
}

// TestSetupModeClosedRejectsWrongSigner is P6: once setup_mode is
// false, a PK replace signed by a key other than the installed PK is
// rejected and leaves the store unchanged.
func TestSetupModeClosedRejectsWrongSigner(t *testing.T) {
	s := store.New()
	e := NewEngine()

	pk := newTestKey(t, "platform key")
	installPK(t, e, s, pk)

	before, err := s.Get(pkKey())
	require.NoError(t, err)
	beforeData := append([]byte(nil), before.Data...)

	impostor := newTestKey(t, "impostor")
	newList := signatureList(codec.EFIGlobalVariableGUID, impostor.cert)
	blob := authPayload(t, impostor, NamePK, codec.EFIGlobalVariableGUID, 0x27, ts(2), newList)

	err = e.Apply(s, pkKey(), 0x27, blob)
	require.ErrorIs(t, err, ErrSecurityViolation)

	after, err := s.Get(pkKey())
	require.NoError(t, err)
	require.Equal(t, beforeData, after.Data)
}

func TestValidateAttrsTable(t *testing.T) {
	cases := []struct {
		name  string
		attrs uint32
		ok    bool
	}{
		{"nv+bs+rt", NonVolatile | BootserviceAccess | RuntimeAccess, true},
		{"nv+bs", NonVolatile | BootserviceAccess, true},
		{"bs-only", BootserviceAccess, true},
		{"hw-error-alone", HardwareErrorRecord, true},
		{"auth-path", NonVolatile | BootserviceAccess | RuntimeAccess | TimeBasedAuthWriteAccess, true},
		{"auth-append", NonVolatile | BootserviceAccess | RuntimeAccess | TimeBasedAuthWriteAccess | AppendWrite, true},
		{"legacy-auth-rejected", AuthenticatedWriteAccess, false},
		{"rt-without-bs", NonVolatile | RuntimeAccess, false},
		{"bare-time-based", TimeBasedAuthWriteAccess, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateAttrs(c.attrs)
			if c.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestDbxDeniesSigner(t *testing.T) {
	s := store.New()
	e := NewEngine()

	pk := newTestKey(t, "platform key")
	installPK(t, e, s, pk)

	db := newTestKey(t, "db signer")
	dbList := signatureList(codec.EFIImageSecurityDatabaseGUID, db.cert)
	blob := authPayload(t, pk, NameDB, codec.EFIImageSecurityDatabaseGUID, 0x27, ts(2), dbList)
	require.NoError(t, e.Apply(s, dbKey(), 0x27, blob))

	dbxList := sha256SigList(db.cert.Raw)
	dbxBlob := authPayload(t, pk, NameDBX, codec.EFIImageSecurityDatabaseGUID, 0x27, ts(3), dbxList)
	require.NoError(t, e.Apply(s, dbxKey(), 0x27, dbxBlob))

	other := newTestKey(t, "other var")
	otherList := signatureList(codec.EFIGlobalVariableGUID, other.cert)
	otherBlob := authPayload(t, db, "SomeOtherAuthVar", codec.EFIGlobalVariableGUID, 0x27, ts(4), otherList)
	err := e.Apply(s, store.Key{Name: "SomeOtherAuthVar", GUID: codec.EFIGlobalVariableGUID}, 0x27, otherBlob)
	require.ErrorIs(t, err, ErrSecurityViolation)
}

func installPK(t *testing.T, e *Engine, s *store.Store, pk testKey) {
	t.Helper()
	sigList := signatureList(codec.EFIGlobalVariableGUID, pk.cert)
	blob := authPayload(t, pk, NamePK, codec.EFIGlobalVariableGUID, 0x27, ts(1), sigList)
	require.NoError(t, e.Apply(s, pkKey(), 0x27, blob))
}

func sha256SigList(der []byte) []byte {
	sum := sha256.Sum256(der)
	w := codec.NewWriter()
	w.GUID(codec.EFICertSHA256GUID)
	sigSize := uint32(16 + 32)
	w.U32(signatureListHeaderSize + sigSize)
	w.U32(0)
	w.U32(sigSize)
	w.GUID(codec.EFIImageSecurityDatabaseGUID)
	w.Raw(sum[:])
	return w.Bytes()
}
