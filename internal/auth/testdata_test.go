package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/fullsailor/pkcs7"
	"github.com/stretchr/testify/require"

	"github.com/varstored/govarstored/internal/codec"
)

// testKey is a self-signed test identity used to stand in for a
// PK/KEK/db signer across the package's tests.
type testKey struct {
	cert *x509.Certificate
	priv *ecdsa.PrivateKey
}

func newTestKey(t *testing.T, cn string) testKey {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).AddDate(50, 0, 0),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return testKey{cert: cert, priv: priv}
}

// signDigest produces a bare (unwrapped) PKCS#7 SignedData over digest,
// carrying signer's certificate.
func signDigest(t *testing.T, signer testKey, digest []byte) []byte {
	t.Helper()
	sd, err := pkcs7.NewSignedData(digest)
	require.NoError(t, err)
	require.NoError(t, sd.AddSigner(signer.cert, signer.priv, pkcs7.SignerInfoConfig{}))
	der, err := sd.Finish()
	require.NoError(t, err)
	return der
}

// signatureList wraps one X.509 certificate in a minimal
// EFI_SIGNATURE_LIST (single entry, no optional header).
func signatureList(owner codec.GUID, cert *x509.Certificate) []byte {
	w := codec.NewWriter()
	w.GUID(codec.EFICertX509GUID)
	sigSize := uint32(16 + len(cert.Raw))
	w.U32(signatureListHeaderSize + sigSize)
	w.U32(0) // SignatureHeaderSize
	w.U32(sigSize)
	w.GUID(owner)
	w.Raw(cert.Raw)
	return w.Bytes()
}

// authPayload assembles a full EFI_VARIABLE_AUTHENTICATION_2 +
// trailing payload blob, signed by signer over
// name||guid||attrs||ts||payload.
func authPayload(t *testing.T, signer testKey, name string, guid codec.GUID, attrs uint32, ts codec.Time, payload []byte) []byte {
	t.Helper()
	digest, err := SignedDigest(name, guid, attrs, ts, payload)
	require.NoError(t, err)
	signedData := signDigest(t, signer, digest)

	w := codec.NewWriter()
	w.Time(ts)
	w.U32(uint32(authHeaderSize + len(signedData)))
	w.U16(0) // wRevision
	w.U16(winCertTypeEFIGUID)
	w.GUID(codec.EFICertTypePKCS7GUID)
	w.Raw(signedData)
	w.Raw(payload)
	return w.Bytes()
}
