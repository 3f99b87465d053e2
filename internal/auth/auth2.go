package auth

import (
	"github.com/varstored/govarstored/internal/codec"
)

// winCertTypeEFIGUID is WIN_CERT_TYPE_EFI_GUID, the only certificate
// type this engine accepts (spec.md §4.3 step 1).
const winCertTypeEFIGUID = 0x0EF1

// authHeaderSize is the fixed portion of WIN_CERTIFICATE_UEFI_GUID
// preceding CertData: dwLength(4) + wRevision(2) + wCertificateType(2)
// + CertType GUID(16).
const authHeaderSize = 24

// Authentication2 is a parsed EFI_VARIABLE_AUTHENTICATION_2 header
// (spec.md §4.3 step 1), split from the caller's variable payload that
// follows it on the wire.
type Authentication2 struct {
	Timestamp codec.Time
	CertData  []byte // raw PKCS#7 SignedData, possibly missing its ContentInfo wrapper
	Payload   []byte // the variable's actual data, after the auth header
}

// ParseAuthentication2 splits raw (the SetVariable "data" field for a
// TIME_BASED_AUTH variable) into its authentication header and trailing
// payload.
func ParseAuthentication2(raw []byte) (*Authentication2, error) {
	c := codec.NewCursor(raw)

	ts, err := c.ReadTime()
	if err != nil {
		return nil, ErrInvalidParameter
	}
	if !ts.Strict() {
		return nil, ErrInvalidParameter
	}

	dwLength, err := c.U32()
	if err != nil {
		return nil, ErrInvalidParameter
	}
	wRevision, err := c.U16()
	if err != nil {
		return nil, ErrInvalidParameter
	}
	_ = wRevision
	wCertificateType, err := c.U16()
	if err != nil {
		return nil, ErrInvalidParameter
	}
	if wCertificateType != winCertTypeEFIGUID {
		return nil, ErrInvalidParameter
	}
	certType, err := c.ReadGUID()
	if err != nil {
		return nil, ErrInvalidParameter
	}
	if certType != codec.EFICertTypePKCS7GUID {
		return nil, ErrInvalidParameter
	}
	if dwLength < authHeaderSize {
		return nil, ErrInvalidParameter
	}
	certData, err := c.Bytes(int(dwLength) - authHeaderSize)
	if err != nil {
		return nil, ErrInvalidParameter
	}
	payload := c.Remaining()

	return &Authentication2{
		Timestamp: ts,
		CertData:  certData,
		Payload:   append([]byte(nil), payload...),
	}, nil
}

// SignedDigest builds the bytes that must be covered by the PKCS#7
// signature: name (without terminator) || vendor_guid || attrs ||
// timestamp || payload (spec.md §4.3 step 3).
func SignedDigest(name string, guid codec.GUID, attrs uint32, ts codec.Time, payload []byte) ([]byte, error) {
	nameBytes, err := codec.EncodeUTF16LE(name)
	if err != nil {
		return nil, err
	}
	w := codec.NewWriter()
	w.Raw(nameBytes)
	w.GUID(guid)
	w.U32(attrs)
	w.Time(ts)
	w.Raw(payload)
	return w.Bytes(), nil
}
