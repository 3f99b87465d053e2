package codec

import "encoding/base64"

// Base64Encode encodes b with the standard alphabet and '=' padding
// (spec.md §4.1).
func Base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64Decode decodes s, rejecting any character outside the standard
// alphabet or whitespace. encoding/base64's StdEncoding already rejects
// non-alphabet bytes; we additionally strip ASCII whitespace before
// decoding so line-wrapped blobs from the remote DB still round-trip.
func Base64Decode(s string) ([]byte, error) {
	filtered := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			filtered = append(filtered, c)
		}
	}
	return base64.StdEncoding.DecodeString(string(filtered))
}
