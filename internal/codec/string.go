package codec

import (
	"bytes"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxNameBytes is the per-variable name size cap from spec.md I2 (256
// bytes of UTF-16LE, terminator included).
const MaxNameBytes = 256

// MaxDataBytes is the per-variable data size cap from spec.md I2.
const MaxDataBytes = 32 * 1024

var (
	utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
)

// EncodeUTF16LE converts a Go string to raw UTF-16LE bytes, matching the
// conversion flashbots-dstack-mr-gcp's internal/mr.go uses for kernel
// cmdline measurement (golang.org/x/text/encoding/unicode +
// golang.org/x/text/transform).
func EncodeUTF16LE(s string) ([]byte, error) {
	enc := utf16LE.NewEncoder()
	r := transform.NewReader(bytes.NewReader([]byte(s)), enc)
	return io.ReadAll(r)
}

// DecodeUTF16LE converts raw UTF-16LE bytes back to a Go string.
func DecodeUTF16LE(b []byte) (string, error) {
	dec := utf16LE.NewDecoder()
	r := transform.NewReader(bytes.NewReader(b), dec)
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Name reads a codec string field (u64 length, raw UTF-16LE bytes,
// terminator included when present) bounded by MaxNameBytes.
func (c *Cursor) Name() (string, error) {
	raw, err := c.LenBytes(MaxNameBytes)
	if err != nil {
		return "", err
	}
	// Drop a single trailing NUL code unit if present; callers compare
	// names without the terminator per spec.md §4.3 step 3.
	if len(raw) >= 2 && raw[len(raw)-2] == 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-2]
	}
	return DecodeUTF16LE(raw)
}

// WriteName appends a codec string field for name, including a NUL
// terminator code unit.
func (w *Writer) WriteName(name string) error {
	raw, err := EncodeUTF16LE(name)
	if err != nil {
		return err
	}
	raw = append(raw, 0, 0)
	w.LenBytes(raw)
	return nil
}

// Data reads a codec string field bounded by MaxDataBytes, used for
// variable payloads (no implied text encoding).
func (c *Cursor) Data() ([]byte, error) {
	return c.LenBytes(MaxDataBytes)
}
