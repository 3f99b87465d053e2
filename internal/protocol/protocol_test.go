package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/store"
)

func newPage() []byte { return make([]byte, PageSize) }

func readStatus(t *testing.T, page []byte) Status {
	t.Helper()
	c := codec.NewCursor(page)
	v, err := c.U32()
	require.NoError(t, err)
	return Status(v)
}

func TestDispatchVersionMismatch(t *testing.T) {
	page := newPage()
	w := codec.NewWriter()
	w.U32(99) // bad version
	w.U32(CmdGetVariable)
	copy(page, w.Bytes())

	Dispatch(page, store.New(), auth.NewEngine())
	require.Equal(t, Unsupported, readStatus(t, page))
}

func TestDispatchUnknownCommand(t *testing.T) {
	page := newPage()
	w := codec.NewWriter()
	w.U32(ProtocolVersion)
	w.U32(999)
	copy(page, w.Bytes())

	Dispatch(page, store.New(), auth.NewEngine())
	require.Equal(t, Unsupported, readStatus(t, page))
}

func TestDispatchTruncatedRequestNeverPanics(t *testing.T) {
	// P5: pages whose leading bytes are zero or 0xFF garbage never make
	// Dispatch panic.
	for n := 0; n < 12; n++ {
		page := newPage()
		for i := 0; i < n && i < len(page); i++ {
			page[i] = byte(0xFF)
		}
		require.NotPanics(t, func() {
			Dispatch(page, store.New(), auth.NewEngine())
		})
	}
}

// TestDispatchNeverWritesOutsidePage is P5's bounds half: wrap the real
// page in a larger sentinel-filled buffer and confirm Dispatch never
// touches the guard region.
func TestDispatchNeverWritesOutsidePage(t *testing.T) {
	guard := byte(0xAA)
	buf := make([]byte, PageSize+512)
	for i := range buf {
		buf[i] = guard
	}
	page := buf[256 : 256+PageSize]

	w := codec.NewWriter()
	w.U32(ProtocolVersion)
	w.U32(CmdQueryVariableInfo)
	w.U32(0)
	copy(page, w.Bytes())

	Dispatch(page, store.New(), auth.NewEngine())

	for i := 0; i < 256; i++ {
		require.Equal(t, guard, buf[i], "byte %d before page", i)
	}
	for i := 256 + PageSize; i < len(buf); i++ {
		require.Equal(t, guard, buf[i], "byte %d after page", i)
	}
}

func buildGetVariableRequest(name string, guid codec.GUID, bufferSize uint64) []byte {
	page := newPage()
	w := codec.NewWriter()
	w.U32(ProtocolVersion)
	w.U32(CmdGetVariable)
	w.WriteName(name)
	w.GUID(guid)
	w.U32(0) // attrs_hint
	w.U64(bufferSize)
	copy(page, w.Bytes())
	return page
}

// TestGetVariableBufferTooSmall is spec.md §8 scenario 5.
func TestGetVariableBufferTooSmall(t *testing.T) {
	s := store.New()
	key := store.Key{Name: "Lang", GUID: codec.EFIGlobalVariableGUID}
	require.NoError(t, s.Set(key, []byte("engl"), 0x07, codec.Time{}, nil))

	page := buildGetVariableRequest("Lang", codec.EFIGlobalVariableGUID, 1)
	Dispatch(page, s, auth.NewEngine())

	c := codec.NewCursor(page)
	status, err := c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(BufferTooSmall), status)
	_, err = c.U32() // attrs
	require.NoError(t, err)
	dataSize, err := c.U64()
	require.NoError(t, err)
	require.Equal(t, uint64(4), dataSize)
}

func TestGetVariableSuccess(t *testing.T) {
	s := store.New()
	key := store.Key{Name: "Lang", GUID: codec.EFIGlobalVariableGUID}
	require.NoError(t, s.Set(key, []byte("engl"), 0x07, codec.Time{}, nil))

	page := buildGetVariableRequest("Lang", codec.EFIGlobalVariableGUID, 64)
	Dispatch(page, s, auth.NewEngine())

	c := codec.NewCursor(page)
	status, err := c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(Success), status)
	attrs, err := c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x07), attrs)
	dataSize, err := c.U64()
	require.NoError(t, err)
	require.Equal(t, uint64(4), dataSize)
	data, err := c.Bytes(int(dataSize))
	require.NoError(t, err)
	require.Equal(t, []byte("engl"), data)
}

func buildNextRequest(prevName string, prevGUID codec.GUID, bufferSize uint64) []byte {
	page := newPage()
	w := codec.NewWriter()
	w.U32(ProtocolVersion)
	w.U32(CmdGetNextVariableName)
	w.U64(bufferSize)
	w.WriteName(prevName)
	w.GUID(prevGUID)
	copy(page, w.Bytes())
	return page
}

// TestGetNextVariableNameEnumeration is spec.md §8 scenario 4.
func TestGetNextVariableNameEnumeration(t *testing.T) {
	s := store.New()
	g := codec.EFIGlobalVariableGUID
	require.NoError(t, s.Set(store.Key{Name: "Boot0001", GUID: g}, []byte{1}, 0x07, codec.Time{}, nil))
	require.NoError(t, s.Set(store.Key{Name: "Lang", GUID: g}, []byte("en"), 0x07, codec.Time{}, nil))

	page := buildNextRequest("", codec.GUID{}, 256)
	Dispatch(page, s, auth.NewEngine())
	c := codec.NewCursor(page)
	status, err := c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(Success), status)
	name, err := c.Name()
	require.NoError(t, err)
	require.Equal(t, "Boot0001", name)

	page = buildNextRequest("Boot0001", g, 256)
	Dispatch(page, s, auth.NewEngine())
	c = codec.NewCursor(page)
	status, err = c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(Success), status)
	name, err = c.Name()
	require.NoError(t, err)
	require.Equal(t, "Lang", name)

	page = buildNextRequest("Lang", g, 256)
	Dispatch(page, s, auth.NewEngine())
	c = codec.NewCursor(page)
	status, err = c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(NotFound), status)
}

func TestQueryVariableInfo(t *testing.T) {
	s := store.New()
	require.NoError(t, s.Set(store.Key{Name: "Lang", GUID: codec.EFIGlobalVariableGUID}, []byte("en"), 0x07, codec.Time{}, nil))

	page := newPage()
	w := codec.NewWriter()
	w.U32(ProtocolVersion)
	w.U32(CmdQueryVariableInfo)
	w.U32(0x07)
	copy(page, w.Bytes())

	Dispatch(page, s, auth.NewEngine())

	c := codec.NewCursor(page)
	status, err := c.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(Success), status)
	maxStorage, err := c.U64()
	require.NoError(t, err)
	require.Equal(t, MaxStorageBytes, maxStorage)
	remaining, err := c.U64()
	require.NoError(t, err)
	require.Equal(t, MaxStorageBytes-2, remaining)
}
