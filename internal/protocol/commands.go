package protocol

import (
	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/store"
)

// handleGetVariable implements command 1 (spec.md §4.4 table).
func handleGetVariable(c *codec.Cursor, page []byte, s *store.Store) {
	name, err := c.Name()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}
	guid, err := c.ReadGUID()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}
	if _, err := c.U32(); err != nil { // attrs_hint, unused by this backend
		writeStatusOnly(page, InvalidParameter)
		return
	}
	bufferSize, err := c.U64()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}

	rec, gerr := s.Get(store.Key{Name: name, GUID: guid})
	w := codec.NewWriter()
	if gerr != nil {
		w.U32(uint32(classify(gerr)))
		writeResponse(page, w)
		return
	}

	dataSize := uint64(len(rec.Data))
	if dataSize > bufferSize {
		w.U32(uint32(BufferTooSmall))
		w.U32(rec.Attrs)
		w.U64(dataSize)
		writeResponse(page, w)
		return
	}

	w.U32(uint32(Success))
	w.U32(rec.Attrs)
	w.U64(dataSize)
	w.Raw(rec.Data)
	writeResponse(page, w)
}

// handleSetVariable implements command 2.
func handleSetVariable(c *codec.Cursor, page []byte, s *store.Store, e *auth.Engine) {
	name, err := c.Name()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}
	guid, err := c.ReadGUID()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}
	data, err := c.Data()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}
	attrs, err := c.U32()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}

	applyErr := e.Apply(s, store.Key{Name: name, GUID: guid}, attrs, data)
	w := codec.NewWriter()
	w.U32(uint32(classify(applyErr)))
	writeResponse(page, w)
}

// handleGetNextVariableName implements command 3.
func handleGetNextVariableName(c *codec.Cursor, page []byte, s *store.Store) {
	bufferSize, err := c.U64()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}
	prevName, err := c.Name()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}
	prevGUID, err := c.ReadGUID()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}

	next, ok := s.Next(store.Key{Name: prevName, GUID: prevGUID})
	w := codec.NewWriter()
	if !ok {
		w.U32(uint32(NotFound))
		writeResponse(page, w)
		return
	}

	nameBytes, err := codec.EncodeUTF16LE(next.Name)
	if err != nil {
		w.U32(uint32(InvalidParameter))
		writeResponse(page, w)
		return
	}
	required := uint64(len(nameBytes) + 2) // + NUL terminator
	if required > bufferSize {
		w.U32(uint32(BufferTooSmall))
		w.U64(required)
		writeResponse(page, w)
		return
	}

	w.U32(uint32(Success))
	if err := w.WriteName(next.Name); err != nil {
		// next.Name came out of the store, which only ever accepted
		// names that already encoded cleanly; unreachable in practice.
		w2 := codec.NewWriter()
		w2.U32(uint32(InvalidParameter))
		writeResponse(page, w2)
		return
	}
	w.GUID(next.GUID)
	writeResponse(page, w)
}

// handleQueryVariableInfo implements command 4. The attrs filter
// doesn't split storage into per-attribute pools here (spec.md is
// silent on that distinction); all three figures are reported against
// the single shared store.
func handleQueryVariableInfo(c *codec.Cursor, page []byte, s *store.Store) {
	if _, err := c.U32(); err != nil { // attrs filter, consumed but not used
		writeStatusOnly(page, InvalidParameter)
		return
	}

	used := s.TotalBytes()
	remaining := uint64(0)
	if MaxStorageBytes > used {
		remaining = MaxStorageBytes - used
	}

	w := codec.NewWriter()
	w.U32(uint32(Success))
	w.U64(MaxStorageBytes)
	w.U64(remaining)
	w.U64(uint64(codec.MaxDataBytes))
	writeResponse(page, w)
}
