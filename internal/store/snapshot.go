package store

import (
	"fmt"

	"github.com/varstored/govarstored/internal/codec"
)

// SnapshotMagic is the 4-byte magic at the head of a serialised store
// (spec.md §6).
const SnapshotMagic = "VARS"

// SnapshotVersion is the on-wire snapshot format version.
const SnapshotVersion = 1

// Snapshot serialises the store as
// u32 magic "VARS" | u32 version | u64 count | variable[count]
// (spec.md §6).
func (s *Store) Snapshot() ([]byte, error) {
	w := codec.NewWriter()
	w.Raw([]byte(SnapshotMagic))
	w.U32(SnapshotVersion)
	w.U64(uint64(s.Count()))

	var marshalErr error
	s.ForEach(func(k Key, r *Record) {
		if marshalErr != nil {
			return
		}
		v := &codec.Variable{
			Name:      k.Name,
			Data:      r.Data,
			GUID:      k.GUID,
			Attrs:     r.Attrs,
			Timestamp: r.Timestamp,
			Cert:      r.Cert,
		}
		marshalErr = v.Marshal(w)
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	return w.Bytes(), nil
}

// Restore builds a new Store from the variables serialised in blob,
// validating the magic and version header. P3 requires
// restore(snapshot(S)) == S as a multiset of records; Restore rebuilds
// the map and insertion order directly from the blob to satisfy that.
func Restore(blob []byte) (*Store, error) {
	c := codec.NewCursor(blob)

	magic, err := c.Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("store: reading magic: %w", err)
	}
	if string(magic) != SnapshotMagic {
		return nil, fmt.Errorf("store: bad magic %q", magic)
	}

	version, err := c.U32()
	if err != nil {
		return nil, fmt.Errorf("store: reading version: %w", err)
	}
	if version != SnapshotVersion {
		return nil, fmt.Errorf("store: unsupported snapshot version %d", version)
	}

	count, err := c.U64()
	if err != nil {
		return nil, fmt.Errorf("store: reading count: %w", err)
	}
	if count > MaxRecords {
		return nil, fmt.Errorf("store: snapshot claims %d records, max is %d", count, MaxRecords)
	}

	s := New()
	for i := uint64(0); i < count; i++ {
		v, err := codec.UnmarshalVariable(c)
		if err != nil {
			return nil, fmt.Errorf("store: reading variable %d: %w", i, err)
		}
		key := Key{Name: v.Name, GUID: v.GUID}
		if err := s.Set(key, v.Data, v.Attrs, v.Timestamp, v.Cert); err != nil {
			return nil, fmt.Errorf("store: restoring variable %d (%s): %w", i, v.Name, err)
		}
	}
	return s, nil
}
