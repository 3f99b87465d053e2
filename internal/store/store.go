// Package store implements the in-memory UEFI variable store: a
// (name, vendor GUID) keyed map with insertion-order enumeration and a
// serialised snapshot/restore round-trip (spec.md §3, §4.2).
package store

import (
	"errors"
	"fmt"

	"github.com/varstored/govarstored/internal/codec"
)

// MaxRecords is the total record count cap, I2.
const MaxRecords = 128

var (
	// ErrNotFound is returned by Get/Remove when the (name, guid) pair
	// is not present.
	ErrNotFound = errors.New("store: variable not found")
	// ErrOutOfResources is returned when a mutation would violate a
	// store-wide or per-variable size limit.
	ErrOutOfResources = errors.New("store: out of resources")
)

// Key identifies a record by name and vendor GUID (I1).
type Key struct {
	Name string
	GUID codec.GUID
}

// Record is one stored variable (spec.md §3).
type Record struct {
	Data      []byte
	Attrs     uint32
	Timestamp codec.Time
	Cert      []byte
}

// Store is the in-memory variable table. It is owned exclusively by the
// single event-loop goroutine (spec.md §5) and deliberately carries no
// internal lock — adding one would misrepresent the ownership model the
// concurrency design describes, and would mask a concurrent-access bug
// as a soft one instead of a data race.
type Store struct {
	records map[Key]*Record
	order   []Key // insertion order, for enumeration (spec.md §4.2)
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[Key]*Record)}
}

// Count returns the number of records currently stored.
func (s *Store) Count() int { return len(s.order) }

// TotalBytes sums len(Data) across all records, used by
// QueryVariableInfo.
func (s *Store) TotalBytes() uint64 {
	var total uint64
	for _, r := range s.records {
		total += uint64(len(r.Data))
	}
	return total
}

// Get returns the record at key, or ErrNotFound.
func (s *Store) Get(key Key) (*Record, error) {
	r, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Set creates or replaces the record at key, enforcing I2 (size limits)
// and the record-count cap I2. It does not enforce attribute legality or
// authentication — those are AuthEngine's job (spec.md §4.3); Store only
// guards the invariants that are purely about shape and capacity.
func (s *Store) Set(key Key, data []byte, attrs uint32, ts codec.Time, cert []byte) error {
	if len(data) > codec.MaxDataBytes {
		return ErrOutOfResources
	}
	if nameBytes, err := codec.EncodeUTF16LE(key.Name); err == nil && len(nameBytes)+2 > codec.MaxNameBytes {
		return ErrOutOfResources
	}

	_, exists := s.records[key]
	if !exists && len(s.order) >= MaxRecords {
		return ErrOutOfResources
	}

	rec := &Record{
		Data:      append([]byte(nil), data...),
		Attrs:     attrs,
		Timestamp: ts,
		Cert:      append([]byte(nil), cert...),
	}
	s.records[key] = rec
	if !exists {
		s.order = append(s.order, key)
	}
	return nil
}

// Append concatenates data to the existing record's payload, enforcing
// the combined length stays within MaxDataBytes (spec.md §4.3 append
// semantics).
func (s *Store) Append(key Key, data []byte, ts codec.Time, cert []byte) error {
	rec, ok := s.records[key]
	if !ok {
		return ErrNotFound
	}
	if len(rec.Data)+len(data) > codec.MaxDataBytes {
		return ErrOutOfResources
	}
	rec.Data = append(rec.Data, data...)
	rec.Timestamp = ts
	if len(cert) > 0 {
		rec.Cert = append([]byte(nil), cert...)
	}
	return nil
}

// Remove deletes the record at key. It is not an error to remove a
// record that does not exist; callers that need NotFound semantics (the
// auth engine's attrs==0 delete path) check Get first.
func (s *Store) Remove(key Key) {
	if _, ok := s.records[key]; !ok {
		return
	}
	delete(s.records, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Next implements the enumeration contract of spec.md §4.2: an empty
// name means "start" (or "restart" mid-pass); otherwise it returns the
// key that follows prev in the Store's iteration (insertion) order, or
// (Key{}, false) at the end of a pass.
func (s *Store) Next(prev Key) (Key, bool) {
	if prev.Name == "" {
		if len(s.order) == 0 {
			return Key{}, false
		}
		return s.order[0], true
	}

	for i, k := range s.order {
		if k == prev {
			if i+1 >= len(s.order) {
				return Key{}, false
			}
			return s.order[i+1], true
		}
	}
	// prev isn't a key we know about (it was removed since the caller
	// last asked, or never existed); the pass has nothing well-defined
	// to resume from.
	return Key{}, false
}

// ForEach calls fn for every record in insertion order. fn must not
// mutate the Store.
func (s *Store) ForEach(fn func(Key, *Record)) {
	for _, k := range s.order {
		fn(k, s.records[k])
	}
}

// String renders a compact debug summary.
func (s *Store) String() string {
	return fmt.Sprintf("store(%d records, %d bytes)", s.Count(), s.TotalBytes())
}
