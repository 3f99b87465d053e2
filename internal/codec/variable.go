package codec

// Variable is the on-wire serialisation of one store record, used by the
// snapshot format (spec.md §6). Layout:
//
//	namesz | name | datasz | data | guid | attrs | timestamp | certsz | cert
//
// followed by 8 bytes of reserved padding (spec.md §4.1).
type Variable struct {
	Name      string
	Data      []byte
	GUID      GUID
	Attrs     uint32
	Timestamp Time
	Cert      []byte
}

const reservedPadding = 8

// WireSize returns the serialised length of v, mirroring
// original_source/src/variable.c's variable_size() (name length prefix +
// name + data length prefix + data + guid + attrs), extended with the
// timestamp and cert fields this format adds over the C original's bare
// variable_t.
func (v *Variable) WireSize() int {
	nameBytes, _ := EncodeUTF16LE(v.Name)
	nameBytes = append(nameBytes, 0, 0)
	return 8 + len(nameBytes) + 8 + len(v.Data) + 16 + 4 + 16 + 8 + len(v.Cert) + reservedPadding
}

// Marshal appends v's wire encoding to w.
func (v *Variable) Marshal(w *Writer) error {
	if err := w.WriteName(v.Name); err != nil {
		return err
	}
	w.LenBytes(v.Data)
	w.GUID(v.GUID)
	w.U32(v.Attrs)
	w.Time(v.Timestamp)
	w.LenBytes(v.Cert)
	w.Raw(make([]byte, reservedPadding))
	return nil
}

// UnmarshalVariable reads one Variable from the cursor.
func UnmarshalVariable(c *Cursor) (*Variable, error) {
	name, err := c.Name()
	if err != nil {
		return nil, err
	}
	data, err := c.Data()
	if err != nil {
		return nil, err
	}
	guid, err := c.ReadGUID()
	if err != nil {
		return nil, err
	}
	attrs, err := c.U32()
	if err != nil {
		return nil, err
	}
	ts, err := c.ReadTime()
	if err != nil {
		return nil, err
	}
	cert, err := c.LenBytes(MaxDataBytes)
	if err != nil {
		return nil, err
	}
	if err := c.Skip(reservedPadding); err != nil {
		return nil, err
	}
	return &Variable{
		Name:      name,
		Data:      data,
		GUID:      guid,
		Attrs:     attrs,
		Timestamp: ts,
		Cert:      cert,
	}, nil
}
