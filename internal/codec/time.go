package codec

import "fmt"

// Time is the 16-byte EFI_TIME structure. Only meaningful when a
// variable's TIME_BASED_AUTH attribute bit is set (spec.md §3); zero
// otherwise.
type Time struct {
	Year       uint16
	Month      uint8
	Day        uint8
	Hour       uint8
	Minute     uint8
	Second     uint8
	Pad1       uint8
	Nanosecond uint32
	TimeZone   int16
	Daylight   uint8
	Pad2       uint8
}

// IsZero reports whether t is the all-zero sentinel time.
func (t Time) IsZero() bool { return t == Time{} }

// Strict reports whether the fields the firmware must never populate
// (spec.md §4.3 step 2: "non-zero pad1/nanosecond/timezone/daylight/pad2
// are rejected") are in fact all zero.
func (t Time) Strict() bool {
	return t.Pad1 == 0 && t.Nanosecond == 0 && t.TimeZone == 0 &&
		t.Daylight == 0 && t.Pad2 == 0
}

// After reports whether t is strictly later than other, compared
// lexicographically over year..second — EFI_TIME has no canonical
// integer form, so this mirrors how the UEFI spec and the original
// firmware compare two EFI_TIME values field by field.
func (t Time) After(other Time) bool {
	if t.Year != other.Year {
		return t.Year > other.Year
	}
	if t.Month != other.Month {
		return t.Month > other.Month
	}
	if t.Day != other.Day {
		return t.Day > other.Day
	}
	if t.Hour != other.Hour {
		return t.Hour > other.Hour
	}
	if t.Minute != other.Minute {
		return t.Minute > other.Minute
	}
	return t.Second > other.Second
}

// AtLeast reports whether t is equal to or later than other.
func (t Time) AtLeast(other Time) bool {
	return t == other || t.After(other)
}

func (t Time) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// ReadTime reads the 16-byte EFI_TIME structure.
func (c *Cursor) ReadTime() (Time, error) {
	b, err := c.Bytes(16)
	if err != nil {
		return Time{}, err
	}
	var t Time
	t.Year = uint16(b[0]) | uint16(b[1])<<8
	t.Month = b[2]
	t.Day = b[3]
	t.Hour = b[4]
	t.Minute = b[5]
	t.Second = b[6]
	t.Pad1 = b[7]
	t.Nanosecond = uint32(b[8]) | uint32(b[9])<<8 | uint32(b[10])<<16 | uint32(b[11])<<24
	t.TimeZone = int16(uint16(b[12]) | uint16(b[13])<<8)
	t.Daylight = b[14]
	t.Pad2 = b[15]
	return t, nil
}

// Time appends the 16-byte EFI_TIME structure.
func (w *Writer) Time(t Time) {
	w.U16(t.Year)
	w.U8(t.Month)
	w.U8(t.Day)
	w.U8(t.Hour)
	w.U8(t.Minute)
	w.U8(t.Second)
	w.U8(t.Pad1)
	w.U32(t.Nanosecond)
	w.U16(uint16(t.TimeZone))
	w.U8(t.Daylight)
	w.U8(t.Pad2)
}
