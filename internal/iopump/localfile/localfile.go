// Package localfile backs iopump.EventSource and iopump.GuestMemory
// with a regular file and an os.Pipe, so the pump and dispatcher can be
// exercised end-to-end without a real Xen host — the same role
// original_source's handler_loop fills against a real ioreq fd, just
// polling a pipe instead of an event channel.
package localfile

import (
	"context"
	"encoding/binary"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// pollTimeoutMillis bounds each poll() call so Wait can notice context
// cancellation promptly without busy-looping.
const pollTimeoutMillis = 200

// Source is a file-backed EventSource + GuestMemory pair. Notify
// injects a guest frame number as a real caller (a test, or a stand-in
// bridge to an actual Xen event channel) would.
type Source struct {
	file    *os.File
	notifyR *os.File
	notifyW *os.File
}

// Open opens path read/write and returns a Source ready for Map/Unmap
// calls against it, with a fresh internal notification pipe for Wait.
func Open(path string) (*Source, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	r, w, err := os.Pipe()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Source{file: f, notifyR: r, notifyW: w}, nil
}

// Close releases the backing file and pipe.
func (s *Source) Close() error {
	s.notifyW.Close()
	s.notifyR.Close()
	return s.file.Close()
}

// Notify injects gfn as the next event Wait will return.
func (s *Source) Notify(gfn uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], gfn)
	_, err := s.notifyW.Write(b[:])
	return err
}

// Wait implements iopump.EventSource by polling the notification pipe,
// mirroring original_source's handler_loop poll-on-one-fd pattern.
func (s *Source) Wait(ctx context.Context) (uint64, error) {
	fds := []unix.PollFd{{Fd: int32(s.notifyR.Fd()), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := unix.Poll(fds, pollTimeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, err
		}
		if n == 0 {
			continue
		}
		var b [8]byte
		if _, err := io.ReadFull(s.notifyR, b[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b[:]), nil
	}
}

// Map implements iopump.GuestMemory by mmap'ing pages*4096 bytes
// starting at gfn*4096 in the backing file.
func (s *Source) Map(gfn uint64, pages int) ([]byte, error) {
	size := pages * 4096
	offset := int64(gfn) * 4096
	return unix.Mmap(int(s.file.Fd()), offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// Unmap implements iopump.GuestMemory.
func (s *Source) Unmap(mem []byte) error {
	return unix.Munmap(mem)
}
