package iopump

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/iopump/localfile"
	"github.com/varstored/govarstored/internal/protocol"
	"github.com/varstored/govarstored/internal/store"
)

func TestPumpDispatchesOneRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.mem")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(PagesPerRequest*4096))
	require.NoError(t, f.Close())

	src, err := localfile.Open(path)
	require.NoError(t, err)
	defer src.Close()

	s := store.New()
	require.NoError(t, s.Set(store.Key{Name: "Lang", GUID: codec.EFIGlobalVariableGUID}, []byte("en"), 0x07, codec.Time{}, nil))

	p := New(src, src, s, auth.NewEngine())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = p.Run(ctx)
	}()
	defer cancel()

	mem, err := src.Map(0, PagesPerRequest)
	require.NoError(t, err)
	w := codec.NewWriter()
	w.U32(protocol.ProtocolVersion)
	w.U32(protocol.CmdGetVariable)
	w.WriteName("Lang")
	w.GUID(codec.EFIGlobalVariableGUID)
	w.U32(0)
	w.U64(64)
	copy(mem, w.Bytes())
	require.NoError(t, src.Unmap(mem))

	require.NoError(t, src.Notify(0))

	require.Eventually(t, func() bool {
		mem, err := src.Map(0, PagesPerRequest)
		if err != nil {
			return false
		}
		defer src.Unmap(mem)
		c := codec.NewCursor(mem)
		status, err := c.U32()
		return err == nil && status == uint32(protocol.Success)
	}, 2*time.Second, 10*time.Millisecond)
}
