package protocol

import (
	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/store"
)

// PageSize is the total guest page window Dispatch is handed: 16
// contiguous 4 KiB pages (spec.md §6).
const PageSize = 16 * 4096

// ProtocolVersion is the only request version Dispatch accepts.
const ProtocolVersion = 1

// Command identifiers (spec.md §4.4).
const (
	CmdGetVariable         uint32 = 1
	CmdSetVariable         uint32 = 2
	CmdGetNextVariableName uint32 = 3
	CmdQueryVariableInfo   uint32 = 4
)

// MaxStorageBytes is the nominal total-storage figure reported by
// QueryVariableInfo: the full record-count cap times the per-variable
// data cap. Spec.md doesn't mandate a specific number, only that the
// three fields be internally consistent.
const MaxStorageBytes = uint64(store.MaxRecords) * uint64(codec.MaxDataBytes)

// Dispatch parses one request out of page, executes it against s (and
// e for SetVariable's authentication path), and writes the response
// back into page starting at offset 0. It never panics: any parse
// error or handler panic on hostile input is converted to
// InvalidParameter (spec.md §4.4's dispatcher contract, P5).
func Dispatch(page []byte, s *store.Store, e *auth.Engine) {
	defer func() {
		if recover() != nil {
			writeStatusOnly(page, InvalidParameter)
		}
	}()

	c := codec.NewCursor(page)
	version, err := c.U32()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}
	if version != ProtocolVersion {
		writeStatusOnly(page, Unsupported)
		return
	}
	cmd, err := c.U32()
	if err != nil {
		writeStatusOnly(page, InvalidParameter)
		return
	}

	switch cmd {
	case CmdGetVariable:
		handleGetVariable(c, page, s)
	case CmdSetVariable:
		handleSetVariable(c, page, s, e)
	case CmdGetNextVariableName:
		handleGetNextVariableName(c, page, s)
	case CmdQueryVariableInfo:
		handleQueryVariableInfo(c, page, s)
	default:
		writeStatusOnly(page, Unsupported)
	}
}

// writeStatusOnly writes just the status word, leaving the rest of the
// page untouched — matching original_source's request handler, which
// never clears the page beyond what it writes (spec.md §4.4 note).
func writeStatusOnly(page []byte, status Status) {
	w := codec.NewWriter()
	w.U32(uint32(status))
	writeResponse(page, w)
}

// writeResponse copies w's bytes into page[:len(w.Bytes())]. Every
// handler bounds its own response to data already capped well under
// PageSize (32 KiB variable data into a 64 KiB page), so this never
// needs to truncate.
func writeResponse(page []byte, w *codec.Writer) {
	copy(page, w.Bytes())
}
