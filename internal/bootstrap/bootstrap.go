package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/codec"
	"github.com/varstored/govarstored/internal/remoteblob"
	"github.com/varstored/govarstored/internal/store"
)

// policyAttrs is the attribute set I5 requires of PK/KEK/db/dbx:
// NV|BS|RT|TIME_BASED_AUTH.
const policyAttrs = auth.NonVolatile | auth.BootserviceAccess | auth.RuntimeAccess | auth.TimeBasedAuthWriteAccess

// wellKnown maps an auth file's base name (case-sensitive, without the
// .auth suffix) to the variable it installs, per spec.md §6's
// "PK.auth, KEK.auth, db.auth, dbx.auth" convention.
var wellKnown = map[string]store.Key{
	auth.NamePK:  {Name: auth.NamePK, GUID: codec.EFIGlobalVariableGUID},
	auth.NameKEK: {Name: auth.NameKEK, GUID: codec.EFIGlobalVariableGUID},
	auth.NameDB:  {Name: auth.NameDB, GUID: codec.EFIImageSecurityDatabaseGUID},
	auth.NameDBX: {Name: auth.NameDBX, GUID: codec.EFIImageSecurityDatabaseGUID},
}

// Bootstrap brings a Store to its initial state: either restored from
// the remote blob or, when that leaves it empty, built from the
// configured *.auth files (first boot), exactly as original_source/src/main.c's init_variables
// does before entering the handler loop.
type Bootstrap struct {
	Config Config
	Engine *auth.Engine
	Remote *remoteblob.RemoteBlob
}

// New returns a Bootstrap ready to Run.
func New(cfg Config, engine *auth.Engine, remote *remoteblob.RemoteBlob) *Bootstrap {
	return &Bootstrap{Config: cfg, Engine: engine, Remote: remote}
}

// Run produces the Store the event loop should start servicing from:
// it always tries the durable snapshot first, falls back to an empty
// store on a read/parse failure only when Resume is set (fatal
// otherwise), and installs the configured *.auth files only when the
// resulting store is still empty (spec.md §6 "Initial PK/KEK/db load",
// §7 propagation policy).
func (b *Bootstrap) Run(ctx context.Context) (*store.Store, error) {
	if err := b.Config.Validate(); err != nil {
		return nil, err
	}

	s := store.New()
	if b.Remote != nil {
		loaded, err := b.Remote.Load(ctx)
		switch {
		case err == nil:
			s = loaded
		case b.Config.Resume:
			log.WithError(err).Warn("bootstrap: durable snapshot unreadable, starting empty (--resume)")
		default:
			return nil, fmt.Errorf("bootstrap: loading durable snapshot: %w", err)
		}
	}

	if s.Count() == 0 {
		for _, path := range b.Config.AuthFiles {
			if err := b.installAuthFile(s, path); err != nil {
				return nil, fmt.Errorf("bootstrap: installing %s: %w", path, err)
			}
		}
	}
	return s, nil
}

// installAuthFile loads one *.auth file and applies it through the same
// Engine.Apply path a live SetVariable would use. A PK install while the
// store has no PK yet rides the Engine's own setup-mode bypass — the
// file must still be well-formed, just unsigned-against-nothing.
func (b *Bootstrap) installAuthFile(s *store.Store, path string) error {
	base := strings.TrimSuffix(filepath.Base(path), ".auth")
	key, ok := wellKnown[base]
	if !ok {
		return errUnknownAuthFile
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := b.Engine.Apply(s, key, policyAttrs, raw); err != nil {
		return err
	}
	log.WithField("variable", base).Info("bootstrap: installed auth file")
	return nil
}
