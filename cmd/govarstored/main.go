// Command govarstored is the user-space backend for the XenVariable
// protocol: it owns the in-memory UEFI variable store, verifies
// authenticated writes, and keeps a durable snapshot in the configured
// remote blob backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/bootstrap"
	"github.com/varstored/govarstored/internal/iopump"
	"github.com/varstored/govarstored/internal/iopump/localfile"
	"github.com/varstored/govarstored/internal/remoteblob"
)

// authFileDir is where *.auth files are expected to live, matching
// original_source/src/main.c's DEFINE_AUTH_FILE table (there a fixed
// per-file path under /usr/share/varstored; here a directory is
// globbed so KEK/db/dbx installs work the same way PK's always did).
const authFileDir = "/usr/share/varstored"

// argList implements flag.Value for the repeatable --arg k:v flag,
// mirroring original_source's xapi_parse_arg.
type argList map[string]string

func (a argList) String() string {
	var parts []string
	for k, v := range a {
		parts = append(parts, k+":"+v)
	}
	return strings.Join(parts, ",")
}

func (a argList) Set(value string) error {
	k, v, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("--arg must be key:value, got %q", value)
	}
	a[k] = v
	return nil
}

func main() {
	var (
		domain        int
		resume        bool
		depriv        bool
		uid           int
		gid           int
		chroot        string
		pidfile       string
		backend       string
		nonpersistent bool
		debug         bool
	)
	args := argList{}

	flag.IntVar(&domain, "domain", 0, "guest domain id")
	flag.BoolVar(&resume, "resume", false, "tolerate an unreadable durable snapshot by starting empty")
	flag.BoolVar(&depriv, "depriv", false, "drop privileges after setup")
	flag.IntVar(&uid, "uid", 0, "uid to switch to with --depriv")
	flag.IntVar(&gid, "gid", 0, "gid to switch to with --depriv")
	flag.StringVar(&chroot, "chroot", "", "directory to chroot into with --depriv")
	flag.StringVar(&pidfile, "pidfile", "", "path to write the process pid to")
	flag.StringVar(&backend, "backend", "xapidb", "durable storage backend (only xapidb is supported)")
	flag.BoolVar(&nonpersistent, "nonpersistent", false, "unsupported; always rejected")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Var(args, "arg", "backend-specific key:value config, repeatable")
	flag.Parse()

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := run(domain, resume, depriv, uid, gid, chroot, pidfile, backend, nonpersistent, args); err != nil {
		log.WithError(err).Error("govarstored: fatal")
		os.Exit(1)
	}
}

func run(domain int, resume, depriv bool, uid, gid int, chroot, pidfile, backend string, nonpersistent bool, args argList) error {
	if backend != "xapidb" {
		return fmt.Errorf("unsupported backend %q", backend)
	}

	cfg := bootstrap.Config{
		Domain:        domain,
		Resume:        resume,
		Nonpersistent: nonpersistent,
		Deprivilege:   depriv,
		UID:           uid,
		GID:           gid,
		Chroot:        chroot,
		PidFile:       pidfile,
		AuthFiles:     globAuthFiles(authFileDir),
		RemoteBlob: remoteblob.Config{
			Endpoint:     args["endpoint"],
			SessionToken: args["session_token"],
			MethodName:   valueOr(args["method"], "store_blob"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	session := remoteblob.NewHTTPSession(cfg.RemoteBlob.Endpoint, cfg.RemoteBlob.SessionToken)
	remote := remoteblob.New(session, cfg.RemoteBlob.MethodName)
	engine := auth.NewEngineWithLevel(cfg.EnforcementLevel)

	b := bootstrap.New(cfg, engine, remote)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := b.Run(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if pidfile != "" {
		if err := os.WriteFile(pidfile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
			return fmt.Errorf("writing pidfile: %w", err)
		}
	}

	if depriv {
		if err := bootstrap.DropPrivileges(chroot, uid, gid); err != nil {
			return fmt.Errorf("dropping privileges: %w", err)
		}
	}

	source, err := xenEventSource(domain)
	if err != nil {
		log.WithError(err).Warn("govarstored: no hypervisor event source available, saving snapshot and exiting")
		return remote.Save(context.Background(), s)
	}
	defer source.Close()

	pump := iopump.New(source, source, s, engine)
	runErr := pump.Run(ctx)

	if saveErr := remote.Save(context.Background(), s); saveErr != nil {
		log.WithError(saveErr).Error("govarstored: snapshot save failed on shutdown")
	}
	return runErr
}

// xenEventSource would register an ioreq server for domain and return
// its event channel / foreign-memory mapper. Host hypervisor glue is
// out of this module's scope; localfile.Open stands in against a
// regular file so the rest of the pipeline is exercised end to end
// without a real Xen host.
func xenEventSource(domain int) (*localfile.Source, error) {
	path := os.Getenv("GOVARSTORED_IOPUMP_FILE")
	if path == "" {
		return nil, errors.New("xen ioreq integration not implemented in this build")
	}
	return localfile.Open(path)
}

func globAuthFiles(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "*.auth"))
	if err != nil {
		return nil
	}
	return matches
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
