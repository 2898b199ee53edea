package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/roach88/nodelink/internal/compiler"
	"github.com/roach88/nodelink/internal/graph"
	"github.com/roach88/nodelink/internal/history"
	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
	"github.com/roach88/nodelink/internal/link"
	"github.com/roach88/nodelink/internal/store"
	"github.com/roach88/nodelink/internal/tracing"
)

// Workspace is a scene built from its CUE description with the journal
// replayed onto it, ready for link operations.
type Workspace struct {
	Spec     *ir.SceneSpec
	Scene    *host.Memory
	Warnings []compiler.CycleWarning
	Journal  *history.Journal
	Linker   *link.Linker

	// Store is nil when no journal database is configured.
	Store *store.Store

	// Replayed counts the journaled mutations applied to the scene.
	Replayed int

	tracer *tracing.Provider
}

// workspaceError carries the CLI error code for a failed open.
type workspaceError struct {
	exit int
	code string
	msg  string
	err  error
}

func (e *workspaceError) Error() string { return fmt.Sprintf("%s: %v", e.msg, e.err) }
func (e *workspaceError) Unwrap() error { return e.err }

// report writes err through f and returns the ExitError to hand back to
// cobra.
func report(f *OutputFormatter, err error) error {
	var werr *workspaceError
	if errors.As(err, &werr) {
		return f.Abort(werr.exit, werr.code, werr.msg, werr.err)
	}
	return f.Abort(ExitCommandError, ErrCodeDatabase, "failed to open workspace", err)
}

// buildScene compiles and validates the scene file at path.
func buildScene(path string) (*ir.SceneSpec, *host.Memory, []compiler.CycleWarning, error) {
	spec, scene, warnings, err := compiler.BuildFile(path)
	if err == nil {
		return spec, scene, warnings, nil
	}
	var berr *compiler.BuildError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil, nil, &workspaceError{ExitCommandError, ErrCodeNotFound, "scene not found", err}
	case errors.As(err, &berr):
		return nil, nil, nil, &workspaceError{ExitFailure, ErrCodeInvalid, "scene is invalid", err}
	}
	return nil, nil, nil, &workspaceError{ExitFailure, ErrCodeCompile, "scene does not compile", err}
}

// openStore opens an existing journal database.
func openStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &workspaceError{ExitCommandError, ErrCodeNotFound, "database not found", err}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &workspaceError{ExitCommandError, ErrCodeDatabase, "failed to open database", err}
	}
	return st, nil
}

// OpenWorkspace builds the scene at path. When cfg names a journal, its
// committed mutations are replayed onto the scene and new transactions are
// appended to it; the database is created if missing.
//
// traceOut receives spans for the stdout exporter.
func OpenWorkspace(ctx context.Context, path string, cfg Config, logger *slog.Logger, traceOut io.Writer) (*Workspace, error) {
	spec, scene, warnings, err := buildScene(path)
	if err != nil {
		return nil, err
	}
	ws := &Workspace{Spec: spec, Scene: scene, Warnings: warnings}

	clock := history.NewClock()
	jopts := []history.Option{
		history.WithTokenGenerator(history.UUIDv7Generator{}),
		history.WithLogger(logger),
	}
	if cfg.Journal.Path != "" {
		st, err := store.Open(cfg.Journal.Path)
		if err != nil {
			return nil, &workspaceError{ExitCommandError, ErrCodeDatabase, "failed to open database", err}
		}
		ws.Store = st
		if err := ws.replay(ctx); err != nil {
			st.Close()
			return nil, err
		}
		last, err := st.GetLastSeq(ctx)
		if err != nil {
			st.Close()
			return nil, &workspaceError{ExitCommandError, ErrCodeDatabase, "failed to read journal", err}
		}
		clock = history.NewClockAt(last)
		jopts = append(jopts, history.WithSink(st))
		logger.Debug("journal replayed", "path", cfg.Journal.Path, "mutations", ws.Replayed, "last_seq", last)
	}
	ws.Journal = history.New(scene, append(jopts, history.WithClock(clock))...)

	tcfg := cfg.Trace
	if tcfg.FilePath != "" && tcfg.Exporter == "stdout" {
		tcfg.Exporter = "file"
	}
	tcfg.Writer = traceOut
	ws.tracer, err = tracing.NewProvider(tcfg)
	if err != nil {
		ws.Close(ctx)
		return nil, &workspaceError{ExitCommandError, ErrCodeBadArgument, "failed to start tracing", err}
	}

	ws.Linker = link.New(graph.NewRegistry(ws.Journal),
		link.WithAutoDisconnect(cfg.Link.AutoDisconnect),
		link.WithPruneDanglingLegs(cfg.Link.PruneDanglingLegs),
		link.WithLogger(logger),
		link.WithTracer(ws.tracer.Tracer()),
	)
	return ws, nil
}

func (ws *Workspace) replay(ctx context.Context) error {
	muts, err := ws.Store.ReplayMutations(ctx, false)
	if err != nil {
		return &workspaceError{ExitCommandError, ErrCodeDatabase, "failed to read journal", err}
	}
	if err := history.Replay(ws.Scene, muts); err != nil {
		return &workspaceError{ExitFailure, ErrCodeReplay, "journal does not replay onto scene", err}
	}
	ws.Replayed = len(muts)
	return nil
}

// Run executes fn in a journal transaction named name and returns the
// transaction and the mutations it recorded. fn's error is returned after
// the commit.
func (ws *Workspace) Run(ctx context.Context, name string, fn func() error) (ir.Transaction, []ir.Mutation, error) {
	tx, err := ws.Journal.Begin(ctx, name)
	if err != nil {
		return ir.Transaction{}, nil, err
	}
	opErr := fn()
	if err := ws.Journal.Commit(); err != nil {
		return tx, nil, err
	}
	return tx, ws.Journal.MutationsOf(tx.ID), opErr
}

// Close flushes spans and closes the journal database.
func (ws *Workspace) Close(ctx context.Context) error {
	var errs []error
	if ws.tracer != nil {
		errs = append(errs, ws.tracer.Shutdown(ctx))
	}
	if ws.Store != nil {
		errs = append(errs, ws.Store.Close())
	}
	return errors.Join(errs...)
}
