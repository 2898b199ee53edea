package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodelink/internal/ir"
	"github.com/roach88/nodelink/internal/link"
	"github.com/roach88/nodelink/internal/render"
)

// ConnectOptions holds flags for the connect command.
type ConnectOptions struct {
	*RootOptions
	NoCreate bool // refuse to add ports
	Graph    bool // print the scene afterwards with new legs highlighted
}

// DisconnectOptions holds flags for the disconnect command.
type DisconnectOptions struct {
	*RootOptions
	From string // only remove a connection from this out-port
}

// OperationResult reports one journaled link operation.
type OperationResult struct {
	Tx        string        `json:"tx"`
	Operation string        `json:"operation"`
	Link      string        `json:"link,omitempty"`
	Replayed  int           `json:"replayed"`
	Mutations []ir.Mutation `json:"mutations"`
	Graph     string        `json:"graph,omitempty"`
}

// NewConnectCommand creates the connect command.
func NewConnectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConnectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "connect <scene> <from> <to>",
		Short: "Connect an out-port to an in-port",
		Long: `Connect an out-port to an in-port anywhere in the scene.

Endpoints are written node:port, e.g. Top/G1/A:0. A port of "?" picks the
first free port, adding one if the node can grow. When the two nodes live
in different groups the connection is routed through boundary proxies,
reusing existing legs where possible.

With --db the journal is replayed onto the scene first and the connection
is appended to it as one transaction.

Exit codes:
  0 - Connected
  1 - Refused (PORT_OCCUPIED, INVALID_ENDPOINT, ...)
  2 - Command error (scene not found, malformed endpoint, etc.)

Examples:
  nodelink connect rig.cue Top/G1/A:0 Top/G2/B:0
  nodelink connect rig.cue Top/A:? Top/B:0 --db rig.db --graph`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoCreate, "no-create", false, "do not add ports to make room")
	cmd.Flags().BoolVar(&opts.Graph, "graph", false, "print the scene as Mermaid with the new legs highlighted")
	addLinkFlags(cmd.Flags())
	addJournalFlags(cmd.Flags())

	return cmd
}

// NewDisconnectCommand creates the disconnect command.
func NewDisconnectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DisconnectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "disconnect <scene> <to>",
		Short: "Remove the connection feeding an in-port",
		Long: `Remove the connection feeding an in-port, wherever its source is.

Only the link into the in-port is removed. With --prune-legs, boundary legs
left feeding nothing are removed too; legs shared with other connections
are always kept.

Exit codes:
  0 - Disconnected
  1 - Nothing was connected
  2 - Command error

Examples:
  nodelink disconnect rig.cue Top/G2/B:0 --db rig.db
  nodelink disconnect rig.cue Top/G2/B:0 --from Top/G1/A:0`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisconnect(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "only remove a connection from this out-port")
	addLinkFlags(cmd.Flags())
	addJournalFlags(cmd.Flags())

	return cmd
}

// openForCommand loads config and opens the workspace for scene.
func openForCommand(ctx context.Context, opts *RootOptions, scene string, cmd *cobra.Command, formatter *OutputFormatter) (*Workspace, error) {
	cfg, err := opts.Config(cmd)
	if err != nil {
		return nil, err
	}
	ws, err := OpenWorkspace(ctx, scene, cfg, opts.logger(cmd.ErrOrStderr()), cmd.ErrOrStderr())
	if err != nil {
		return nil, report(formatter, err)
	}
	if ws.Replayed > 0 {
		formatter.VerboseLog("Replayed %d mutation(s) from %s", ws.Replayed, cfg.Journal.Path)
	}
	return ws, nil
}

func parseEndpoints(formatter *OutputFormatter, args ...string) ([]ir.Endpoint, error) {
	eps := make([]ir.Endpoint, len(args))
	for i, a := range args {
		e, err := ir.ParseEndpoint(a)
		if err != nil {
			return nil, formatter.Abort(ExitCommandError, ErrCodeBadArgument, fmt.Sprintf("bad endpoint %q", a), err)
		}
		eps[i] = e
	}
	return eps, nil
}

func runConnect(opts *ConnectOptions, scene, from, to string, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	eps, err := parseEndpoints(formatter, from, to)
	if err != nil {
		return err
	}
	ws, err := openForCommand(ctx, opts.RootOptions, scene, cmd, formatter)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Close(ctx); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "failed to close workspace", cerr)
		}
	}()

	var l *link.Link
	tx, muts, err := ws.Run(ctx, fmt.Sprintf("connect %s -> %s", eps[0], eps[1]), func() error {
		var cerr error
		l, cerr = ws.Linker.Connect(eps[0], eps[1], !opts.NoCreate)
		return cerr
	})
	result := OperationResult{
		Tx:        tx.ID,
		Operation: "connect",
		Replayed:  ws.Replayed,
		Mutations: nonNil(muts),
	}
	if err != nil {
		return refused(formatter, err, result)
	}
	result.Link = l.String()

	if opts.Graph {
		result.Graph = render.Mermaid(ws.Scene, &render.Overlay{Links: createdLinks(muts)})
	}
	return outputOperation(formatter, result)
}

func runDisconnect(opts *DisconnectOptions, scene, to string, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	args := []string{to}
	if opts.From != "" {
		args = append(args, opts.From)
	}
	eps, err := parseEndpoints(formatter, args...)
	if err != nil {
		return err
	}
	ws, err := openForCommand(ctx, opts.RootOptions, scene, cmd, formatter)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Close(ctx); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "failed to close workspace", cerr)
		}
	}()

	l := ws.Linker.FromIn(eps[0])
	if len(eps) == 2 {
		l = ws.Linker.NewLink(eps[1], eps[0])
	}
	desc := l.String()

	removed := false
	tx, muts, err := ws.Run(ctx, "disconnect "+eps[0].String(), func() error {
		removed = ws.Linker.Disconnect(l)
		return nil
	})
	if err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeDatabase, "failed to journal disconnect", err)
	}
	result := OperationResult{
		Tx:        tx.ID,
		Operation: "disconnect",
		Link:      desc,
		Replayed:  ws.Replayed,
		Mutations: nonNil(muts),
	}
	if !removed {
		msg := fmt.Sprintf("nothing connected to %s", eps[0])
		if formatter.JSON() {
			return formatter.Fail(ExitFailure, ErrCodeNothing, msg, result)
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", msg)
		return NewExitError(ExitFailure, msg)
	}
	return outputOperation(formatter, result)
}

// refused reports a failed link operation under its error code.
func refused(formatter *OutputFormatter, err error, result OperationResult) error {
	code := string(link.CodeOf(err))
	if code == "" {
		return formatter.Abort(ExitCommandError, ErrCodeDatabase, result.Operation+" failed", err)
	}
	if formatter.JSON() {
		return formatter.Fail(ExitFailure, code, err.Error(), result)
	}
	fmt.Fprintf(formatter.Writer, "✗ %s refused [%s]: %v\n", result.Operation, code, err)
	return NewExitError(ExitFailure, err.Error())
}

func outputOperation(formatter *OutputFormatter, result OperationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s %s (tx %s, %d mutation(s))\n", result.Operation, result.Link, result.Tx, len(result.Mutations))
	for _, m := range result.Mutations {
		fmt.Fprintf(w, "  %s\n", formatMutation(m))
	}
	if result.Graph != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, result.Graph)
	}
	return nil
}

// formatMutation renders one journal entry on a line.
func formatMutation(m ir.Mutation) string {
	if m.Op == ir.OpDeleteNode {
		return fmt.Sprintf("%4d %s %s", m.Seq, m.Op, m.Node)
	}
	s := fmt.Sprintf("%4d %s %s -> %s", m.Seq, m.Op, m.Out, m.In)
	if m.CreatedOutPort {
		s += " +out"
	}
	if m.CreatedInPort {
		s += " +in"
	}
	return s
}

// createdLinks lists the structural links muts created.
func createdLinks(muts []ir.Mutation) []ir.LinkSpec {
	var links []ir.LinkSpec
	for _, m := range muts {
		if m.Op == ir.OpCreateLink {
			links = append(links, ir.LinkSpec{From: m.Out, To: m.In})
		}
	}
	return links
}

func nonNil(muts []ir.Mutation) []ir.Mutation {
	if muts == nil {
		return []ir.Mutation{}
	}
	return muts
}
