package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodelink/internal/render"
)

// GraphResult is the JSON payload of the graph command.
type GraphResult struct {
	Scene    string `json:"scene"`
	Replayed int    `json:"replayed"`
	Mermaid  string `json:"mermaid"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <scene>",
		Short: "Print a scene as a Mermaid flowchart",
		Long: `Print a scene as a Mermaid flowchart, one subgraph per group.

With --db the journal is replayed first, so the chart shows the scene as
edited rather than as described.

Examples:
  nodelink graph rig.cue > rig.mmd
  nodelink graph rig.cue --db rig.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(rootOpts, args[0], cmd)
		},
	}

	addJournalFlags(cmd.Flags())

	return cmd
}

func runGraph(opts *RootOptions, scene string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	ws, err := openForCommand(ctx, opts, scene, cmd, formatter)
	if err != nil {
		return err
	}
	defer ws.Close(ctx)

	chart := render.Mermaid(ws.Scene, nil)
	if formatter.JSON() {
		return formatter.Success(GraphResult{Scene: ws.Spec.Name, Replayed: ws.Replayed, Mermaid: chart})
	}
	fmt.Fprint(formatter.Writer, chart)
	return nil
}
