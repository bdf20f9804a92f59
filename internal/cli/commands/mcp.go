package commands

import (
	"github.com/spf13/cobra"

	"github.com/askdb-labs/askdb/internal/mcpserver"
)

// NewMCPCommand creates the MCP stdio server command.
func NewMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the query pipeline over MCP on stdio",
		Long: `Expose the routing, date resolution, SQL building, safety gating, and
execution stages as MCP tools for agent clients. The server speaks the
protocol on stdin/stdout, so all logging goes to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			logger := GetLogger(cmd.Context())

			p, err := newPipeline(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			srv := mcpserver.New(mcpserver.Deps{
				Schema:     p.Schema,
				Classifier: p.Classifier,
				Filler:     p.Filler,
				Builder:    p.Builder,
				Gate:       p.Gate,
				Runner:     p.Executor,
				Logger:     logger,
			})
			return srv.ServeStdio()
		},
	}
}
