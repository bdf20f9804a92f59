package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewQueryCommand creates the one-shot gated query command.
func NewQueryCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run one SQL statement through the safety gate",
		Long: `Run a single SQL statement. The statement passes through the same
safety gate as generated queries: a single read-only SELECT over known
identifiers, or nothing runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			logger := GetLogger(cmd.Context())

			p, err := newPipeline(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			sqlText := strings.Join(args, " ")

			verdict := p.Gate.Check(sqlText)
			if !verdict.Approved {
				return fmt.Errorf("query rejected by %s (%s): %s",
					verdict.RuleID, verdict.Reason, verdict.Detail)
			}

			rs, err := p.Executor.Execute(cmd.Context(), sqlText)
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), rs, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "result format (table|json|csv|markdown)")
	return cmd
}
