package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/askdb-labs/askdb/internal/agent"
)

// NewAskCommand creates the interactive ask REPL.
func NewAskCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask questions interactively",
		Long: `Start an interactive session. Each question is routed, clarified when
needed, and turned into SQL that runs only after you approve it.

With a question argument, the session starts on that question.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			logger := GetLogger(cmd.Context())

			p, err := newPipeline(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			return runAskREPL(cmd, p, strings.Join(args, " "), format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "result format (table|json|csv|markdown)")
	return cmd
}

func runAskREPL(cmd *cobra.Command, p *pipeline, firstQuestion, format string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "askdb> ",
		HistoryFile:     ".askdb_history",
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "askdb interactive session (database: %s)\n", p.Adapter.DialectName())
	_, _ = fmt.Fprintln(out, "Ask about taxi trips; type .quit to exit.")
	_, _ = fmt.Fprintln(out)

	session := agent.NewSession()

	step := func(input string) {
		var reply agent.Reply
		session, reply = p.Agent.Step(cmd.Context(), session, input)
		renderReply(out, reply, format)
		rl.SetPrompt(promptFor(session.Stage))
	}

	if firstQuestion != "" {
		_, _ = fmt.Fprintf(out, "askdb> %s\n", firstQuestion)
		step(firstQuestion)
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session = agent.NewSession()
			rl.SetPrompt("askdb> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".quit" || line == ".exit" {
			break
		}

		step(line)
	}
	return nil
}

func promptFor(stage agent.Stage) string {
	switch stage {
	case agent.StageClarifying:
		return "  ...> "
	case agent.StageAwaitingApproval:
		return "run?> "
	}
	return "askdb> "
}

// renderReply prints one turn: clarification, proposal, or result.
func renderReply(out io.Writer, reply agent.Reply, format string) {
	_, _ = fmt.Fprintln(out, reply.Text)

	switch reply.Stage {
	case agent.StageClarifying:
		for _, q := range reply.Questions {
			for i, opt := range q.Options {
				_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, opt)
			}
		}
	case agent.StageAwaitingApproval:
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, reply.SQL)
		if reply.EstimatedRows > 0 {
			_, _ = fmt.Fprintf(out, "(~%d rows expected)\n", reply.EstimatedRows)
		}
	default:
		if reply.Result != nil {
			_ = renderResult(out, reply.Result, format)
		}
		if reply.Explanation != nil && len(reply.Explanation.Suggestions) > 0 {
			_, _ = fmt.Fprintln(out, "You could also ask:")
			for _, s := range reply.Explanation.Suggestions {
				_, _ = fmt.Fprintf(out, "  - %s\n", s)
			}
		}
	}
	_, _ = fmt.Fprintln(out)
}
