package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askdb-labs/askdb/internal/executor"
	"github.com/askdb-labs/askdb/internal/explain"
	"github.com/askdb-labs/askdb/internal/nlq"
	"github.com/askdb-labs/askdb/internal/safety"
)

// Reply is one turn's answer to the user.
type Reply struct {
	Stage Stage
	Text  string

	// Questions are open clarifications, present in StageClarifying.
	Questions []nlq.Question

	// PlanSummary, SQL, and EstimatedRows describe a proposed plan,
	// present in StageAwaitingApproval.
	PlanSummary   string
	SQL           string
	EstimatedRows int

	// Result and Explanation are present after an approved execution.
	Result      *executor.ResultSet
	Explanation *explain.Explanation
}

// Builder renders an approved plan as SQL.
type Builder interface {
	Build(plan *nlq.QueryPlan) (string, error)
}

// Runner executes certified SQL.
type Runner interface {
	Execute(ctx context.Context, sqlText string) (*executor.ResultSet, error)
}

// Orchestrator wires the pipeline stages into a conversation loop.
type Orchestrator struct {
	classifier nlq.Classifier
	filler     *nlq.Filler
	builder    Builder
	gate       *safety.Gate
	runner     Runner
	logger     *slog.Logger
}

// New creates an Orchestrator. A nil logger discards.
func New(classifier nlq.Classifier, filler *nlq.Filler, builder Builder, gate *safety.Gate, runner Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		classifier: classifier,
		filler:     filler,
		builder:    builder,
		gate:       gate,
		runner:     runner,
		logger:     logger,
	}
}

// Step advances the session by one user input and returns the updated
// session with the reply. SQL executes only on the approval path; there is
// no input that goes from question to execution in a single turn.
func (o *Orchestrator) Step(ctx context.Context, s Session, input string) (Session, Reply) {
	input = strings.TrimSpace(input)

	switch s.Stage {
	case StageAwaitingApproval:
		return o.stepApproval(ctx, s, input)
	case StageClarifying:
		return o.stepClarification(s, input)
	default:
		return o.stepQuestion(ctx, s, input)
	}
}

// stepQuestion handles a fresh question: route it, fill slots, and either
// ask for clarification or propose a plan.
func (o *Orchestrator) stepQuestion(ctx context.Context, s Session, input string) (Session, Reply) {
	if input == "" {
		return s, Reply{Stage: s.Stage, Text: "Ask a question about the taxi trip data."}
	}

	intent, conf, err := o.classifier.Classify(ctx, input)
	if err != nil {
		o.logger.Error("classifier failed", "error", err)
		return s, Reply{Stage: s.Stage, Text: "Something went wrong routing that question. Try again."}
	}
	if intent == nlq.IntentUnknown {
		o.logger.Info("unroutable question", "error", &nlq.UnroutableError{Text: input}, "confidence", conf)
		return s.reset(), Reply{
			Stage: StageIdle,
			Text: "I can only answer questions about the taxi trip data: trip counts, " +
				"fares and tips, vendor activity, or sample rows.",
		}
	}

	s.Question = input
	s.Intent = intent
	s.Slots = nlq.SlotSet{}
	return o.fillAndAdvance(s)
}

// stepClarification merges the answer into the accumulated question and
// re-extracts. Earlier slots survive; only the new text adds information.
func (o *Orchestrator) stepClarification(s Session, input string) (Session, Reply) {
	if strings.EqualFold(input, "cancel") || strings.EqualFold(input, "never mind") {
		return s.reset(), Reply{Stage: StageIdle, Text: "Okay, dropped that question."}
	}

	s.ClarifyTurns++
	if s.ClarifyTurns > MaxClarifyTurns {
		o.logger.Info("clarification cap reached", "session", s.ID)
		return s.reset(), Reply{
			Stage: StageIdle,
			Text:  "We've gone back and forth too long. Try rephrasing the whole question in one line.",
		}
	}

	s.Question = s.Question + " " + input
	return o.fillAndAdvance(s)
}

func (o *Orchestrator) fillAndAdvance(s Session) (Session, Reply) {
	slots, questions := o.filler.Fill(s.Question, s.Intent, s.Slots)
	s.Slots = slots

	if len(questions) > 0 {
		s.Stage = StageClarifying
		return s, Reply{
			Stage:     StageClarifying,
			Text:      questions[0].Text,
			Questions: questions,
		}
	}
	return o.propose(s)
}

// propose builds the SQL, certifies it, and parks the session awaiting
// approval. A gate rejection here is a generator defect, never shown as a
// user mistake.
func (o *Orchestrator) propose(s Session) (Session, Reply) {
	plan, err := nlq.NewPlan(s.Intent, s.Slots)
	if err != nil {
		o.logger.Error("plan construction failed", "error", err)
		return s.reset(), Reply{Stage: StageIdle, Text: "I couldn't turn that into a plan. Try rephrasing."}
	}

	sqlText, err := o.builder.Build(plan)
	if err != nil {
		o.logger.Error("sql generation failed", "error", err)
		return s.reset(), Reply{Stage: StageIdle, Text: "I couldn't generate SQL for that plan."}
	}

	if verdict := o.gate.Check(sqlText); !verdict.Approved {
		o.logger.Error("generated sql rejected by safety gate",
			"rule", verdict.RuleID, "reason", string(verdict.Reason), "detail", verdict.Detail, "sql", sqlText)
		return s.reset(), Reply{Stage: StageIdle, Text: "Internal error: the generated query failed validation."}
	}

	s.Stage = StageAwaitingApproval
	s.Plan = plan
	s.SQL = sqlText

	return s, Reply{
		Stage:         StageAwaitingApproval,
		Text:          fmt.Sprintf("%s Run it? (yes/no)", plan.Summary()),
		PlanSummary:   plan.Summary(),
		SQL:           sqlText,
		EstimatedRows: plan.EstimateRows(),
	}
}

// stepApproval interprets the input as an approval decision.
func (o *Orchestrator) stepApproval(ctx context.Context, s Session, input string) (Session, Reply) {
	switch parseApproval(input) {
	case approvalYes:
		return o.execute(ctx, s)
	case approvalNo:
		o.logger.Info("plan declined", "session", s.ID)
		return s.reset(), Reply{Stage: StageIdle, Text: "Okay, nothing was run."}
	default:
		return s, Reply{
			Stage:       StageAwaitingApproval,
			Text:        "Please answer yes or no. Nothing runs until you approve.",
			PlanSummary: s.Plan.Summary(),
			SQL:         s.SQL,
		}
	}
}

// execute re-certifies and runs the approved SQL. The re-check costs
// nothing and keeps the invariant local: what executes is what was approved
// and certified, in that order.
func (o *Orchestrator) execute(ctx context.Context, s Session) (Session, Reply) {
	if verdict := o.gate.Check(s.SQL); !verdict.Approved {
		o.logger.Error("approved sql rejected at execution",
			"rule", verdict.RuleID, "reason", string(verdict.Reason))
		return s.reset(), Reply{Stage: StageIdle, Text: "Internal error: the approved query failed validation."}
	}

	rs, err := o.runner.Execute(ctx, s.SQL)
	if err != nil {
		return o.executionFailed(s, err)
	}

	ex := explain.Summarize(s.Plan, rs)
	s.QueriesRun++
	plan := s.Plan
	s = s.reset()

	o.logger.Info("query completed", "session", s.ID, "intent", string(plan.Intent), "rows", len(rs.Rows))
	return s, Reply{
		Stage:       StageIdle,
		Text:        ex.Summary,
		Result:      rs,
		Explanation: &ex,
	}
}

func (o *Orchestrator) executionFailed(s Session, err error) (Session, Reply) {
	switch err.(type) {
	case *executor.TimeoutError:
		o.logger.Warn("query timed out", "session", s.ID)
		return s.reset(), Reply{
			Stage: StageIdle,
			Text:  err.Error() + " Try a narrower date range or a coarser granularity.",
		}
	default:
		o.logger.Error("query failed", "session", s.ID, "error", err)
		return s.reset(), Reply{Stage: StageIdle, Text: err.Error()}
	}
}

type approval int

const (
	approvalUnclear approval = iota
	approvalYes
	approvalNo
)

func parseApproval(input string) approval {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes", "run", "run it", "go", "ok", "okay", "approve", "sure", "do it":
		return approvalYes
	case "n", "no", "cancel", "stop", "abort", "don't", "dont", "nope":
		return approvalNo
	}
	return approvalUnclear
}
