package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/executor"
	"github.com/askdb-labs/askdb/internal/nlq"
	"github.com/askdb-labs/askdb/internal/safety"
	"github.com/askdb-labs/askdb/internal/schema"
	"github.com/askdb-labs/askdb/internal/sqlgen"
	"github.com/askdb-labs/askdb/internal/testutil"
)

// recordingRunner counts executions so tests can verify nothing runs
// without approval.
type recordingRunner struct {
	calls []string
	rs    *executor.ResultSet
	err   error
}

func (r *recordingRunner) Execute(_ context.Context, sqlText string) (*executor.ResultSet, error) {
	r.calls = append(r.calls, sqlText)
	if r.err != nil {
		return nil, r.err
	}
	if r.rs != nil {
		return r.rs, nil
	}
	return &executor.ResultSet{
		Columns: []string{"bucket", "trips"},
		Rows:    [][]any{{"2022-06-06", int64(42)}},
	}, nil
}

func newOrchestrator(t *testing.T, runner Runner) *Orchestrator {
	t.Helper()
	sch := schema.Default()
	resolver := nlq.NewResolver(sch.Span, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC))
	filler := nlq.NewFiller(sch.Span, resolver, nil)
	dialect, err := sqlgen.ForAdapter("duckdb")
	require.NoError(t, err)

	logger := testutil.NewTestLogger(t)
	return New(
		nlq.NewRuleRouter(logger),
		filler,
		sqlgen.NewBuilder(dialect),
		safety.NewGate(sch, logger),
		runner,
		logger,
	)
}

func TestStep_FullApprovalFlow(t *testing.T) {
	runner := &recordingRunner{}
	o := newOrchestrator(t, runner)
	s := NewSession()

	// Complete question goes straight to a proposed plan.
	s, reply := o.Step(context.Background(), s, "How many trips per week in June 2022?")
	require.Equal(t, StageAwaitingApproval, reply.Stage)
	assert.Contains(t, reply.PlanSummary, "Count trips per week")
	assert.Contains(t, reply.SQL, "SELECT")
	assert.Empty(t, runner.calls, "nothing may run before approval")

	// Approval executes and explains.
	s, reply = o.Step(context.Background(), s, "yes")
	require.Equal(t, StageIdle, reply.Stage)
	require.Len(t, runner.calls, 1)
	require.NotNil(t, reply.Result)
	require.NotNil(t, reply.Explanation)
	assert.Equal(t, 1, s.QueriesRun)
}

func TestStep_DeclineDiscardsPlan(t *testing.T) {
	runner := &recordingRunner{}
	o := newOrchestrator(t, runner)
	s := NewSession()

	s, reply := o.Step(context.Background(), s, "How many trips per week in June 2022?")
	require.Equal(t, StageAwaitingApproval, reply.Stage)

	s, reply = o.Step(context.Background(), s, "no")
	assert.Equal(t, StageIdle, reply.Stage)
	assert.Empty(t, runner.calls)
	assert.Nil(t, s.Plan)
	assert.Empty(t, s.SQL)
}

func TestStep_UnclearApprovalReasks(t *testing.T) {
	runner := &recordingRunner{}
	o := newOrchestrator(t, runner)
	s := NewSession()

	s, _ = o.Step(context.Background(), s, "How many trips per week in June 2022?")
	s, reply := o.Step(context.Background(), s, "maybe later")

	assert.Equal(t, StageAwaitingApproval, reply.Stage)
	assert.Contains(t, reply.Text, "yes or no")
	assert.Empty(t, runner.calls)
	assert.Equal(t, StageAwaitingApproval, s.Stage)
}

func TestStep_ClarificationMergesAnswer(t *testing.T) {
	runner := &recordingRunner{}
	o := newOrchestrator(t, runner)
	s := NewSession()

	s, reply := o.Step(context.Background(), s, "How many trips were there?")
	require.Equal(t, StageClarifying, reply.Stage)
	require.NotEmpty(t, reply.Questions)
	assert.Equal(t, "date_range", reply.Questions[0].Slot)

	s, reply = o.Step(context.Background(), s, "June 2022")
	require.Equal(t, StageAwaitingApproval, reply.Stage)
	assert.Contains(t, reply.SQL, "2022-06-01")
	assert.Empty(t, runner.calls)
}

func TestStep_ClarificationCapResets(t *testing.T) {
	runner := &recordingRunner{}
	o := newOrchestrator(t, runner)
	s := NewSession()

	s, reply := o.Step(context.Background(), s, "How many trips were there?")
	require.Equal(t, StageClarifying, reply.Stage)

	for i := 0; i < MaxClarifyTurns; i++ {
		s, reply = o.Step(context.Background(), s, "hmm not sure")
		if reply.Stage != StageClarifying {
			break
		}
	}
	s, reply = o.Step(context.Background(), s, "still not sure")
	// Either the cap fired during the loop or on the final turn.
	assert.Equal(t, StageIdle, s.Stage)
	assert.Empty(t, runner.calls)
}

func TestStep_CancelDuringClarification(t *testing.T) {
	runner := &recordingRunner{}
	o := newOrchestrator(t, runner)
	s := NewSession()

	s, _ = o.Step(context.Background(), s, "How many trips were there?")
	s, reply := o.Step(context.Background(), s, "cancel")

	assert.Equal(t, StageIdle, reply.Stage)
	assert.Empty(t, s.Question)
}

func TestStep_UnroutableQuestion(t *testing.T) {
	runner := &recordingRunner{}
	o := newOrchestrator(t, runner)
	s := NewSession()

	s, reply := o.Step(context.Background(), s, "what was the weather like in June?")
	assert.Equal(t, StageIdle, reply.Stage)
	assert.Contains(t, reply.Text, "taxi trip data")
	assert.Empty(t, runner.calls)
	assert.Equal(t, StageIdle, s.Stage)
}

func TestStep_AmbiguousSeasonNeverSilentlyResolves(t *testing.T) {
	runner := &recordingRunner{}

	sch := schema.New(schema.Default().Tables, schema.DateSpan{
		Min: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Max: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	resolver := nlq.NewResolver(sch.Span, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC))
	filler := nlq.NewFiller(sch.Span, resolver, nil)
	dialect, err := sqlgen.ForAdapter("duckdb")
	require.NoError(t, err)
	o := New(nlq.NewRuleRouter(nil), filler, sqlgen.NewBuilder(dialect), safety.NewGate(sch, nil), runner, nil)

	s := NewSession()
	s, reply := o.Step(context.Background(), s, "How many trips last summer?")
	require.Equal(t, StageClarifying, reply.Stage)
	require.NotEmpty(t, reply.Questions)
	assert.Equal(t, nlq.KindAmbiguous, reply.Questions[0].Kind)
	assert.Len(t, reply.Questions[0].Options, 2)
	assert.Empty(t, runner.calls)
}

func TestStep_TimeoutSuggestsNarrowing(t *testing.T) {
	runner := &recordingRunner{err: &executor.TimeoutError{Timeout: 15 * time.Second}}
	o := newOrchestrator(t, runner)
	s := NewSession()

	s, _ = o.Step(context.Background(), s, "How many trips per week in June 2022?")
	s, reply := o.Step(context.Background(), s, "yes")

	assert.Equal(t, StageIdle, reply.Stage)
	assert.Contains(t, reply.Text, "narrower date range")
	assert.Equal(t, 0, s.QueriesRun)
}

func TestStep_ExecutionFailureReported(t *testing.T) {
	runner := &recordingRunner{err: &executor.ExecError{Err: errors.New("disk I/O error")}}
	o := newOrchestrator(t, runner)
	s := NewSession()

	s, _ = o.Step(context.Background(), s, "How many trips per week in June 2022?")
	s, reply := o.Step(context.Background(), s, "yes")

	assert.Equal(t, StageIdle, reply.Stage)
	assert.Contains(t, reply.Text, "disk I/O error")
}
