// Package agent drives the conversation: routing questions, collecting
// clarifications, proposing plans, and executing only after approval.
package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/askdb-labs/askdb/internal/nlq"
)

// Stage is where a session stands between turns. Execution itself is not a
// stage; it happens inside a single turn, so a session is never parked
// mid-query.
type Stage string

const (
	// StageIdle means the next input starts a fresh question.
	StageIdle Stage = "idle"
	// StageClarifying means the next input answers an open question.
	StageClarifying Stage = "clarifying"
	// StageAwaitingApproval means a plan is proposed and the next input
	// approves or declines it.
	StageAwaitingApproval Stage = "awaiting_approval"
)

// MaxClarifyTurns bounds how many clarification rounds one question may
// take before the session gives up and resets.
const MaxClarifyTurns = 5

// Session is the per-conversation state the orchestrator threads between
// turns. It is a value; Step returns the updated copy.
type Session struct {
	ID    string
	Stage Stage

	// Question accumulates the original question plus every clarification
	// answer, so slot extraction always sees the full context.
	Question string

	Intent       nlq.Intent
	Slots        nlq.SlotSet
	ClarifyTurns int

	// Plan and SQL are set while awaiting approval.
	Plan *nlq.QueryPlan
	SQL  string

	QueriesRun int
	StartedAt  time.Time
}

// NewSession creates an idle session.
func NewSession() Session {
	return Session{
		ID:        uuid.NewString(),
		Stage:     StageIdle,
		StartedAt: time.Now(),
	}
}

// reset clears the in-flight question but keeps identity and counters.
func (s Session) reset() Session {
	s.Stage = StageIdle
	s.Question = ""
	s.Intent = nlq.IntentUnknown
	s.Slots = nlq.SlotSet{}
	s.ClarifyTurns = 0
	s.Plan = nil
	s.SQL = ""
	return s
}
