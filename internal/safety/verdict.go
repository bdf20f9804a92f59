// Package safety certifies SQL text as a single, non-destructive,
// schema-conformant read before it may be executed.
//
// The gate works over a tokenized view of the statement (pkg/sqltoken) and
// applies a small ordered set of structural predicates. It is deliberately
// defensive even against the SQL builder's own output.
package safety

import "fmt"

// Reason is the fixed taxonomy of rejection causes.
type Reason string

const (
	// ReasonMalformed covers empty input, illegal characters, and statements
	// whose leading keyword is not SELECT or WITH.
	ReasonMalformed Reason = "malformed"
	// ReasonMultiStatement means a second statement follows the first.
	ReasonMultiStatement Reason = "multi-statement"
	// ReasonForbiddenKeyword means a DDL/DML/administrative verb appears as a
	// whole token anywhere in the statement.
	ReasonForbiddenKeyword Reason = "forbidden-keyword"
	// ReasonInjectionPattern means a known injection shape was detected
	// (tautology, UNION exfiltration, or comment truncation).
	ReasonInjectionPattern Reason = "injection-pattern"
	// ReasonUnknownIdentifier means an identifier outside the schema
	// allow-list is referenced.
	ReasonUnknownIdentifier Reason = "unknown-identifier"
)

// Class is the derived shape classification of a SQL text.
type Class string

const (
	ClassSelect         Class = "select"
	ClassNonSelect      Class = "non-select"
	ClassMalformed      Class = "malformed"
	ClassMultiStatement Class = "multi-statement"
)

// Verdict is the gate's decision for one statement. It is a pure function of
// the statement text and the schema allow-list.
type Verdict struct {
	Approved bool
	Reason   Reason // empty when approved
	Detail   string // human-readable specifics, e.g. the offending token
	RuleID   string // which gate rule fired
}

// Approve returns an approving verdict.
func Approve() Verdict {
	return Verdict{Approved: true}
}

// Reject returns a rejecting verdict with a specific reason.
func Reject(ruleID string, reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail, RuleID: ruleID}
}

// Err converts a rejecting verdict into an *UnsafeError; nil when approved.
func (v Verdict) Err() error {
	if v.Approved {
		return nil
	}
	return &UnsafeError{Reason: v.Reason, Detail: v.Detail}
}

// UnsafeError is the error form of a rejection, for callers that propagate
// gate decisions through error paths.
type UnsafeError struct {
	Reason Reason
	Detail string
}

func (e *UnsafeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsafe sql: %s", e.Reason)
	}
	return fmt.Sprintf("unsafe sql: %s: %s", e.Reason, e.Detail)
}
