package safety

import (
	"log/slog"
	"strings"

	"github.com/askdb-labs/askdb/internal/schema"
	"github.com/askdb-labs/askdb/pkg/sqltoken"
)

// statement is the tokenized view a rule checks.
type statement struct {
	raw      string
	tokens   []sqltoken.Token // EOF-terminated
	comments []sqltoken.Comment
	schema   *schema.Schema
}

// violation is a rule's negative finding.
type violation struct {
	Reason Reason
	Detail string
}

// Rule is a single structural predicate over a tokenized statement.
// Rules are evaluated in registration order; the first violation wins, so the
// most specific signals (forbidden verbs, injection shapes) are registered
// before the generic shape check to keep rejection reasons actionable.
type Rule struct {
	ID          string
	Name        string
	Description string
	Check       func(*statement) *violation
}

// Gate certifies SQL text against a schema allow-list.
type Gate struct {
	schema *schema.Schema
	rules  []Rule
	logger *slog.Logger
}

// NewGate creates a Gate for the given schema. A nil logger discards.
func NewGate(s *schema.Schema, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{
		schema: s,
		rules: []Rule{
			forbiddenKeywordRule,
			injectionPatternRule,
			statementShapeRule,
			identifierAllowlistRule,
		},
		logger: logger,
	}
}

// Rules returns the gate's rule set in evaluation order.
func (g *Gate) Rules() []Rule {
	return g.rules
}

// Check classifies sqlText as approved or rejected with a specific reason.
// It is a pure function of the text and the schema; no hidden state.
func (g *Gate) Check(sqlText string) Verdict {
	toks, comments := sqltoken.Lex(sqlText)
	stmt := &statement{
		raw:      sqlText,
		tokens:   toks,
		comments: comments,
		schema:   g.schema,
	}

	for _, rule := range g.rules {
		if v := rule.Check(stmt); v != nil {
			g.logger.Debug("sql rejected",
				"rule", rule.ID, "reason", string(v.Reason), "detail", v.Detail)
			return Reject(rule.ID, v.Reason, v.Detail)
		}
	}
	return Approve()
}

// Classify derives the shape classification of sqlText without consulting the
// allow-list.
func Classify(sqlText string) Class {
	toks, _ := sqltoken.Lex(sqlText)
	toks = trimEOF(toks)

	if len(toks) == 0 {
		return ClassMalformed
	}
	for _, t := range toks {
		if t.Type == sqltoken.ILLEGAL {
			return ClassMalformed
		}
	}
	if idx := firstInteriorSemicolon(toks); idx >= 0 {
		return ClassMultiStatement
	}
	if toks[0].Type == sqltoken.SELECT || toks[0].Type == sqltoken.WITH {
		return ClassSelect
	}
	return ClassNonSelect
}

// trimEOF drops the trailing EOF token.
func trimEOF(toks []sqltoken.Token) []sqltoken.Token {
	if n := len(toks); n > 0 && toks[n-1].Type == sqltoken.EOF {
		return toks[:n-1]
	}
	return toks
}

// firstInteriorSemicolon returns the index of a semicolon that is followed by
// further tokens, or -1. A single trailing semicolon is a terminator, not a
// statement separator.
func firstInteriorSemicolon(toks []sqltoken.Token) int {
	for i, t := range toks {
		if t.Type == sqltoken.SEMICOLON && i < len(toks)-1 {
			return i
		}
	}
	return -1
}

// String implements fmt.Stringer for diagnostics.
func (r Rule) String() string {
	return r.ID + " " + r.Name
}

// tokenWords renders a token run for error details.
func tokenWords(toks []sqltoken.Token) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		if t.Literal != "" {
			parts = append(parts, t.Literal)
		} else {
			parts = append(parts, t.Type.String())
		}
	}
	return strings.Join(parts, " ")
}
