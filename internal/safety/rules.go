package safety

import (
	"fmt"
	"strings"

	"github.com/askdb-labs/askdb/pkg/sqltoken"
)

// forbiddenTokens are verbs that can mutate data or schema, or chain into
// another engine. They are matched as whole tokens, so an identifier like
// dropped_trips never trips the rule.
var forbiddenTokens = map[sqltoken.Type]bool{
	sqltoken.INSERT:   true,
	sqltoken.UPDATE:   true,
	sqltoken.DELETE:   true,
	sqltoken.DROP:     true,
	sqltoken.ALTER:    true,
	sqltoken.CREATE:   true,
	sqltoken.TRUNCATE: true,
	sqltoken.ATTACH:   true,
	sqltoken.DETACH:   true,
	sqltoken.PRAGMA:   true,
	sqltoken.EXEC:     true,
	sqltoken.EXECUTE:  true,
	sqltoken.GRANT:    true,
	sqltoken.REVOKE:   true,
	sqltoken.VACUUM:   true,
	sqltoken.MERGE:    true,
	sqltoken.REPLACE:  true,
	sqltoken.CALL:     true,
	sqltoken.COPY:     true,
}

var forbiddenKeywordRule = Rule{
	ID:          "SG01",
	Name:        "forbidden_keyword",
	Description: "Reject DDL/DML and administrative verbs anywhere in the statement.",
	Check: func(stmt *statement) *violation {
		for _, t := range stmt.tokens {
			if forbiddenTokens[t.Type] {
				return &violation{
					Reason: ReasonForbiddenKeyword,
					Detail: fmt.Sprintf("keyword %s is not allowed", t.Type),
				}
			}
		}
		return nil
	},
}

var injectionPatternRule = Rule{
	ID:          "SG02",
	Name:        "injection_pattern",
	Description: "Reject tautologies, UNION exfiltration, and comment truncation shapes.",
	Check: func(stmt *statement) *violation {
		toks := trimEOF(stmt.tokens)

		// UNION [ALL] SELECT adjacency. Matched on tokens, so a column value
		// containing the word "union" never triggers it.
		for i := 0; i < len(toks)-1; i++ {
			if toks[i].Type != sqltoken.UNION {
				continue
			}
			next := toks[i+1]
			if next.Type == sqltoken.ALL && i+2 < len(toks) {
				next = toks[i+2]
			}
			if next.Type == sqltoken.SELECT {
				return &violation{
					Reason: ReasonInjectionPattern,
					Detail: "UNION SELECT is not allowed",
				}
			}
		}

		// Tautology: OR <const> = <const> with equal literals, or OR TRUE.
		for i := 0; i < len(toks); i++ {
			if toks[i].Type != sqltoken.OR {
				continue
			}
			if i+1 < len(toks) && toks[i+1].Type == sqltoken.TRUE {
				return &violation{
					Reason: ReasonInjectionPattern,
					Detail: "OR TRUE tautology",
				}
			}
			if i+3 < len(toks) &&
				isConstant(toks[i+1]) &&
				toks[i+2].Type == sqltoken.EQ &&
				isConstant(toks[i+3]) &&
				toks[i+1].Literal == toks[i+3].Literal {
				return &violation{
					Reason: ReasonInjectionPattern,
					Detail: fmt.Sprintf("tautology %s", tokenWords(toks[i:i+4])),
				}
			}
		}

		// Comment truncation: a line comment running to end of input, or an
		// unterminated block comment, is the classic way to elide a clause.
		for _, c := range stmt.comments {
			if !c.Terminated {
				return &violation{
					Reason: ReasonInjectionPattern,
					Detail: "trailing comment truncation",
				}
			}
		}
		return nil
	},
}

func isConstant(t sqltoken.Token) bool {
	switch t.Type {
	case sqltoken.STRING, sqltoken.NUMBER, sqltoken.TRUE, sqltoken.FALSE:
		return true
	}
	return false
}

var statementShapeRule = Rule{
	ID:          "SG03",
	Name:        "statement_shape",
	Description: "Require exactly one statement whose leading keyword is SELECT (or WITH).",
	Check: func(stmt *statement) *violation {
		toks := trimEOF(stmt.tokens)

		if len(toks) == 0 {
			return &violation{Reason: ReasonMalformed, Detail: "empty statement"}
		}
		for _, t := range toks {
			if t.Type == sqltoken.ILLEGAL {
				return &violation{
					Reason: ReasonMalformed,
					Detail: fmt.Sprintf("unexpected character %q", t.Literal),
				}
			}
		}
		if idx := firstInteriorSemicolon(toks); idx >= 0 {
			return &violation{
				Reason: ReasonMultiStatement,
				Detail: "statement separator followed by more input",
			}
		}
		if toks[0].Type != sqltoken.SELECT && toks[0].Type != sqltoken.WITH {
			return &violation{
				Reason: ReasonMalformed,
				Detail: fmt.Sprintf("statement must begin with SELECT, got %s", toks[0].Type),
			}
		}
		return nil
	},
}

// allowedFunctions are the builtin functions a read query may call.
var allowedFunctions = map[string]bool{
	"count":      true,
	"sum":        true,
	"avg":        true,
	"min":        true,
	"max":        true,
	"abs":        true,
	"round":      true,
	"lower":      true,
	"upper":      true,
	"length":     true,
	"coalesce":   true,
	"date":       true,
	"strftime":   true,
	"date_trunc": true,
}

var identifierAllowlistRule = Rule{
	ID:          "SG04",
	Name:        "identifier_allowlist",
	Description: "Every referenced identifier must belong to the schema allow-list.",
	Check: func(stmt *statement) *violation {
		toks := trimEOF(stmt.tokens)

		// First pass: aliases introduced with AS become legal references for
		// the rest of the statement (SELECT expr AS week ... ORDER BY week),
		// but only when the expression they name ends in something legal
		// itself: an allow-listed identifier, a closing paren, or a literal.
		// `password AS password` defines nothing, so the allow-list cannot be
		// laundered by self-aliasing.
		aliases := map[string]bool{}
		for i := 2; i < len(toks); i++ {
			if toks[i-1].Type != sqltoken.AS || toks[i].Type != sqltoken.IDENT {
				continue
			}
			legal := false
			switch src := toks[i-2]; src.Type {
			case sqltoken.RPAREN, sqltoken.NUMBER, sqltoken.STRING:
				legal = true
			case sqltoken.IDENT:
				legal = stmt.schema != nil && stmt.schema.HasIdentifier(strings.ToLower(src.Literal))
			}
			if legal {
				aliases[strings.ToLower(toks[i].Literal)] = true
			}
		}

		for i, t := range toks {
			if t.Type != sqltoken.IDENT {
				continue
			}
			name := strings.ToLower(t.Literal)

			// Alias definition site. The name itself is arbitrary; the
			// source tokens before the AS are checked like any other
			// reference, so an illegal source still rejects the statement.
			if i > 0 && toks[i-1].Type == sqltoken.AS {
				continue
			}

			// FROM position names a table, never a column or alias.
			if i > 0 && toks[i-1].Type == sqltoken.FROM {
				if stmt.schema != nil && stmt.schema.HasTable(name) {
					continue
				}
				return &violation{
					Reason: ReasonUnknownIdentifier,
					Detail: fmt.Sprintf("table %q is not in the schema allow-list", t.Literal),
				}
			}

			// Use of a legally defined alias.
			if aliases[name] {
				continue
			}

			// Function call: IDENT immediately followed by '('.
			if i+1 < len(toks) && toks[i+1].Type == sqltoken.LPAREN {
				if allowedFunctions[name] {
					continue
				}
				return &violation{
					Reason: ReasonUnknownIdentifier,
					Detail: fmt.Sprintf("unknown function %q", t.Literal),
				}
			}

			// String argument position inside date functions, e.g.
			// date_trunc('week', ...) — handled above since the literal is a
			// STRING, not an IDENT. Plain identifiers go to the schema.
			if stmt.schema != nil && stmt.schema.HasIdentifier(name) {
				continue
			}
			return &violation{
				Reason: ReasonUnknownIdentifier,
				Detail: fmt.Sprintf("identifier %q is not in the schema allow-list", t.Literal),
			}
		}
		return nil
	},
}
