// Package sqltoken provides lexical tokens and a tokenizer for SQL text.
//
// The safety gate reasons about SQL structurally, over tokens rather than raw
// strings, so keywords hidden inside identifiers or string literals are never
// confused with real keywords.
package sqltoken

import "strings"

// Type identifies the lexical class of a token.
type Type int

const (
	// Special tokens
	EOF Type = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'

	// Operators and punctuation
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	DOT       // .
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	SEMICOLON // ;

	// Query keywords
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	CROSS
	DESC
	DISTINCT
	ELSE
	END
	EXCEPT
	FALSE
	FROM
	FULL
	GROUP
	HAVING
	IN
	INNER
	INTERSECT
	IS
	JOIN
	LEFT
	LIKE
	LIMIT
	NOT
	NULL
	OFFSET
	ON
	OR
	ORDER
	OUTER
	RIGHT
	SELECT
	THEN
	TRUE
	UNION
	WHEN
	WHERE
	WITH

	// Mutating / administrative verbs. Tokenized separately so the gate can
	// reject them as whole tokens without substring matching.
	ALTER
	ATTACH
	CALL
	COPY
	CREATE
	DELETE
	DETACH
	DROP
	EXEC
	EXECUTE
	GRANT
	INSERT
	INTO
	MERGE
	PRAGMA
	REPLACE
	REVOKE
	SET
	TRUNCATE
	UPDATE
	VACUUM
	VALUES
)

var tokenNames = map[Type]string{
	EOF:       "EOF",
	ILLEGAL:   "ILLEGAL",
	IDENT:     "IDENT",
	NUMBER:    "NUMBER",
	STRING:    "STRING",
	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	DOT:       ".",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	SEMICOLON: ";",
	ALL:       "ALL",
	AND:       "AND",
	AS:        "AS",
	ASC:       "ASC",
	BETWEEN:   "BETWEEN",
	BY:        "BY",
	CASE:      "CASE",
	CAST:      "CAST",
	CROSS:     "CROSS",
	DESC:      "DESC",
	DISTINCT:  "DISTINCT",
	ELSE:      "ELSE",
	END:       "END",
	EXCEPT:    "EXCEPT",
	FALSE:     "FALSE",
	FROM:      "FROM",
	FULL:      "FULL",
	GROUP:     "GROUP",
	HAVING:    "HAVING",
	IN:        "IN",
	INNER:     "INNER",
	INTERSECT: "INTERSECT",
	IS:        "IS",
	JOIN:      "JOIN",
	LEFT:      "LEFT",
	LIKE:      "LIKE",
	LIMIT:     "LIMIT",
	NOT:       "NOT",
	NULL:      "NULL",
	OFFSET:    "OFFSET",
	ON:        "ON",
	OR:        "OR",
	ORDER:     "ORDER",
	OUTER:     "OUTER",
	RIGHT:     "RIGHT",
	SELECT:    "SELECT",
	THEN:      "THEN",
	TRUE:      "TRUE",
	UNION:     "UNION",
	WHEN:      "WHEN",
	WHERE:     "WHERE",
	WITH:      "WITH",
	ALTER:     "ALTER",
	ATTACH:    "ATTACH",
	CALL:      "CALL",
	COPY:      "COPY",
	CREATE:    "CREATE",
	DELETE:    "DELETE",
	DETACH:    "DETACH",
	DROP:      "DROP",
	EXEC:      "EXEC",
	EXECUTE:   "EXECUTE",
	GRANT:     "GRANT",
	INSERT:    "INSERT",
	INTO:      "INTO",
	MERGE:     "MERGE",
	PRAGMA:    "PRAGMA",
	REPLACE:   "REPLACE",
	REVOKE:    "REVOKE",
	SET:       "SET",
	TRUNCATE:  "TRUNCATE",
	UPDATE:    "UPDATE",
	VACUUM:    "VACUUM",
	VALUES:    "VALUES",
}

// String returns a human-readable representation of the token type.
func (t Type) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// keywords maps lowercase identifiers to keyword token types.
var keywords = func() map[string]Type {
	m := make(map[string]Type, len(tokenNames))
	for t := ALL; t <= VALUES; t++ {
		m[strings.ToLower(tokenNames[t])] = t
	}
	return m
}()

// LookupIdent returns the keyword type for an identifier, or IDENT if the
// identifier is not a keyword. Matching is case-insensitive.
func LookupIdent(ident string) Type {
	if t, ok := keywords[strings.ToLower(ident)]; ok {
		return t
	}
	return IDENT
}

// Position is a location within the input text.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based byte offset
}

// Token is a single lexical token.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}

// CommentKind distinguishes line comments from block comments.
type CommentKind int

const (
	// LineComment is a -- comment running to end of line.
	LineComment CommentKind = iota
	// BlockComment is a /* ... */ comment.
	BlockComment
)

// Comment is a SQL comment collected during lexing. Comments never become
// tokens; the gate inspects them separately for truncation patterns.
type Comment struct {
	Kind       CommentKind
	Text       string
	Pos        Position
	End        Position
	Terminated bool // false for a block comment missing its closing */
}
