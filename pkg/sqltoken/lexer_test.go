package sqltoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(toks []Token) []Type {
	types := make([]Type, 0, len(toks))
	for _, t := range toks {
		types = append(types, t.Type)
	}
	return types
}

func TestLex_SimpleSelect(t *testing.T) {
	toks, comments := Lex("SELECT vendor_id, COUNT(*) AS trips FROM taxi_trips;")

	assert.Empty(t, comments)
	assert.Equal(t, []Type{
		SELECT, IDENT, COMMA, IDENT, LPAREN, STAR, RPAREN, AS, IDENT,
		FROM, IDENT, SEMICOLON, EOF,
	}, tokenTypes(toks))
	assert.Equal(t, "vendor_id", toks[1].Literal)
	assert.Equal(t, "taxi_trips", toks[10].Literal)
}

func TestLex_KeywordsCaseInsensitive(t *testing.T) {
	toks, _ := Lex("select * from t where x = 1 OR y != 2")

	types := tokenTypes(toks)
	assert.Equal(t, []Type{
		SELECT, STAR, FROM, IDENT, WHERE, IDENT, EQ, NUMBER, OR, IDENT, NE, NUMBER, EOF,
	}, types)
}

func TestLex_StringLiterals(t *testing.T) {
	toks, _ := Lex("WHERE pickup_datetime >= '2022-01-01'")

	require.Len(t, toks, 5)
	assert.Equal(t, STRING, toks[3].Type)
	assert.Equal(t, "2022-01-01", toks[3].Literal)
}

func TestLex_EscapedQuoteInString(t *testing.T) {
	toks, _ := Lex("SELECT 'it''s fine'")

	require.Len(t, toks, 3)
	assert.Equal(t, STRING, toks[1].Type)
	assert.Equal(t, "it''s fine", toks[1].Literal)
}

func TestLex_KeywordInsideIdentifierIsNotKeyword(t *testing.T) {
	// "dropped_trips" contains "drop" but must lex as a single identifier.
	toks, _ := Lex("SELECT dropped_trips FROM updates_log")

	assert.Equal(t, []Type{SELECT, IDENT, FROM, IDENT, EOF}, tokenTypes(toks))
}

func TestLex_MutatingVerbsAreKeywords(t *testing.T) {
	toks, _ := Lex("DROP TABLE taxi_trips")

	assert.Equal(t, DROP, toks[0].Type)

	toks, _ = Lex("pragma table_info")
	assert.Equal(t, PRAGMA, toks[0].Type)
}

func TestLex_UnterminatedQuoteRecovers(t *testing.T) {
	// A lone quote must not swallow the rest of the input; the tokens after
	// it (here a DROP) still need to be visible to callers.
	toks, _ := Lex("'; DROP TABLE taxi_trips; --")

	assert.Equal(t, ILLEGAL, toks[0].Type)
	assert.Contains(t, tokenTypes(toks), DROP)
}

func TestLex_LineComment(t *testing.T) {
	toks, comments := Lex("SELECT 1 -- trailing\n")

	assert.Equal(t, []Type{SELECT, NUMBER, EOF}, tokenTypes(toks))
	require.Len(t, comments, 1)
	assert.Equal(t, LineComment, comments[0].Kind)
	assert.True(t, comments[0].Terminated)
}

func TestLex_TrailingLineCommentUnterminated(t *testing.T) {
	_, comments := Lex("SELECT 1 --")

	require.Len(t, comments, 1)
	assert.False(t, comments[0].Terminated, "comment running to EOF should be unterminated")
}

func TestLex_BlockComment(t *testing.T) {
	toks, comments := Lex("SELECT /* hi */ 1")

	assert.Equal(t, []Type{SELECT, NUMBER, EOF}, tokenTypes(toks))
	require.Len(t, comments, 1)
	assert.Equal(t, BlockComment, comments[0].Kind)
	assert.True(t, comments[0].Terminated)

	_, comments = Lex("SELECT 1 /* open")
	require.Len(t, comments, 1)
	assert.False(t, comments[0].Terminated)
}

func TestLex_Numbers(t *testing.T) {
	toks, _ := Lex("SELECT 1, 45.67, 1e10")

	assert.Equal(t, "1", toks[1].Literal)
	assert.Equal(t, "45.67", toks[3].Literal)
	assert.Equal(t, "1e10", toks[5].Literal)
}

func TestLex_Positions(t *testing.T) {
	toks, _ := Lex("SELECT x\nFROM t")

	assert.Equal(t, 1, toks[0].Pos.Line)
	assert.Equal(t, 2, toks[2].Pos.Line, "FROM should be on line 2")
}

func TestLookupIdent(t *testing.T) {
	assert.Equal(t, SELECT, LookupIdent("Select"))
	assert.Equal(t, DELETE, LookupIdent("DELETE"))
	assert.Equal(t, IDENT, LookupIdent("vendor_id"))
}
