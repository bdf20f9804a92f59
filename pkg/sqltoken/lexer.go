package sqltoken

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	// Comments collected during lexing
	Comments []Comment
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Lex tokenizes the whole input and returns the token stream (terminated by
// an EOF token) plus any comments encountered.
func Lex(input string) ([]Token, []Comment) {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, l.Comments
		}
	}
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()

	var tok Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = EOF
		tok.Literal = ""
	case '+':
		tok = l.newToken(PLUS, "+")
	case '-':
		tok = l.newToken(MINUS, "-")
	case '*':
		tok = l.newToken(STAR, "*")
	case '/':
		tok = l.newToken(SLASH, "/")
	case '%':
		tok = l.newToken(PERCENT, "%")
	case '=':
		tok = l.newToken(EQ, "=")
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: LE, Literal: "<=", Pos: pos}
		case '>':
			l.readChar()
			tok = Token{Type: NE, Literal: "<>", Pos: pos}
		default:
			tok = l.newToken(LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(GT, ">")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: NE, Literal: "!=", Pos: pos}
		} else {
			tok = l.newToken(ILLEGAL, string(l.ch))
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = Token{Type: DPIPE, Literal: "||", Pos: pos}
		} else {
			tok = l.newToken(ILLEGAL, string(l.ch))
		}
	case '.':
		tok = l.newToken(DOT, ".")
	case ',':
		tok = l.newToken(COMMA, ",")
	case '(':
		tok = l.newToken(LPAREN, "(")
	case ')':
		tok = l.newToken(RPAREN, ")")
	case ';':
		tok = l.newToken(SEMICOLON, ";")
	case '\'':
		lit, ok := l.readString()
		if !ok {
			// A quote with no closing partner. Emitting ILLEGAL and continuing
			// lets later tokens (e.g. a smuggled DROP) still be seen by the
			// safety gate instead of being swallowed into a bogus literal.
			tok = Token{Type: ILLEGAL, Literal: "'", Pos: pos}
			l.readChar()
			return tok
		}
		tok.Type = STRING
		tok.Literal = lit
		tok.Pos = pos
		return tok
	case '"':
		// Quoted identifier (ANSI style)
		tok.Type = IDENT
		tok.Literal = l.readQuotedIdentifier()
		tok.Pos = pos
		return tok
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			tok.Pos = pos
			return tok
		case isDigit(l.ch):
			tok.Type = NUMBER
			tok.Literal = l.readNumber()
			tok.Pos = pos
			return tok
		default:
			tok = l.newToken(ILLEGAL, string(l.ch))
		}
	}

	l.readChar()
	return tok
}

// newToken creates a new token.
func (l *Lexer) newToken(tokenType Type, literal string) Token {
	return Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespaceAndComments skips whitespace and collects comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			l.collectLineComment()
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.collectBlockComment()
			continue
		}

		break
	}
}

// collectLineComment collects a -- comment.
func (l *Lexer) collectLineComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}

	l.Comments = append(l.Comments, Comment{
		Kind:       LineComment,
		Text:       l.input[startOffset:l.pos],
		Pos:        startPos,
		End:        l.currentPos(),
		Terminated: l.ch == '\n',
	})
}

// collectBlockComment collects a /* ... */ comment.
func (l *Lexer) collectBlockComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	l.readChar() // skip '/'
	l.readChar() // skip '*'

	terminated := false
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // skip '*'
			l.readChar() // skip '/'
			terminated = true
			break
		}
		l.readChar()
	}

	l.Comments = append(l.Comments, Comment{
		Kind:       BlockComment,
		Text:       l.input[startOffset:l.pos],
		Pos:        startPos,
		End:        l.currentPos(),
		Terminated: terminated,
	})
}

// readString reads a single-quoted string literal and returns its contents.
// Doubled quotes ('') are the SQL escape for a literal quote. Returns false
// without consuming anything past the opening quote if no closing quote
// exists.
func (l *Lexer) readString() (string, bool) {
	// Scan ahead for a closing quote before consuming.
	i := l.pos + 1
	for i < len(l.input) {
		if l.input[i] == '\'' {
			if i+1 < len(l.input) && l.input[i+1] == '\'' {
				i += 2
				continue
			}
			break
		}
		i++
	}
	if i >= len(l.input) {
		return "", false
	}

	start := l.pos + 1
	for {
		l.readChar()
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				l.readChar()
				continue
			}
			break
		}
	}
	s := l.input[start:l.pos]
	l.readChar() // skip closing quote
	return s, true
}

// readQuotedIdentifier reads a double-quoted identifier.
func (l *Lexer) readQuotedIdentifier() string {
	start := l.pos + 1
	for {
		l.readChar()
		if l.ch == '"' || l.ch == 0 {
			break
		}
	}
	s := l.input[start:l.pos]
	if l.ch == '"' {
		l.readChar() // skip closing quote
	}
	return s
}

// readIdentifier reads an identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or exponent form).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		if isDigit(l.peekChar()) {
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
