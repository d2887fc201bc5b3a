// Package lexer implements the Chervil tokenizer: a resumable state machine
// that converts one or more concatenated character streams into a lazy
// sequence of (Token, Position) pairs.
//
// Lexical errors never abort the stream; they are emitted as LEX_ERROR
// tokens carrying a structured error, and the stream always terminates
// normally with EOF (or an absence, per TokenizeState.EndWithNone).
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
)

// TokenizeState is the per-session mutable state of the tokenizer.
type TokenizeState struct {
	MaxStringSize   int  // maximum length of a string literal (0 = unlimited)
	NonUnary        bool // can the next operator NOT be unary?
	CommentLevel    int  // open block-comment nesting depth
	EndWithNone     bool // signal end of stream as an absence instead of EOF
	IncludeComments bool // emit COMMENT tokens
}

// Lexer scans one or more input strings as a single logical stream,
// yielding one token per NextToken call. It retains exactly enough state
// (TokenizeState, Position, stream cursor) to resume, including in the
// middle of a block comment.
type Lexer struct {
	State TokenizeState

	inputs []string
	index  int // current input stream
	offset int // byte offset within the current stream

	pos Position

	custom   map[string]int // custom keywords/operators -> precedence
	disabled map[string]struct{}
}

// New creates a lexer over one or more concatenated input streams.
func New(inputs ...string) *Lexer {
	return &Lexer{
		inputs: inputs,
		pos:    NewPosition(1, 0),
	}
}

// SetCustomKeywords registers embedder-defined keywords/operators with
// their precedences. A custom keyword reclassifies what would otherwise be
// a reserved symbol or a plain identifier into a CUSTOM token.
func (l *Lexer) SetCustomKeywords(custom map[string]int) {
	l.custom = custom
}

// SetDisabledSymbols marks standard keywords/operators as disabled for
// this session. A disabled operator lexes as an unexpected-input error; a
// disabled keyword that is not custom lexes as RESERVED.
func (l *Lexer) SetDisabledSymbols(disabled map[string]struct{}) {
	l.disabled = disabled
}

// Position returns the lexer's current position.
func (l *Lexer) Position() Position {
	return l.pos
}

// getNext consumes the next character, hopping across stream boundaries.
func (l *Lexer) getNext() (rune, bool) {
	for l.index < len(l.inputs) {
		if l.offset < len(l.inputs[l.index]) {
			r, size := utf8.DecodeRuneInString(l.inputs[l.index][l.offset:])
			l.offset += size
			return r, true
		}
		l.index++
		l.offset = 0
	}
	return 0, false
}

// peekNext returns the next character without consuming it.
func (l *Lexer) peekNext() (rune, bool) {
	index, offset := l.index, l.offset
	for index < len(l.inputs) {
		if offset < len(l.inputs[index]) {
			r, _ := utf8.DecodeRuneInString(l.inputs[index][offset:])
			return r, true
		}
		index++
		offset = 0
	}
	return 0, false
}

// eatNext consumes the next character and advances the position.
func (l *Lexer) eatNext() (rune, bool) {
	l.pos.Advance()
	return l.getNext()
}

func lexErrorToken(code string, data map[string]any) Token {
	err := errors.New(code, data)
	return Token{Type: LEX_ERROR, Literal: err.Message, Err: err}
}

func improperSymbol(msg string) Token {
	return lexErrorToken("LEX-0008", map[string]any{"Message": msg})
}

// NextToken scans the input and returns the next (token, position) pair.
// ok is false only at end of stream when EndWithNone is set; otherwise the
// stream terminates with an explicit EOF token.
func (l *Lexer) NextToken() (Token, Position, bool) {
	tok, pos, ok := l.nextTokenInner()
	if !ok {
		return tok, pos, false
	}

	// Track whether the next operator would be in unary position.
	l.State.NonUnary = !tok.Type.IsNextUnary()

	return l.reclassify(tok), pos, true
}

// reclassify applies the per-engine custom-keyword and disabled-symbol
// configuration layered on top of the immutable token tables.
func (l *Lexer) reclassify(tok Token) Token {
	isCustom := func(s string) bool {
		_, ok := l.custom[s]
		return ok
	}
	isDisabled := func(s string) bool {
		_, ok := l.disabled[s]
		return ok
	}

	switch {
	case tok.Type == RESERVED:
		s := tok.Literal
		if isCustom(s) {
			return Token{Type: CUSTOM, Literal: s}
		}
		switch s {
		case "===":
			return improperSymbol("'===' is not a valid operator. This is not JavaScript! Should it be '=='?")
		case "!==":
			return improperSymbol("'!==' is not a valid operator. This is not JavaScript! Should it be '!='?")
		case "->":
			return improperSymbol("'->' is not a valid symbol. This is not C or C++!")
		case "<-":
			return improperSymbol("'<-' is not a valid symbol. This is not Go! Should it be '<='?")
		case "=>":
			return improperSymbol("'=>' is not a valid symbol. This is not Rust! Should it be '>='?")
		case ":=":
			return improperSymbol("':=' is not a valid assignment operator. This is not Go! Should it be simply '='?")
		case "::<":
			return improperSymbol("'::<>' is not a valid symbol. This is not Rust! Should it be '::'?")
		case "(*", "*)":
			return improperSymbol("'(* .. *)' is not a valid comment format. This is not Pascal! Should it be '/* .. */'?")
		case "#":
			return improperSymbol("'#' is not a valid symbol. Should it be '#{'?")
		}
		if !IsValidIdentifier(s) {
			return improperSymbol("'" + s + "' is a reserved symbol")
		}
		if isDisabled(s) {
			return improperSymbol("reserved symbol '" + s + "' is disabled")
		}
		return tok

	case tok.Type == IDENT && isCustom(tok.Literal):
		return Token{Type: CUSTOM, Literal: tok.Literal}

	case tok.Type.IsKeyword() && isCustom(tok.Syntax()):
		// A standard keyword may only be custom once it has been disabled,
		// so it can be redefined as a function name.
		if isDisabled(tok.Syntax()) {
			return Token{Type: CUSTOM, Literal: tok.Syntax()}
		}
		return tok

	case tok.Type.IsOperator() && isDisabled(tok.Syntax()):
		return lexErrorToken("LEX-0001", map[string]any{"Input": tok.Syntax()})

	case tok.Type.IsKeyword() && isDisabled(tok.Syntax()):
		return Token{Type: RESERVED, Literal: tok.Syntax()}
	}

	return tok
}

func (l *Lexer) nextTokenInner() (Token, Position, bool) {
	// Still inside a block comment? Resume scanning before producing
	// fresh tokens.
	if l.State.CommentLevel > 0 {
		startPos := l.pos
		var comment strings.Builder
		l.scanComment(&comment)

		if l.State.IncludeComments {
			return Token{Type: COMMENT, Literal: comment.String()}, startPos, true
		}
	}

	negated := false

	for {
		c, ok := l.getNext()
		if !ok {
			break
		}
		l.pos.Advance()
		startPos := l.pos

		peek, _ := l.peekNext()

		switch {
		case c == '\n':
			l.pos.NewLine()

		case c >= '0' && c <= '9':
			return l.scanNumber(c, negated), startPos, true

		case isIDFirstAlphabetic(c) || c == '_':
			return l.scanIdentifier(c), startPos, true

		case c == '"':
			s, errTok, errPos := l.scanStringLiteral('"')
			if errTok != nil {
				return *errTok, errPos, true
			}
			return Token{Type: STRING, Literal: s}, startPos, true

		case c == '\'':
			if peek == '\'' {
				l.eatNext()
				return lexErrorToken("LEX-0004", map[string]any{"Literal": ""}), startPos, true
			}
			s, errTok, errPos := l.scanStringLiteral('\'')
			if errTok != nil {
				return *errTok, errPos, true
			}
			first, size := utf8.DecodeRuneInString(s)
			if size == 0 || size < len(s) {
				return lexErrorToken("LEX-0004", map[string]any{"Literal": s}), startPos, true
			}
			return Token{Type: CHAR, Literal: s, Char: first}, startPos, true

		case c == '{':
			return Token{Type: LBRACE, Literal: "{"}, startPos, true
		case c == '}':
			return Token{Type: RBRACE, Literal: "}"}, startPos, true

		case c == '(' && peek == '*':
			l.eatNext()
			return Token{Type: RESERVED, Literal: "(*"}, startPos, true
		case c == '(':
			return Token{Type: LPAREN, Literal: "("}, startPos, true
		case c == ')':
			return Token{Type: RPAREN, Literal: ")"}, startPos, true

		case c == '[':
			return Token{Type: LBRACKET, Literal: "["}, startPos, true
		case c == ']':
			return Token{Type: RBRACKET, Literal: "]"}, startPos, true

		case c == '#' && peek == '{':
			l.eatNext()
			return Token{Type: MAP_START, Literal: "#{"}, startPos, true
		case c == '#':
			return Token{Type: RESERVED, Literal: "#"}, startPos, true

		case c == '+' && peek == '=':
			l.eatNext()
			return Token{Type: PLUS_ASSIGN, Literal: "+="}, startPos, true
		case c == '+' && !l.State.NonUnary:
			return Token{Type: UNARY_PLUS, Literal: "+"}, startPos, true
		case c == '+':
			return Token{Type: PLUS, Literal: "+"}, startPos, true

		case c == '-' && peek >= '0' && peek <= '9' && !l.State.NonUnary:
			// Fold a leading minus directly into the numeric literal.
			negated = true
		case c == '-' && peek >= '0' && peek <= '9':
			return Token{Type: MINUS, Literal: "-"}, startPos, true
		case c == '-' && peek == '=':
			l.eatNext()
			return Token{Type: MINUS_ASSIGN, Literal: "-="}, startPos, true
		case c == '-' && peek == '>':
			l.eatNext()
			return Token{Type: RESERVED, Literal: "->"}, startPos, true
		case c == '-' && !l.State.NonUnary:
			return Token{Type: UNARY_MINUS, Literal: "-"}, startPos, true
		case c == '-':
			return Token{Type: MINUS, Literal: "-"}, startPos, true

		case c == '*' && peek == ')':
			l.eatNext()
			return Token{Type: RESERVED, Literal: "*)"}, startPos, true
		case c == '*' && peek == '=':
			l.eatNext()
			return Token{Type: ASTERISK_ASSIGN, Literal: "*="}, startPos, true
		case c == '*':
			return Token{Type: ASTERISK, Literal: "*"}, startPos, true

		case c == '/' && peek == '/':
			l.eatNext()
			if tok, ok := l.scanLineComment(); ok {
				return tok, startPos, true
			}
		case c == '/' && peek == '*':
			l.State.CommentLevel = 1
			l.eatNext()

			var comment strings.Builder
			if l.State.IncludeComments {
				comment.WriteString("/*")
			}
			l.scanComment(&comment)

			if l.State.IncludeComments {
				return Token{Type: COMMENT, Literal: comment.String()}, startPos, true
			}
		case c == '/' && peek == '=':
			l.eatNext()
			return Token{Type: SLASH_ASSIGN, Literal: "/="}, startPos, true
		case c == '/':
			return Token{Type: SLASH, Literal: "/"}, startPos, true

		case c == ';':
			return Token{Type: SEMICOLON, Literal: ";"}, startPos, true
		case c == ',':
			return Token{Type: COMMA, Literal: ","}, startPos, true
		case c == '.':
			return Token{Type: PERIOD, Literal: "."}, startPos, true

		case c == '=' && peek == '=':
			l.eatNext()
			if p, _ := l.peekNext(); p == '=' {
				l.eatNext()
				return Token{Type: RESERVED, Literal: "==="}, startPos, true
			}
			return Token{Type: EQ, Literal: "=="}, startPos, true
		case c == '=' && peek == '>':
			l.eatNext()
			return Token{Type: RESERVED, Literal: "=>"}, startPos, true
		case c == '=':
			return Token{Type: ASSIGN, Literal: "="}, startPos, true

		case c == ':' && peek == ':':
			l.eatNext()
			if p, _ := l.peekNext(); p == '<' {
				l.eatNext()
				return Token{Type: RESERVED, Literal: "::<"}, startPos, true
			}
			return Token{Type: DOUBLECOLON, Literal: "::"}, startPos, true
		case c == ':' && peek == '=':
			l.eatNext()
			return Token{Type: RESERVED, Literal: ":="}, startPos, true
		case c == ':':
			return Token{Type: COLON, Literal: ":"}, startPos, true

		case c == '<' && peek == '=':
			l.eatNext()
			return Token{Type: LTE, Literal: "<="}, startPos, true
		case c == '<' && peek == '-':
			l.eatNext()
			return Token{Type: RESERVED, Literal: "<-"}, startPos, true
		case c == '<' && peek == '<':
			l.eatNext()
			if p, _ := l.peekNext(); p == '=' {
				l.eatNext()
				return Token{Type: LSHIFT_ASSIGN, Literal: "<<="}, startPos, true
			}
			return Token{Type: LSHIFT, Literal: "<<"}, startPos, true
		case c == '<':
			return Token{Type: LT, Literal: "<"}, startPos, true

		case c == '>' && peek == '=':
			l.eatNext()
			return Token{Type: GTE, Literal: ">="}, startPos, true
		case c == '>' && peek == '>':
			l.eatNext()
			if p, _ := l.peekNext(); p == '=' {
				l.eatNext()
				return Token{Type: RSHIFT_ASSIGN, Literal: ">>="}, startPos, true
			}
			return Token{Type: RSHIFT, Literal: ">>"}, startPos, true
		case c == '>':
			return Token{Type: GT, Literal: ">"}, startPos, true

		case c == '!' && peek == '=':
			l.eatNext()
			if p, _ := l.peekNext(); p == '=' {
				l.eatNext()
				return Token{Type: RESERVED, Literal: "!=="}, startPos, true
			}
			return Token{Type: NOT_EQ, Literal: "!="}, startPos, true
		case c == '!':
			return Token{Type: BANG, Literal: "!"}, startPos, true

		case c == '|' && peek == '|':
			l.eatNext()
			return Token{Type: OR, Literal: "||"}, startPos, true
		case c == '|' && peek == '=':
			l.eatNext()
			return Token{Type: OR_ASSIGN, Literal: "|="}, startPos, true
		case c == '|':
			return Token{Type: PIPE, Literal: "|"}, startPos, true

		case c == '&' && peek == '&':
			l.eatNext()
			return Token{Type: AND, Literal: "&&"}, startPos, true
		case c == '&' && peek == '=':
			l.eatNext()
			return Token{Type: AND_ASSIGN, Literal: "&="}, startPos, true
		case c == '&':
			return Token{Type: AMPERSAND, Literal: "&"}, startPos, true

		case c == '^' && peek == '=':
			l.eatNext()
			return Token{Type: CARET_ASSIGN, Literal: "^="}, startPos, true
		case c == '^':
			return Token{Type: CARET, Literal: "^"}, startPos, true

		case c == '%' && peek == '=':
			l.eatNext()
			return Token{Type: PERCENT_ASSIGN, Literal: "%="}, startPos, true
		case c == '%':
			return Token{Type: PERCENT, Literal: "%"}, startPos, true

		case c == '~' && peek == '=':
			l.eatNext()
			return Token{Type: POWER_ASSIGN, Literal: "~="}, startPos, true
		case c == '~':
			return Token{Type: POWER, Literal: "~"}, startPos, true

		case c == '@':
			return Token{Type: RESERVED, Literal: "@"}, startPos, true

		case unicode.IsSpace(c):
			// skip

		default:
			return lexErrorToken("LEX-0001", map[string]any{"Input": string(c)}), startPos, true
		}
	}

	l.pos.Advance()

	if l.State.EndWithNone {
		return Token{}, l.pos, false
	}
	return Token{Type: EOF, Literal: "{EOF}"}, l.pos, true
}

// scanLineComment consumes a // comment to end of line. The leading //
// has already been consumed. Returns a COMMENT token only when capture is
// enabled.
func (l *Lexer) scanLineComment() (Token, bool) {
	var comment strings.Builder
	if l.State.IncludeComments {
		comment.WriteString("//")
	}

	for {
		c, ok := l.getNext()
		if !ok {
			break
		}
		if c == '\n' {
			l.pos.NewLine()
			break
		}
		if l.State.IncludeComments {
			comment.WriteRune(c)
		}
		l.pos.Advance()
	}

	if l.State.IncludeComments {
		return Token{Type: COMMENT, Literal: comment.String()}, true
	}
	return Token{}, false
}

// scanComment scans a block comment until its nesting depth returns to
// zero, retaining the raw text (including nested markers) when capture is
// enabled. The lexer may stop mid-comment at end of input and resume on a
// later stream, which is why CommentLevel lives in TokenizeState.
func (l *Lexer) scanComment(comment *strings.Builder) {
	for {
		c, ok := l.getNext()
		if !ok {
			return
		}
		l.pos.Advance()

		if l.State.IncludeComments {
			comment.WriteRune(c)
		}

		switch c {
		case '/':
			if c2, ok := l.peekNext(); ok && c2 == '*' {
				l.getNext()
				l.pos.Advance()
				if l.State.IncludeComments {
					comment.WriteRune(c2)
				}
				l.State.CommentLevel++
			}
		case '*':
			if c2, ok := l.peekNext(); ok && c2 == '/' {
				l.getNext()
				l.pos.Advance()
				if l.State.IncludeComments {
					comment.WriteRune(c2)
				}
				l.State.CommentLevel--
			}
		case '\n':
			l.pos.NewLine()
		}

		if l.State.CommentLevel == 0 {
			return
		}
	}
}

// scanNumber scans a numeric literal starting with digit c. A folded
// leading minus (negated) becomes part of the literal text. An invalid
// digit for the current radix terminates the literal.
func (l *Lexer) scanNumber(c rune, negated bool) Token {
	result := []rune{c}
	radix := 0
	valid := isDecimalChar

	for {
		next, ok := l.peekNext()
		if !ok {
			break
		}

		switch {
		case valid(next) || next == '_':
			result = append(result, next)
			l.eatNext()

		case next == '.' && radix == 0:
			result = append(result, next)
			l.eatNext()
			for {
				f, ok := l.peekNext()
				if !ok || (!isDecimalChar(f) && f != '_') {
					break
				}
				result = append(result, f)
				l.eatNext()
			}

		case c == '0' && radix == 0 && (next == 'x' || next == 'X' || next == 'o' || next == 'O' || next == 'b' || next == 'B'):
			switch next {
			case 'x', 'X':
				valid, radix = isHexChar, 16
			case 'o', 'O':
				valid, radix = isOctalChar, 8
			default:
				valid, radix = isBinaryChar, 2
			}
			result = append(result, next)
			l.eatNext()

		default:
			goto done
		}
	}
done:

	if negated {
		result = append([]rune{'-'}, result...)
	}
	raw := string(result)

	if radix != 0 {
		// Drop the radix prefix before conversion.
		out := strings.ReplaceAll(raw[2:], "_", "")
		n, err := strconv.ParseInt(out, radix, 64)
		if err != nil {
			return lexErrorToken("LEX-0003", map[string]any{"Literal": raw})
		}
		return Token{Type: INT, Literal: raw, Int: n}
	}

	out := strings.ReplaceAll(raw, "_", "")
	if n, err := strconv.ParseInt(out, 10, 64); err == nil {
		return Token{Type: INT, Literal: raw, Int: n}
	}
	if f, err := strconv.ParseFloat(out, 64); err == nil {
		return Token{Type: FLOAT, Literal: raw, Float: f}
	}
	return lexErrorToken("LEX-0003", map[string]any{"Literal": raw})
}

// scanIdentifier greedily consumes identifier characters and resolves the
// result against the fixed syntax table.
func (l *Lexer) scanIdentifier(first rune) Token {
	var result []rune
	result = append(result, first)

	for {
		next, ok := l.peekNext()
		if !ok || !isIDContinue(next) {
			break
		}
		result = append(result, next)
		l.eatNext()
	}

	identifier := string(result)

	if !IsValidIdentifier(identifier) {
		return lexErrorToken("LEX-0005", map[string]any{"Name": identifier})
	}

	if tok, ok := LookupFromSyntax(identifier); ok {
		return tok
	}
	return Token{Type: IDENT, Literal: identifier}
}

// scanStringLiteral parses a string literal wrapped by enclosing. The
// opening quote has already been consumed. On failure the error token and
// its position are returned instead of a value.
func (l *Lexer) scanStringLiteral(enclosing rune) (string, *Token, Position) {
	var result []rune
	var escape []rune

	fail := func(code string, data map[string]any) (string, *Token, Position) {
		tok := lexErrorToken(code, data)
		return "", &tok, l.pos
	}

	for {
		ch, ok := l.getNext()
		if !ok {
			return fail("LEX-0006", nil)
		}
		l.pos.Advance()

		if l.State.MaxStringSize > 0 && len(result) > l.State.MaxStringSize {
			return fail("LEX-0007", map[string]any{"Max": l.State.MaxStringSize})
		}

		switch {
		case ch == '\\' && len(escape) == 0:
			escape = append(escape, '\\')
		case ch == '\\':
			escape = nil
			result = append(result, '\\')

		case ch == 't' && len(escape) > 0:
			escape = nil
			result = append(result, '\t')
		case ch == 'n' && len(escape) > 0:
			escape = nil
			result = append(result, '\n')
		case ch == 'r' && len(escape) > 0:
			escape = nil
			result = append(result, '\r')

		case (ch == 'x' || ch == 'u' || ch == 'U') && len(escape) > 0:
			seq := append(append([]rune{}, escape...), ch)
			escape = nil

			var digits int
			switch ch {
			case 'x':
				digits = 2
			case 'u':
				digits = 4
			default:
				digits = 8
			}

			var out rune
			for i := 0; i < digits; i++ {
				c, ok := l.getNext()
				if !ok {
					return fail("LEX-0002", map[string]any{"Sequence": string(seq)})
				}
				seq = append(seq, c)
				l.pos.Advance()

				d := hexDigit(c)
				if d < 0 {
					return fail("LEX-0002", map[string]any{"Sequence": string(seq)})
				}
				out = out*16 + rune(d)
			}
			if !utf8.ValidRune(out) {
				return fail("LEX-0002", map[string]any{"Sequence": string(seq)})
			}
			result = append(result, out)

		case ch == enclosing && len(escape) > 0:
			escape = nil
			result = append(result, ch)

		case ch == enclosing:
			s := string(result)
			if l.State.MaxStringSize > 0 && len(s) > l.State.MaxStringSize {
				return fail("LEX-0007", map[string]any{"Max": l.State.MaxStringSize})
			}
			return s, nil, Position{}

		case len(escape) > 0:
			return fail("LEX-0002", map[string]any{"Sequence": string(append(escape, ch))})

		case ch == '\n':
			// A raw newline cannot appear inside a string literal.
			l.pos.Rewind()
			return fail("LEX-0006", nil)

		default:
			escape = nil
			result = append(result, ch)
		}
	}
}

func hexDigit(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func isDecimalChar(c rune) bool {
	return c >= '0' && c <= '9'
}

func isHexChar(c rune) bool {
	return hexDigit(c) >= 0
}

func isOctalChar(c rune) bool {
	return c >= '0' && c <= '7'
}

func isBinaryChar(c rune) bool {
	return c == '0' || c == '1'
}
