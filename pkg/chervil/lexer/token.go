package lexer

import (
	"fmt"
	"strconv"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
)

// TokenType represents different types of tokens.
type TokenType int

const (
	// Sentinel tokens
	LEX_ERROR TokenType = iota // a lexical error carried as data
	COMMENT                    // comment text (only when capture is enabled)
	RESERVED                   // a reserved symbol or keyword
	CUSTOM                     // an embedder-defined keyword/operator
	EOF                        // end of the input stream

	// Identifiers and literals
	IDENT  // add, foobar, x, y, ...
	INT    // 42, 0xFF, 0o17, 0b101, 1_000
	FLOAT  // 3.14159
	CHAR   // 'x'
	STRING // "foobar"

	// Brackets
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Operators
	PLUS        // +
	UNARY_PLUS  // + in unary position
	MINUS       // -
	UNARY_MINUS // - in unary position
	ASTERISK    // *
	SLASH       // /
	PERCENT     // %
	POWER       // ~
	LSHIFT      // <<
	RSHIFT      // >>
	SEMICOLON   // ;
	COLON       // :
	DOUBLECOLON // ::
	COMMA       // ,
	PERIOD      // .
	MAP_START   // #{
	ASSIGN      // =
	EQ          // ==
	NOT_EQ      // !=
	LT          // <
	GT          // >
	LTE         // <=
	GTE         // >=
	BANG        // !
	PIPE        // |
	OR          // ||
	CARET       // ^
	AMPERSAND   // &
	AND         // &&

	// Compound assignment
	PLUS_ASSIGN     // +=
	MINUS_ASSIGN    // -=
	ASTERISK_ASSIGN // *=
	SLASH_ASSIGN    // /=
	LSHIFT_ASSIGN   // <<=
	RSHIFT_ASSIGN   // >>=
	AND_ASSIGN      // &=
	OR_ASSIGN       // |=
	CARET_ASSIGN    // ^=
	PERCENT_ASSIGN  // %=
	POWER_ASSIGN    // ~=

	// Keywords
	TRUE     // true
	FALSE    // false
	LET      // let
	CONST    // const
	IF       // if
	ELSE     // else
	WHILE    // while
	LOOP     // loop
	FOR      // for
	IN       // in
	FUNCTION // fn
	PRIVATE  // private
	IMPORT   // import
	EXPORT   // export
	AS       // as
	CONTINUE // continue
	BREAK    // break
	RETURN   // return
	THROW    // throw
)

// Token represents a single token produced by the lexer. Literal carries
// the raw or canonical text; the typed payload fields are valid only for
// the matching literal kinds.
type Token struct {
	Type    TokenType
	Literal string
	Int     int64                // valid when Type == INT
	Float   float64              // valid when Type == FLOAT
	Char    rune                 // valid when Type == CHAR
	Err     *errors.ChervilError // valid when Type == LEX_ERROR
}

// tokenSyntax maps fixed token types to their canonical source spelling.
// Literal kinds (INT, STRING, ...) are not in this table.
var tokenSyntax = map[TokenType]string{
	LBRACE:          "{",
	RBRACE:          "}",
	LPAREN:          "(",
	RPAREN:          ")",
	LBRACKET:        "[",
	RBRACKET:        "]",
	PLUS:            "+",
	UNARY_PLUS:      "+",
	MINUS:           "-",
	UNARY_MINUS:     "-",
	ASTERISK:        "*",
	SLASH:           "/",
	PERCENT:         "%",
	POWER:           "~",
	LSHIFT:          "<<",
	RSHIFT:          ">>",
	SEMICOLON:       ";",
	COLON:           ":",
	DOUBLECOLON:     "::",
	COMMA:           ",",
	PERIOD:          ".",
	MAP_START:       "#{",
	ASSIGN:          "=",
	EQ:              "==",
	NOT_EQ:          "!=",
	LT:              "<",
	GT:              ">",
	LTE:             "<=",
	GTE:             ">=",
	BANG:            "!",
	PIPE:            "|",
	OR:              "||",
	CARET:           "^",
	AMPERSAND:       "&",
	AND:             "&&",
	PLUS_ASSIGN:     "+=",
	MINUS_ASSIGN:    "-=",
	ASTERISK_ASSIGN: "*=",
	SLASH_ASSIGN:    "/=",
	LSHIFT_ASSIGN:   "<<=",
	RSHIFT_ASSIGN:   ">>=",
	AND_ASSIGN:      "&=",
	OR_ASSIGN:       "|=",
	CARET_ASSIGN:    "^=",
	PERCENT_ASSIGN:  "%=",
	POWER_ASSIGN:    "~=",
	TRUE:            "true",
	FALSE:           "false",
	LET:             "let",
	CONST:           "const",
	IF:              "if",
	ELSE:            "else",
	WHILE:           "while",
	LOOP:            "loop",
	FOR:             "for",
	IN:              "in",
	FUNCTION:        "fn",
	PRIVATE:         "private",
	IMPORT:          "import",
	EXPORT:          "export",
	AS:              "as",
	CONTINUE:        "continue",
	BREAK:           "break",
	RETURN:          "return",
	THROW:           "throw",
	EOF:             "{EOF}",
}

// reservedSymbols are pieces of syntax borrowed from other languages that
// are recognized but rejected with a helpful message, unless the embedder
// registers them as custom operators.
var reservedSymbols = []string{
	"===", "!==", "->", "<-", "=>", ":=", "::<", "(*", "*)", "#",
}

// reservedWords are identifiers held back for possible future use.
var reservedWords = []string{
	"public", "new", "use", "module", "package", "var", "static", "shared",
	"with", "do", "each", "then", "goto", "exit", "switch", "match", "case",
	"try", "catch", "default", "void", "null", "nil", "spawn", "go", "sync",
	"async", "await", "yield",
}

// keywordFunctions are reserved words that the engine itself binds as
// functions (and which some embedders may override).
var keywordFunctions = []string{
	"print", "debug", "type_of", "eval", "Fn", "call", "curry", "is_shared",
	"this",
}

// fixedTokens is the reverse of tokenSyntax, excluding the unary operator
// variants (whose spellings collide with the binary forms) and EOF.
var fixedTokens = map[string]TokenType{}

// reservedSyntax is the set of all reserved spellings.
var reservedSyntax = map[string]struct{}{}

// keywordFunctionSet indexes keywordFunctions for lookup.
var keywordFunctionSet = map[string]struct{}{}

func init() {
	for tt, syntax := range tokenSyntax {
		switch tt {
		case UNARY_PLUS, UNARY_MINUS, EOF:
			continue
		}
		fixedTokens[syntax] = tt
	}
	for _, s := range reservedSymbols {
		reservedSyntax[s] = struct{}{}
	}
	for _, s := range reservedWords {
		reservedSyntax[s] = struct{}{}
	}
	for _, s := range keywordFunctions {
		reservedSyntax[s] = struct{}{}
		keywordFunctionSet[s] = struct{}{}
	}
}

// IsKeywordFunction reports whether name is a reserved word that the
// engine itself binds as a callable function (print, type_of, call, ...).
func IsKeywordFunction(name string) bool {
	_, ok := keywordFunctionSet[name]
	return ok
}

// Syntax returns the source spelling of the token. Fixed tokens return
// their canonical syntax; literal kinds return their text.
func (t Token) Syntax() string {
	switch t.Type {
	case INT:
		return strconv.FormatInt(t.Int, 10)
	case FLOAT:
		return strconv.FormatFloat(t.Float, 'g', -1, 64)
	case CHAR:
		return string(t.Char)
	case STRING:
		return "string"
	case IDENT, RESERVED, CUSTOM:
		return t.Literal
	case LEX_ERROR:
		return t.Err.Message
	default:
		if s, ok := tokenSyntax[t.Type]; ok {
			return s
		}
		return t.Literal
	}
}

// String returns a debug representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("{Type: %d, Literal: %q}", t.Type, t.Literal)
}

// IsEOF reports whether this token marks the end of the stream.
func (t Token) IsEOF() bool {
	return t.Type == EOF
}

// LookupFromSyntax reverse-looks-up a token from a piece of syntax.
// Reserved symbols and words come back as RESERVED tokens. Unknown syntax
// returns ok == false.
func LookupFromSyntax(syntax string) (Token, bool) {
	if tt, ok := fixedTokens[syntax]; ok {
		return Token{Type: tt, Literal: syntax}, true
	}
	if _, ok := reservedSyntax[syntax]; ok {
		return Token{Type: RESERVED, Literal: syntax}, true
	}
	return Token{}, false
}

// IsNextUnary reports whether an operator immediately following a token of
// this type should be classified as unary. A token that cannot end an
// expression (an open bracket, an operator, `if`, `return`, ...) leaves the
// lexer in unary-allowed state.
func (tt TokenType) IsNextUnary() bool {
	switch tt {
	case LEX_ERROR,
		LBRACE,   // {-expr} is unary
		LPAREN,   // (-expr) is unary
		LBRACKET, // [-expr] is unary
		PLUS, UNARY_PLUS, MINUS, UNARY_MINUS, ASTERISK, SLASH,
		COMMA, PERIOD, ASSIGN,
		LT, GT, LTE, GTE, EQ, NOT_EQ, BANG,
		PIPE, OR, AMPERSAND, AND,
		IF, WHILE,
		PLUS_ASSIGN, MINUS_ASSIGN, ASTERISK_ASSIGN, SLASH_ASSIGN,
		LSHIFT_ASSIGN, RSHIFT_ASSIGN, AND_ASSIGN, OR_ASSIGN, CARET_ASSIGN,
		LSHIFT, RSHIFT, CARET,
		PERCENT, PERCENT_ASSIGN,
		RETURN, THROW,
		POWER, POWER_ASSIGN,
		IN:
		return true
	}
	return false
}

// Precedence returns the binding power of the token when used as a binary
// operator. Assignments are not expressions and have precedence zero.
func (tt TokenType) Precedence() int {
	switch tt {
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, ASTERISK_ASSIGN, SLASH_ASSIGN,
		LSHIFT_ASSIGN, RSHIFT_ASSIGN, AND_ASSIGN, OR_ASSIGN, CARET_ASSIGN,
		PERCENT_ASSIGN, POWER_ASSIGN:
		return 0
	case OR, CARET, PIPE:
		return 30
	case AND, AMPERSAND:
		return 60
	case EQ, NOT_EQ:
		return 90
	case LT, LTE, GT, GTE:
		return 110
	case IN:
		return 130
	case PLUS, MINUS:
		return 150
	case SLASH, ASTERISK, POWER, PERCENT:
		return 180
	case LSHIFT, RSHIFT:
		return 210
	case PERIOD:
		return 240
	}
	return 0
}

// IsBindRight reports whether the operator binds to the right instead of
// the left (assignments and property access do).
func (tt TokenType) IsBindRight() bool {
	switch tt {
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, ASTERISK_ASSIGN, SLASH_ASSIGN,
		LSHIFT_ASSIGN, RSHIFT_ASSIGN, AND_ASSIGN, OR_ASSIGN, CARET_ASSIGN,
		PERCENT_ASSIGN, POWER_ASSIGN, PERIOD:
		return true
	}
	return false
}

// IsOperator reports whether this is an operator or punctuation token.
func (tt TokenType) IsOperator() bool {
	switch tt {
	case LBRACE, RBRACE, LPAREN, RPAREN, LBRACKET, RBRACKET,
		PLUS, UNARY_PLUS, MINUS, UNARY_MINUS, ASTERISK, SLASH, PERCENT,
		POWER, LSHIFT, RSHIFT, SEMICOLON, COLON, DOUBLECOLON, COMMA, PERIOD,
		MAP_START, ASSIGN, LT, GT, LTE, GTE, EQ, NOT_EQ, BANG, PIPE, OR,
		CARET, AMPERSAND, AND,
		PLUS_ASSIGN, MINUS_ASSIGN, ASTERISK_ASSIGN, SLASH_ASSIGN,
		LSHIFT_ASSIGN, RSHIFT_ASSIGN, AND_ASSIGN, OR_ASSIGN, CARET_ASSIGN,
		PERCENT_ASSIGN, POWER_ASSIGN:
		return true
	}
	return false
}

// IsKeyword reports whether this is an active standard keyword.
func (tt TokenType) IsKeyword() bool {
	switch tt {
	case TRUE, FALSE, LET, CONST, IF, ELSE, WHILE, LOOP, FOR, IN,
		FUNCTION, PRIVATE, IMPORT, EXPORT, AS,
		CONTINUE, BREAK, RETURN, THROW:
		return true
	}
	return false
}

// IsValidIdentifier reports whether name is a proper identifier: leading
// underscores are allowed, but an alphabetic character must appear, and
// everything after it must be alphanumeric or underscore.
func IsValidIdentifier(name string) bool {
	firstAlphabetic := false
	for _, ch := range name {
		switch {
		case ch == '_':
			// allowed anywhere
		case isIDFirstAlphabetic(ch):
			firstAlphabetic = true
		case !firstAlphabetic:
			return false
		case isASCIIAlphanumeric(ch):
			// allowed after the first alphabetic
		default:
			return false
		}
	}
	return firstAlphabetic
}

func isIDFirstAlphabetic(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIDContinue(ch rune) bool {
	return isASCIIAlphanumeric(ch) || ch == '_'
}

func isASCIIAlphanumeric(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
