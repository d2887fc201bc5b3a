package lexer

import (
	"strings"
	"testing"
)

func lexAll(l *Lexer) []Token {
	var tokens []Token
	for {
		tok, _, ok := l.NextToken()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

func TestNextToken(t *testing.T) {
	input := `let five = 5;
let pi = 3.14;
const big = 1_000_000;

fn add(x, y) {
	x + y
}

let result = add(five, big);
if result >= 10 && result != 0 {
	result += 1;
} else {
	result = -1;
}

let list = [1, 2, 3];
let map = #{a: 1, b: "two"};
for x in list {
	print(x);
}
while true { break; }
item.value::get
`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{LET, "let"},
		{IDENT, "five"},
		{ASSIGN, "="},
		{INT, "5"},
		{SEMICOLON, ";"},
		{LET, "let"},
		{IDENT, "pi"},
		{ASSIGN, "="},
		{FLOAT, "3.14"},
		{SEMICOLON, ";"},
		{CONST, "const"},
		{IDENT, "big"},
		{ASSIGN, "="},
		{INT, "1_000_000"},
		{SEMICOLON, ";"},
		{FUNCTION, "fn"},
		{IDENT, "add"},
		{LPAREN, "("},
		{IDENT, "x"},
		{COMMA, ","},
		{IDENT, "y"},
		{RPAREN, ")"},
		{LBRACE, "{"},
		{IDENT, "x"},
		{PLUS, "+"},
		{IDENT, "y"},
		{RBRACE, "}"},
		{LET, "let"},
		{IDENT, "result"},
		{ASSIGN, "="},
		{IDENT, "add"},
		{LPAREN, "("},
		{IDENT, "five"},
		{COMMA, ","},
		{IDENT, "big"},
		{RPAREN, ")"},
		{SEMICOLON, ";"},
		{IF, "if"},
		{IDENT, "result"},
		{GTE, ">="},
		{INT, "10"},
		{AND, "&&"},
		{IDENT, "result"},
		{NOT_EQ, "!="},
		{INT, "0"},
		{LBRACE, "{"},
		{IDENT, "result"},
		{PLUS_ASSIGN, "+="},
		{INT, "1"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{ELSE, "else"},
		{LBRACE, "{"},
		{IDENT, "result"},
		{ASSIGN, "="},
		{INT, "-1"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{LET, "let"},
		{IDENT, "list"},
		{ASSIGN, "="},
		{LBRACKET, "["},
		{INT, "1"},
		{COMMA, ","},
		{INT, "2"},
		{COMMA, ","},
		{INT, "3"},
		{RBRACKET, "]"},
		{SEMICOLON, ";"},
		{LET, "let"},
		{IDENT, "map"},
		{ASSIGN, "="},
		{MAP_START, "#{"},
		{IDENT, "a"},
		{COLON, ":"},
		{INT, "1"},
		{COMMA, ","},
		{IDENT, "b"},
		{COLON, ":"},
		{STRING, "two"},
		{RBRACE, "}"},
		{SEMICOLON, ";"},
		{FOR, "for"},
		{IDENT, "x"},
		{IN, "in"},
		{IDENT, "list"},
		{LBRACE, "{"},
		{RESERVED, "print"},
		{LPAREN, "("},
		{IDENT, "x"},
		{RPAREN, ")"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{WHILE, "while"},
		{TRUE, "true"},
		{LBRACE, "{"},
		{BREAK, "break"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{IDENT, "item"},
		{PERIOD, "."},
		{IDENT, "value"},
		{DOUBLECOLON, "::"},
		{IDENT, "get"},
		{EOF, "{EOF}"},
	}

	l := New(input)

	for i, tt := range tests {
		tok, _, ok := l.NextToken()
		if !ok {
			t.Fatalf("tests[%d] - stream ended early", i)
		}
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%d, got=%d (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestIntegerLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"42", 42},
		{"1_000", 1000},
		{"0xFF", 255},
		{"0xff", 255},
		{"0o17", 15},
		{"0b101", 5},
		{"-5", -5},
	}

	for _, tt := range tests {
		tok, _, _ := New(tt.input).NextToken()
		if tok.Type != INT {
			t.Fatalf("%q - expected INT, got type=%d (%q)", tt.input, tok.Type, tok.Literal)
		}
		if tok.Int != tt.expected {
			t.Errorf("%q - expected %d, got %d", tt.input, tt.expected, tok.Int)
		}
	}
}

func TestInvalidRadixDigitTerminatesLiteral(t *testing.T) {
	// 2 is not a binary digit, so 0b12 is the literal 0b1 followed by 2.
	tokens := lexAll(New("0b12"))
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	if tokens[0].Type != INT || tokens[0].Int != 1 {
		t.Errorf("expected INT 1, got type=%d (%q)", tokens[0].Type, tokens[0].Literal)
	}
	if tokens[1].Type != INT || tokens[1].Int != 2 {
		t.Errorf("expected INT 2, got type=%d (%q)", tokens[1].Type, tokens[1].Literal)
	}
}

func TestMalformedNumbers(t *testing.T) {
	tests := []string{
		"0o",    // bare radix prefix
		"-0xFF", // a fold-in minus displaces the radix prefix
	}

	for _, input := range tests {
		tok, _, _ := New(input).NextToken()
		if tok.Type != LEX_ERROR {
			t.Fatalf("%q - expected LEX_ERROR, got type=%d (%q)", input, tok.Type, tok.Literal)
		}
		if tok.Err.Code != "LEX-0003" {
			t.Errorf("%q - expected LEX-0003, got %s", input, tok.Err.Code)
		}
	}
}

func TestFloatLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"3.14", 3.14},
		{"1_0.5", 10.5},
		{"2.", 2.0},
		{"-2.5", -2.5},
	}

	for _, tt := range tests {
		tok, _, _ := New(tt.input).NextToken()
		if tok.Type != FLOAT {
			t.Fatalf("%q - expected FLOAT, got type=%d (%q)", tt.input, tok.Type, tok.Literal)
		}
		if tok.Float != tt.expected {
			t.Errorf("%q - expected %v, got %v", tt.input, tt.expected, tok.Float)
		}
	}
}

func TestUnaryMinus(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"3 - 5", []TokenType{INT, MINUS, INT, EOF}},
		{"x - 5", []TokenType{IDENT, MINUS, INT, EOF}},
		{"- 5", []TokenType{UNARY_MINUS, INT, EOF}},
		{"-5", []TokenType{INT, EOF}},
		{"(-5)", []TokenType{LPAREN, INT, RPAREN, EOF}},
		{"-x", []TokenType{UNARY_MINUS, IDENT, EOF}},
		{"2 + -3", []TokenType{INT, PLUS, INT, EOF}},
	}

	for _, tt := range tests {
		tokens := lexAll(New(tt.input))
		if len(tokens) != len(tt.expected) {
			t.Fatalf("%q - expected %d tokens, got %d", tt.input, len(tt.expected), len(tokens))
		}
		for i, want := range tt.expected {
			if tokens[i].Type != want {
				t.Errorf("%q - tokens[%d] expected type=%d, got=%d (%q)",
					tt.input, i, want, tokens[i].Type, tokens[i].Literal)
			}
		}
	}
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"foobar"`, "foobar"},
		{`"foo bar"`, "foo bar"},
		{`"tab\there"`, "tab\there"},
		{`"line\nbreak\r"`, "line\nbreak\r"},
		{`"back\\slash"`, `back\slash`},
		{`"quote \" inside"`, `quote " inside`},
		{`"\x41B\U00000043"`, "ABC"},
		{`"é"`, "é"},
	}

	for _, tt := range tests {
		tok, _, _ := New(tt.input).NextToken()
		if tok.Type != STRING {
			t.Fatalf("%q - expected STRING, got type=%d (%q)", tt.input, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expected {
			t.Errorf("%q - expected %q, got %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestStringErrors(t *testing.T) {
	tests := []struct {
		input        string
		expectedCode string
	}{
		{`"bad\q"`, "LEX-0002"},
		{`"bad\x4g"`, "LEX-0002"},
		{`"unterminated`, "LEX-0006"},
		{"\"raw\nnewline\"", "LEX-0006"},
	}

	for _, tt := range tests {
		tok, _, _ := New(tt.input).NextToken()
		if tok.Type != LEX_ERROR {
			t.Fatalf("%q - expected LEX_ERROR, got type=%d (%q)", tt.input, tok.Type, tok.Literal)
		}
		if tok.Err.Code != tt.expectedCode {
			t.Errorf("%q - expected %s, got %s", tt.input, tt.expectedCode, tok.Err.Code)
		}
	}
}

func TestStringTooLong(t *testing.T) {
	l := New(`"abcdefgh"`)
	l.State.MaxStringSize = 4

	tok, _, _ := l.NextToken()
	if tok.Type != LEX_ERROR {
		t.Fatalf("expected LEX_ERROR, got type=%d (%q)", tok.Type, tok.Literal)
	}
	if tok.Err.Code != "LEX-0007" {
		t.Errorf("expected LEX-0007, got %s", tok.Err.Code)
	}
	if !strings.Contains(tok.Err.Message, "4") {
		t.Errorf("expected message to name the limit, got %q", tok.Err.Message)
	}
}

func TestCharLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected rune
	}{
		{`'a'`, 'a'},
		{`'\n'`, '\n'},
		{`'\''`, '\''},
		{`'\x41'`, 'A'},
	}

	for _, tt := range tests {
		tok, _, _ := New(tt.input).NextToken()
		if tok.Type != CHAR {
			t.Fatalf("%q - expected CHAR, got type=%d (%q)", tt.input, tok.Type, tok.Literal)
		}
		if tok.Char != tt.expected {
			t.Errorf("%q - expected %q, got %q", tt.input, tt.expected, tok.Char)
		}
	}

	for _, input := range []string{`''`, `'ab'`} {
		tok, _, _ := New(input).NextToken()
		if tok.Type != LEX_ERROR || tok.Err.Code != "LEX-0004" {
			t.Errorf("%q - expected LEX-0004 error, got type=%d (%q)", input, tok.Type, tok.Literal)
		}
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	input := "1 /* nested /* deep */ still open */ 2 // to end of line\n3"

	tokens := lexAll(New(input))
	expected := []int64{1, 2, 3}

	if len(tokens) != len(expected)+1 {
		t.Fatalf("expected %d tokens, got %d", len(expected)+1, len(tokens))
	}
	for i, want := range expected {
		if tokens[i].Type != INT || tokens[i].Int != want {
			t.Errorf("tokens[%d] - expected INT %d, got type=%d (%q)",
				i, want, tokens[i].Type, tokens[i].Literal)
		}
	}
}

func TestCommentsAreCaptured(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/* a /* b */ c */", "/* a /* b */ c */"},
		{"// trailing", "// trailing"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		l.State.IncludeComments = true

		tok, _, _ := l.NextToken()
		if tok.Type != COMMENT {
			t.Fatalf("%q - expected COMMENT, got type=%d (%q)", tt.input, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expected {
			t.Errorf("%q - expected %q, got %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestCommentSpansInputStreams(t *testing.T) {
	l := New("1 /* split over", " two inputs */ 2")

	tokens := lexAll(l)
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	if tokens[0].Int != 1 || tokens[1].Int != 2 {
		t.Errorf("expected INT 1 and INT 2, got %q and %q", tokens[0].Literal, tokens[1].Literal)
	}
	if tokens[2].Type != EOF {
		t.Errorf("expected EOF, got type=%d", tokens[2].Type)
	}
}

func TestReservedSymbolMessages(t *testing.T) {
	tests := []struct {
		input string
		hint  string
	}{
		{"===", "This is not JavaScript!"},
		{"!==", "This is not JavaScript!"},
		{"a->b", "This is not C or C++!"},
		{"a<-b", "This is not Go!"},
		{"a=>b", "This is not Rust!"},
		{"a := b", "This is not Go!"},
		{"a::<b>", "This is not Rust!"},
		{"(* comment *)", "This is not Pascal!"},
		{"# x", "Should it be '#{'?"},
	}

	for _, tt := range tests {
		var errTok *Token
		for _, tok := range lexAll(New(tt.input)) {
			if tok.Type == LEX_ERROR {
				errTok = &tok
				break
			}
		}
		if errTok == nil {
			t.Fatalf("%q - expected a LEX_ERROR token", tt.input)
		}
		if errTok.Err.Code != "LEX-0008" {
			t.Errorf("%q - expected LEX-0008, got %s", tt.input, errTok.Err.Code)
		}
		if !strings.Contains(errTok.Err.Message, tt.hint) {
			t.Errorf("%q - expected message containing %q, got %q", tt.input, tt.hint, errTok.Err.Message)
		}
	}
}

func TestReservedWords(t *testing.T) {
	for _, input := range []string{"do", "async", "goto", "print", "call", "curry", "type_of", "Fn", "is_shared", "this"} {
		tok, _, _ := New(input).NextToken()
		if tok.Type != RESERVED {
			t.Errorf("%q - expected RESERVED, got type=%d (%q)", input, tok.Type, tok.Literal)
		}
		if tok.Literal != input {
			t.Errorf("%q - expected literal %q, got %q", input, input, tok.Literal)
		}
	}
}

func TestCustomKeywords(t *testing.T) {
	l := New("foo -> do")
	l.SetCustomKeywords(map[string]int{"foo": 0, "->": 160, "do": 0})

	tokens := lexAll(l)
	if len(tokens) != 4 {
		t.Fatalf("expected 4 tokens, got %d", len(tokens))
	}
	for i, want := range []string{"foo", "->", "do"} {
		if tokens[i].Type != CUSTOM || tokens[i].Literal != want {
			t.Errorf("tokens[%d] - expected CUSTOM %q, got type=%d (%q)",
				i, want, tokens[i].Type, tokens[i].Literal)
		}
	}
}

func TestDisabledSymbols(t *testing.T) {
	// A disabled operator is plain unexpected input.
	l := New("a += 1")
	l.SetDisabledSymbols(map[string]struct{}{"+=": {}})

	var errTok *Token
	for _, tok := range lexAll(l) {
		if tok.Type == LEX_ERROR {
			errTok = &tok
			break
		}
	}
	if errTok == nil {
		t.Fatal("expected a LEX_ERROR token for disabled '+='")
	}
	if errTok.Err.Code != "LEX-0001" {
		t.Errorf("expected LEX-0001, got %s", errTok.Err.Code)
	}

	// A disabled keyword degrades to RESERVED.
	l = New("while")
	l.SetDisabledSymbols(map[string]struct{}{"while": {}})
	tok, _, _ := l.NextToken()
	if tok.Type != RESERVED || tok.Literal != "while" {
		t.Errorf("expected RESERVED \"while\", got type=%d (%q)", tok.Type, tok.Literal)
	}

	// A disabled keyword that is also custom becomes CUSTOM.
	l = New("while")
	l.SetDisabledSymbols(map[string]struct{}{"while": {}})
	l.SetCustomKeywords(map[string]int{"while": 0})
	tok, _, _ = l.NextToken()
	if tok.Type != CUSTOM || tok.Literal != "while" {
		t.Errorf("expected CUSTOM \"while\", got type=%d (%q)", tok.Type, tok.Literal)
	}
}

func TestPositions(t *testing.T) {
	input := "let x = 5;\nx + 1"

	tests := []struct {
		line int
		col  int
	}{
		{1, 1},  // let
		{1, 5},  // x
		{1, 7},  // =
		{1, 9},  // 5
		{1, 10}, // ;
		{2, 1},  // x
		{2, 3},  // +
		{2, 5},  // 1
	}

	l := New(input)
	for i, tt := range tests {
		_, pos, ok := l.NextToken()
		if !ok {
			t.Fatalf("tests[%d] - stream ended early", i)
		}
		if pos.Line() != tt.line || pos.Column() != tt.col {
			t.Errorf("tests[%d] - expected %d:%d, got %d:%d",
				i, tt.line, tt.col, pos.Line(), pos.Column())
		}
	}
}

func TestEndOfStream(t *testing.T) {
	l := New("x")
	lexAll(l)

	// EOF repeats once reached.
	for i := 0; i < 2; i++ {
		tok, _, ok := l.NextToken()
		if !ok || tok.Type != EOF {
			t.Fatalf("call %d - expected repeating EOF, got ok=%v type=%d", i, ok, tok.Type)
		}
	}

	// With EndWithNone the stream just stops.
	l = New("x")
	l.State.EndWithNone = true
	if tok, _, ok := l.NextToken(); !ok || tok.Type != IDENT {
		t.Fatalf("expected IDENT, got ok=%v type=%d", ok, tok.Type)
	}
	if _, _, ok := l.NextToken(); ok {
		t.Error("expected stream end, got a token")
	}
}

func TestMalformedIdentifier(t *testing.T) {
	tok, _, _ := New("_").NextToken()
	if tok.Type != LEX_ERROR || tok.Err.Code != "LEX-0005" {
		t.Errorf("expected LEX-0005 error for \"_\", got type=%d (%q)", tok.Type, tok.Literal)
	}

	tok, _, _ = New("_foo").NextToken()
	if tok.Type != IDENT || tok.Literal != "_foo" {
		t.Errorf("expected IDENT \"_foo\", got type=%d (%q)", tok.Type, tok.Literal)
	}
}

func TestSyntaxRoundTrip(t *testing.T) {
	for tt, syntax := range tokenSyntax {
		switch tt {
		case UNARY_PLUS, UNARY_MINUS, EOF:
			continue
		}
		tok, ok := LookupFromSyntax(syntax)
		if !ok {
			t.Errorf("%q - not found by LookupFromSyntax", syntax)
			continue
		}
		if tok.Type != tt {
			t.Errorf("%q - expected type=%d, got=%d", syntax, tt, tok.Type)
		}
		if tok.Syntax() != syntax {
			t.Errorf("%q - round trip gave %q", syntax, tok.Syntax())
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"foo", true},
		{"_foo", true},
		{"foo_bar2", true},
		{"__x__", true},
		{"_", false},
		{"___", false},
		{"1foo", false},
		{"foo-bar", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidIdentifier(tt.name); got != tt.valid {
			t.Errorf("IsValidIdentifier(%q) - expected %v, got %v", tt.name, tt.valid, got)
		}
	}
}
