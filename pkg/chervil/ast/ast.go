// Package ast defines the abstract syntax tree produced by the parser.
// Every node carries the position of its first token so that runtime
// errors can point back into the source.
package ast

import (
	"bytes"
	"strings"

	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
)

// Node represents any node in the AST.
type Node interface {
	TokenLiteral() string
	String() string
	Pos() lexer.Position
}

// Statement represents statement nodes.
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node: a list of statements plus the script-level
// function definitions hoisted out of the statement stream.
type Program struct {
	Statements []Statement
	Functions  []*FunctionStatement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Pos() lexer.Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return lexer.NoPosition()
}

func (p *Program) String() string {
	var out bytes.Buffer

	for _, f := range p.Functions {
		out.WriteString(f.String())
	}
	for _, s := range p.Statements {
		out.WriteString(s.String())
	}

	return out.String()
}

// LetStatement represents 'let x = 5;'. A let without an initializer
// binds the unit value.
type LetStatement struct {
	Token    lexer.Token // the lexer.LET token
	Position lexer.Position
	Name     *Identifier
	Value    Expression
}

func (ls *LetStatement) statementNode()       {}
func (ls *LetStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LetStatement) Pos() lexer.Position  { return ls.Position }
func (ls *LetStatement) String() string {
	var out bytes.Buffer

	out.WriteString("let " + ls.Name.String())
	if ls.Value != nil {
		out.WriteString(" = " + ls.Value.String())
	}
	out.WriteString(";")
	return out.String()
}

// ConstStatement represents 'const x = 5;'. The initializer is required
// and the binding cannot be reassigned.
type ConstStatement struct {
	Token    lexer.Token // the lexer.CONST token
	Position lexer.Position
	Name     *Identifier
	Value    Expression
}

func (cs *ConstStatement) statementNode()       {}
func (cs *ConstStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ConstStatement) Pos() lexer.Position  { return cs.Position }
func (cs *ConstStatement) String() string {
	return "const " + cs.Name.String() + " = " + cs.Value.String() + ";"
}

// AssignmentStatement represents assignment to a variable, an index or a
// property: 'x = 1', 'a[0] += 2', 'obj.field = v'. Operator is ASSIGN or
// one of the compound assignment tokens.
type AssignmentStatement struct {
	Token    lexer.Token // the operator token
	Position lexer.Position
	Target   Expression
	Operator lexer.TokenType
	Value    Expression
}

func (as *AssignmentStatement) statementNode()       {}
func (as *AssignmentStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignmentStatement) Pos() lexer.Position  { return as.Position }
func (as *AssignmentStatement) String() string {
	return as.Target.String() + " " + as.Token.Literal + " " + as.Value.String() + ";"
}

// ReturnStatement represents 'return;' or 'return expr;'.
type ReturnStatement struct {
	Token       lexer.Token
	Position    lexer.Position
	ReturnValue Expression // nil for a bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) Pos() lexer.Position  { return rs.Position }
func (rs *ReturnStatement) String() string {
	if rs.ReturnValue == nil {
		return "return;"
	}
	return "return " + rs.ReturnValue.String() + ";"
}

// ThrowStatement represents 'throw expr;'. The thrown value surfaces as a
// runtime error carrying the value's string form.
type ThrowStatement struct {
	Token    lexer.Token
	Position lexer.Position
	Value    Expression // nil for a bare throw
}

func (ts *ThrowStatement) statementNode()       {}
func (ts *ThrowStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *ThrowStatement) Pos() lexer.Position  { return ts.Position }
func (ts *ThrowStatement) String() string {
	if ts.Value == nil {
		return "throw;"
	}
	return "throw " + ts.Value.String() + ";"
}

// BreakStatement exits the innermost loop.
type BreakStatement struct {
	Token    lexer.Token
	Position lexer.Position
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) Pos() lexer.Position  { return bs.Position }
func (bs *BreakStatement) String() string       { return "break;" }

// ContinueStatement skips to the next iteration of the innermost loop.
type ContinueStatement struct {
	Token    lexer.Token
	Position lexer.Position
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ContinueStatement) Pos() lexer.Position  { return cs.Position }
func (cs *ContinueStatement) String() string       { return "continue;" }

// WhileStatement represents 'while cond { ... }'.
type WhileStatement struct {
	Token     lexer.Token
	Position  lexer.Position
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) Pos() lexer.Position  { return ws.Position }
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " " + ws.Body.String()
}

// LoopStatement represents the infinite 'loop { ... }'.
type LoopStatement struct {
	Token    lexer.Token
	Position lexer.Position
	Body     *BlockStatement
}

func (ls *LoopStatement) statementNode()       {}
func (ls *LoopStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LoopStatement) Pos() lexer.Position  { return ls.Position }
func (ls *LoopStatement) String() string       { return "loop " + ls.Body.String() }

// ForStatement represents 'for x in iterable { ... }'.
type ForStatement struct {
	Token    lexer.Token
	Position lexer.Position
	Name     *Identifier
	Iterable Expression
	Body     *BlockStatement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) Pos() lexer.Position  { return fs.Position }
func (fs *ForStatement) String() string {
	return "for " + fs.Name.String() + " in " + fs.Iterable.String() + " " + fs.Body.String()
}

// ImportStatement represents 'import "path" as alias;'. An import without
// an alias runs the module for its side effects only.
type ImportStatement struct {
	Token    lexer.Token
	Position lexer.Position
	Path     Expression // the module path, evaluated to a string
	Alias    string     // "" when no alias was given
}

func (is *ImportStatement) statementNode()       {}
func (is *ImportStatement) TokenLiteral() string { return is.Token.Literal }
func (is *ImportStatement) Pos() lexer.Position  { return is.Position }
func (is *ImportStatement) String() string {
	var out bytes.Buffer

	out.WriteString("import " + is.Path.String())
	if is.Alias != "" {
		out.WriteString(" as " + is.Alias)
	}
	out.WriteString(";")
	return out.String()
}

// ExportStatement represents 'export let x = ...;', 'export const x = ...;'
// or 'export x as name;'.
type ExportStatement struct {
	Token    lexer.Token
	Position lexer.Position
	Inner    Statement // a LetStatement or ConstStatement, nil for a rename
	Name     string    // exported variable for the rename form
	Alias    string    // "" when exported under its own name
}

func (es *ExportStatement) statementNode()       {}
func (es *ExportStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExportStatement) Pos() lexer.Position  { return es.Position }
func (es *ExportStatement) String() string {
	if es.Inner != nil {
		return "export " + es.Inner.String()
	}
	if es.Alias != "" {
		return "export " + es.Name + " as " + es.Alias + ";"
	}
	return "export " + es.Name + ";"
}

// FunctionStatement represents a script function definition:
// 'fn add(x, y) { x + y }'. Private functions are callable only from
// inside the same script.
type FunctionStatement struct {
	Token    lexer.Token // the lexer.FUNCTION token
	Position lexer.Position
	Name     *Identifier
	Params   []*Identifier
	Body     *BlockStatement
	Private  bool
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FunctionStatement) Pos() lexer.Position  { return fs.Position }
func (fs *FunctionStatement) String() string {
	var out bytes.Buffer

	if fs.Private {
		out.WriteString("private ")
	}
	out.WriteString("fn " + fs.Name.String() + "(")

	params := []string{}
	for _, p := range fs.Params {
		params = append(params, p.String())
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") " + fs.Body.String())

	return out.String()
}

// ExpressionStatement wraps an expression used in statement position.
type ExpressionStatement struct {
	Token      lexer.Token // the first token of the expression
	Position   lexer.Position
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) Pos() lexer.Position  { return es.Position }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

// BlockStatement represents '{ ... }'. A block is also an expression: its
// value is the value of its final statement.
type BlockStatement struct {
	Token      lexer.Token // the '{' token
	Position   lexer.Position
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) expressionNode()      {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) Pos() lexer.Position  { return bs.Position }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer

	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")

	return out.String()
}

// Identifier represents a bare name in expression position.
type Identifier struct {
	Token    lexer.Token // the lexer.IDENT token
	Position lexer.Position
	Value    string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Pos() lexer.Position  { return i.Position }
func (i *Identifier) String() string       { return i.Value }

// IntegerLiteral represents integer literals in any radix.
type IntegerLiteral struct {
	Token    lexer.Token
	Position lexer.Position
	Value    int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) Pos() lexer.Position  { return il.Position }
func (il *IntegerLiteral) String() string       { return il.Token.Literal }

// FloatLiteral represents floating-point literals.
type FloatLiteral struct {
	Token    lexer.Token
	Position lexer.Position
	Value    float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) Pos() lexer.Position  { return fl.Position }
func (fl *FloatLiteral) String() string       { return fl.Token.Literal }

// StringLiteral represents a double-quoted string with escapes already
// processed by the lexer.
type StringLiteral struct {
	Token    lexer.Token
	Position lexer.Position
	Value    string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Pos() lexer.Position  { return sl.Position }
func (sl *StringLiteral) String() string       { return `"` + sl.Value + `"` }

// CharLiteral represents a single-quoted character literal.
type CharLiteral struct {
	Token    lexer.Token
	Position lexer.Position
	Value    rune
}

func (cl *CharLiteral) expressionNode()      {}
func (cl *CharLiteral) TokenLiteral() string { return cl.Token.Literal }
func (cl *CharLiteral) Pos() lexer.Position  { return cl.Position }
func (cl *CharLiteral) String() string       { return "'" + string(cl.Value) + "'" }

// BooleanLiteral represents 'true' or 'false'.
type BooleanLiteral struct {
	Token    lexer.Token
	Position lexer.Position
	Value    bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) Pos() lexer.Position  { return bl.Position }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }

// UnitLiteral represents the unit value '()'.
type UnitLiteral struct {
	Token    lexer.Token // the '(' token
	Position lexer.Position
}

func (ul *UnitLiteral) expressionNode()      {}
func (ul *UnitLiteral) TokenLiteral() string { return ul.Token.Literal }
func (ul *UnitLiteral) Pos() lexer.Position  { return ul.Position }
func (ul *UnitLiteral) String() string       { return "()" }

// ArrayLiteral represents '[1, 2, 3]'.
type ArrayLiteral struct {
	Token    lexer.Token // the '[' token
	Position lexer.Position
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) Pos() lexer.Position  { return al.Position }
func (al *ArrayLiteral) String() string {
	var out bytes.Buffer

	elements := []string{}
	for _, el := range al.Elements {
		elements = append(elements, el.String())
	}

	out.WriteString("[")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString("]")

	return out.String()
}

// MapLiteral represents '#{a: 1, b: 2}'. Keys keep source order; the
// evaluator builds the object map from the parallel slices.
type MapLiteral struct {
	Token    lexer.Token // the '#{' token
	Position lexer.Position
	Keys     []string
	Values   []Expression
}

func (ml *MapLiteral) expressionNode()      {}
func (ml *MapLiteral) TokenLiteral() string { return ml.Token.Literal }
func (ml *MapLiteral) Pos() lexer.Position  { return ml.Position }
func (ml *MapLiteral) String() string {
	var out bytes.Buffer

	pairs := []string{}
	for i, k := range ml.Keys {
		pairs = append(pairs, k+": "+ml.Values[i].String())
	}

	out.WriteString("#{")
	out.WriteString(strings.Join(pairs, ", "))
	out.WriteString("}")

	return out.String()
}

// PrefixExpression represents '-x', '+x' and '!x'.
type PrefixExpression struct {
	Token    lexer.Token // the prefix operator token
	Position lexer.Position
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) Pos() lexer.Position  { return pe.Position }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// InfixExpression represents binary operator applications, including the
// short-circuiting '&&' and '||' and the 'in' containment test.
type InfixExpression struct {
	Token    lexer.Token // the operator token
	Position lexer.Position
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) Pos() lexer.Position  { return ie.Position }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// IfExpression represents 'if cond { ... } else { ... }'. If is an
// expression: without an else branch the value is unit.
type IfExpression struct {
	Token       lexer.Token
	Position    lexer.Position
	Condition   Expression
	Consequence *BlockStatement
	Alternative Expression // *BlockStatement or a chained *IfExpression, nil if absent
}

func (ie *IfExpression) expressionNode()      {}
func (ie *IfExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IfExpression) Pos() lexer.Position  { return ie.Position }
func (ie *IfExpression) String() string {
	var out bytes.Buffer

	out.WriteString("if " + ie.Condition.String() + " " + ie.Consequence.String())
	if ie.Alternative != nil {
		out.WriteString(" else " + ie.Alternative.String())
	}

	return out.String()
}

// IndexExpression represents 'left[index]'.
type IndexExpression struct {
	Token    lexer.Token // the '[' token
	Position lexer.Position
	Left     Expression
	Index    Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) Pos() lexer.Position  { return ie.Position }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}

// DotExpression represents property access 'left.name' and method calls
// 'left.name(args)'. For a method call Call is set and Name is the
// method name; for plain property access Call is nil.
type DotExpression struct {
	Token    lexer.Token // the '.' token
	Position lexer.Position
	Left     Expression
	Name     string
	Call     *CallExpression // non-nil for a method call
}

func (de *DotExpression) expressionNode()      {}
func (de *DotExpression) TokenLiteral() string { return de.Token.Literal }
func (de *DotExpression) Pos() lexer.Position  { return de.Position }
func (de *DotExpression) String() string {
	if de.Call != nil {
		return de.Left.String() + "." + de.Call.String()
	}
	return de.Left.String() + "." + de.Name
}

// PathExpression represents a namespace-qualified reference 'a::b::c'. The
// final segment names a function or constant; everything before it walks
// sub-modules.
type PathExpression struct {
	Token    lexer.Token
	Position lexer.Position
	Segments []string
}

func (pe *PathExpression) expressionNode()      {}
func (pe *PathExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PathExpression) Pos() lexer.Position  { return pe.Position }
func (pe *PathExpression) String() string       { return strings.Join(pe.Segments, "::") }

// CallExpression represents 'f(a, b)'. Function is an *Identifier for a
// plain call or a *PathExpression for a namespace-qualified call.
type CallExpression struct {
	Token     lexer.Token // the '(' token
	Position  lexer.Position
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) Pos() lexer.Position  { return ce.Position }
func (ce *CallExpression) String() string {
	var out bytes.Buffer

	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}

	out.WriteString(ce.Function.String())
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")

	return out.String()
}

// ClosureLiteral represents an anonymous function '|x, y| expr' or
// '|x| { ... }'. Free variables are captured from the defining scope at
// evaluation time.
type ClosureLiteral struct {
	Token    lexer.Token // the '|' (or '||') token
	Position lexer.Position
	Params   []*Identifier
	Body     Expression // a single expression or a *BlockStatement
}

func (cl *ClosureLiteral) expressionNode()      {}
func (cl *ClosureLiteral) TokenLiteral() string { return cl.Token.Literal }
func (cl *ClosureLiteral) Pos() lexer.Position  { return cl.Position }
func (cl *ClosureLiteral) String() string {
	params := []string{}
	for _, p := range cl.Params {
		params = append(params, p.String())
	}
	return "|" + strings.Join(params, ", ") + "| " + cl.Body.String()
}
