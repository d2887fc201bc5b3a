package evaluator

import (
	"fmt"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
)

// closureAnalyzer walks the program at compile time, finds every closure
// literal, and records which enclosing-scope variables it captures. Each
// closure becomes a synthetic named function whose leading parameters are
// its captures; evaluation curries the shared capture cells onto a
// function pointer.
//
// A name counts as a capture only when it is declared in an enclosing
// lexical scope. Undeclared names are function names or builtins and
// resolve at call time. A use inside nested closures is attributed to
// every closure between the use and the declaration, so the middle
// closures forward the capture inward.
type closureAnalyzer struct {
	c      *Compiled
	scopes []map[string]bool
	frames []*closureFrame
	next   int
}

type closureFrame struct {
	info     *closureInfo
	boundary int
	seen     map[string]bool
}

func analyzeClosures(c *Compiled) {
	a := &closureAnalyzer{c: c}

	for _, fn := range c.program.Functions {
		a.scopes = a.scopes[:0]
		a.pushScope()
		for _, p := range fn.Params {
			a.declare(p.Value)
		}
		a.walkStmts(fn.Body.Statements)
		a.popScope()
	}

	a.scopes = a.scopes[:0]
	a.pushScope()
	a.walkStmts(c.program.Statements)
	a.popScope()
}

func (a *closureAnalyzer) pushScope() {
	a.scopes = append(a.scopes, make(map[string]bool))
}

func (a *closureAnalyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *closureAnalyzer) declare(name string) {
	a.scopes[len(a.scopes)-1][name] = true
}

// use resolves a name against the scope stack and records it as a
// capture for every closure frame the reference crosses.
func (a *closureAnalyzer) use(name string) {
	if name == "this" {
		return
	}
	declaredAt := -1
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if a.scopes[i][name] {
			declaredAt = i
			break
		}
	}
	if declaredAt < 0 {
		return
	}
	for _, f := range a.frames {
		if f.boundary > declaredAt && !f.seen[name] {
			f.seen[name] = true
			f.info.captures = append(f.info.captures, name)
		}
	}
}

func (a *closureAnalyzer) walkStmts(stmts []ast.Statement) {
	for _, s := range stmts {
		a.walkStmt(s)
	}
}

func (a *closureAnalyzer) walkStmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.LetStatement:
		if st.Value != nil {
			a.walkExpr(st.Value)
		}
		a.declare(st.Name.Value)
	case *ast.ConstStatement:
		a.walkExpr(st.Value)
		a.declare(st.Name.Value)
	case *ast.AssignmentStatement:
		a.walkExpr(st.Target)
		a.walkExpr(st.Value)
	case *ast.ReturnStatement:
		if st.ReturnValue != nil {
			a.walkExpr(st.ReturnValue)
		}
	case *ast.ThrowStatement:
		if st.Value != nil {
			a.walkExpr(st.Value)
		}
	case *ast.WhileStatement:
		a.walkExpr(st.Condition)
		a.walkBlock(st.Body)
	case *ast.LoopStatement:
		a.walkBlock(st.Body)
	case *ast.ForStatement:
		a.walkExpr(st.Iterable)
		a.pushScope()
		a.declare(st.Name.Value)
		a.walkStmts(st.Body.Statements)
		a.popScope()
	case *ast.ImportStatement:
		a.walkExpr(st.Path)
	case *ast.ExportStatement:
		if st.Inner != nil {
			a.walkStmt(st.Inner)
		}
	case *ast.ExpressionStatement:
		a.walkExpr(st.Expression)
	case *ast.BlockStatement:
		a.walkBlock(st)
	}
}

func (a *closureAnalyzer) walkBlock(b *ast.BlockStatement) {
	a.pushScope()
	a.walkStmts(b.Statements)
	a.popScope()
}

func (a *closureAnalyzer) walkExpr(e ast.Expression) {
	switch ex := e.(type) {
	case *ast.Identifier:
		a.use(ex.Value)
	case *ast.PrefixExpression:
		a.walkExpr(ex.Right)
	case *ast.InfixExpression:
		a.walkExpr(ex.Left)
		a.walkExpr(ex.Right)
	case *ast.IfExpression:
		a.walkExpr(ex.Condition)
		a.walkBlock(ex.Consequence)
		if ex.Alternative != nil {
			a.walkExpr(ex.Alternative)
		}
	case *ast.IndexExpression:
		a.walkExpr(ex.Left)
		a.walkExpr(ex.Index)
	case *ast.DotExpression:
		a.walkExpr(ex.Left)
		if ex.Call != nil {
			for _, arg := range ex.Call.Arguments {
				a.walkExpr(arg)
			}
		}
	case *ast.CallExpression:
		a.walkExpr(ex.Function)
		for _, arg := range ex.Arguments {
			a.walkExpr(arg)
		}
	case *ast.ArrayLiteral:
		for _, el := range ex.Elements {
			a.walkExpr(el)
		}
	case *ast.MapLiteral:
		for _, v := range ex.Values {
			a.walkExpr(v)
		}
	case *ast.BlockStatement:
		a.walkBlock(ex)
	case *ast.ClosureLiteral:
		a.walkClosure(ex)
	}
}

func (a *closureAnalyzer) walkClosure(cl *ast.ClosureLiteral) {
	info := &closureInfo{name: fmt.Sprintf("anon$%d", a.next)}
	a.next++

	frame := &closureFrame{
		info:     info,
		boundary: len(a.scopes),
		seen:     make(map[string]bool),
	}
	a.frames = append(a.frames, frame)
	a.pushScope()
	for _, p := range cl.Params {
		a.declare(p.Value)
	}
	a.walkExpr(cl.Body)
	a.popScope()
	a.frames = a.frames[:len(a.frames)-1]

	params := make([]string, 0, len(info.captures)+len(cl.Params))
	params = append(params, info.captures...)
	for _, p := range cl.Params {
		params = append(params, p.Value)
	}

	a.c.closures[cl] = info
	a.c.fns[fnKey(info.name, len(params))] = &scriptFn{
		name:   info.name,
		params: params,
		body:   cl.Body,
	}
}
