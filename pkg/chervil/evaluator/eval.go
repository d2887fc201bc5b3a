package evaluator

import (
	"fmt"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

// interp is the per-run evaluation state: the operation counter, the
// modules imported so far, and the export table when running as a module
// body. It implements object.Caller so function pointers and natives can
// re-enter it.
type interp struct {
	eng      *Engine
	compiled *Compiled
	ops      *uint64
	imports  map[string]*module.Module
	exports  map[string]object.Dynamic
}

func newInterp(e *Engine, c *Compiled) *interp {
	var ops uint64
	return &interp{
		eng:      e,
		compiled: c,
		ops:      &ops,
		imports:  make(map[string]*module.Module),
	}
}

// Control-flow signals travel as errors and are intercepted by the loop
// or function frame they belong to.
type returnSignal struct{ value object.Dynamic }

func (r *returnSignal) Error() string { return "return statement outside of function" }

type breakSignal struct{}

func (breakSignal) Error() string { return "break statement outside of loop" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue statement outside of loop" }

// compoundOps maps compound-assignment tokens to the operator function
// they dispatch to.
var compoundOps = map[lexer.TokenType]string{
	lexer.PLUS_ASSIGN:     "+",
	lexer.MINUS_ASSIGN:    "-",
	lexer.ASTERISK_ASSIGN: "*",
	lexer.SLASH_ASSIGN:    "/",
	lexer.PERCENT_ASSIGN:  "%",
	lexer.POWER_ASSIGN:    "~",
	lexer.LSHIFT_ASSIGN:   "<<",
	lexer.RSHIFT_ASSIGN:   ">>",
	lexer.AND_ASSIGN:      "&",
	lexer.OR_ASSIGN:       "|",
	lexer.CARET_ASSIGN:    "^",
}

// tick counts one evaluation step against the operation limit.
func (in *interp) tick(pos lexer.Position) error {
	*in.ops++
	if in.eng.maxOps > 0 && *in.ops > in.eng.maxOps {
		return errAt(errors.New("LIMIT-0001", map[string]any{"Max": in.eng.maxOps}), pos)
	}
	return nil
}

// errAt tags an engine error with a source position if it does not carry
// one already.
func errAt(err error, pos lexer.Position) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*errors.ChervilError); ok && ce.Line == 0 && !pos.IsNone() {
		return ce.WithPosition(pos.Line(), pos.Column())
	}
	return err
}

func (in *interp) runProgram(prog *ast.Program, env *Environment) (object.Dynamic, error) {
	result := object.Unit()
	for _, stmt := range prog.Statements {
		v, err := in.evalStmt(stmt, env)
		if err != nil {
			switch sig := err.(type) {
			case *returnSignal:
				return sig.value, nil
			case breakSignal, continueSignal:
				return object.Unit(), errAt(errors.New("STATE-0001", map[string]any{
					"Message": err.Error(),
				}), stmt.Pos())
			}
			return object.Unit(), err
		}
		result = v
	}
	return result, nil
}

func (in *interp) evalStmt(s ast.Statement, env *Environment) (object.Dynamic, error) {
	if err := in.tick(s.Pos()); err != nil {
		return object.Unit(), err
	}

	switch st := s.(type) {
	case *ast.LetStatement:
		value := object.Unit()
		if st.Value != nil {
			v, err := in.evalExpr(st.Value, env)
			if err != nil {
				return object.Unit(), err
			}
			value = v
		}
		env.Define(st.Name.Value, value)
		return object.Unit(), nil

	case *ast.ConstStatement:
		v, err := in.evalExpr(st.Value, env)
		if err != nil {
			return object.Unit(), err
		}
		env.DefineConst(st.Name.Value, v)
		return object.Unit(), nil

	case *ast.AssignmentStatement:
		return object.Unit(), in.evalAssign(st, env)

	case *ast.ReturnStatement:
		value := object.Unit()
		if st.ReturnValue != nil {
			v, err := in.evalExpr(st.ReturnValue, env)
			if err != nil {
				return object.Unit(), err
			}
			value = v
		}
		return object.Unit(), &returnSignal{value: value}

	case *ast.ThrowStatement:
		msg := "runtime error"
		if st.Value != nil {
			v, err := in.evalExpr(st.Value, env)
			if err != nil {
				return object.Unit(), err
			}
			fv, err := v.Flatten()
			if err != nil {
				return object.Unit(), errAt(err, st.Pos())
			}
			msg = fv.String()
		}
		return object.Unit(), errAt(errors.New("STATE-0001", map[string]any{"Message": msg}), st.Pos())

	case *ast.BreakStatement:
		return object.Unit(), breakSignal{}

	case *ast.ContinueStatement:
		return object.Unit(), continueSignal{}

	case *ast.WhileStatement:
		for {
			cond, err := in.evalExpr(st.Condition, env)
			if err != nil {
				return object.Unit(), err
			}
			b, err := in.truthy(cond, "while", st.Condition.Pos())
			if err != nil {
				return object.Unit(), err
			}
			if !b {
				return object.Unit(), nil
			}
			if stop, err := in.runLoopBody(st.Body, env); err != nil || stop {
				return object.Unit(), err
			}
		}

	case *ast.LoopStatement:
		for {
			if err := in.tick(st.Pos()); err != nil {
				return object.Unit(), err
			}
			if stop, err := in.runLoopBody(st.Body, env); err != nil || stop {
				return object.Unit(), err
			}
		}

	case *ast.ForStatement:
		return object.Unit(), in.evalFor(st, env)

	case *ast.ImportStatement:
		return object.Unit(), in.evalImport(st, env)

	case *ast.ExportStatement:
		return object.Unit(), in.evalExport(st, env)

	case *ast.FunctionStatement:
		// Hoisted into the function table at compile time.
		return object.Unit(), nil

	case *ast.BlockStatement:
		return in.evalBlock(st, NewEnclosedEnvironment(env))

	case *ast.ExpressionStatement:
		return in.evalExpr(st.Expression, env)
	}

	return object.Unit(), errAt(errors.New("STATE-0001", map[string]any{
		"Message": "unsupported statement",
	}), s.Pos())
}

// runLoopBody executes one loop iteration, translating break/continue
// signals. stop is true for break.
func (in *interp) runLoopBody(body *ast.BlockStatement, env *Environment) (bool, error) {
	_, err := in.evalBlock(body, NewEnclosedEnvironment(env))
	switch err.(type) {
	case nil, continueSignal:
		return false, nil
	case breakSignal:
		return true, nil
	}
	return false, err
}

func (in *interp) evalFor(st *ast.ForStatement, env *Environment) error {
	iter, err := in.evalExpr(st.Iterable, env)
	if err != nil {
		return err
	}
	iter, err = iter.Flatten()
	if err != nil {
		return errAt(err, st.Iterable.Pos())
	}

	runOne := func(elem object.Dynamic) (bool, error) {
		child := NewEnclosedEnvironment(env)
		child.Define(st.Name.Value, elem)
		_, err := in.evalBlock(st.Body, child)
		switch err.(type) {
		case nil, continueSignal:
			return false, nil
		case breakSignal:
			return true, nil
		}
		return false, err
	}

	if elems, ok := iter.AsArray(); ok {
		for _, el := range elems {
			if stop, err := runOne(el.Clone()); err != nil || stop {
				return err
			}
		}
		return nil
	}
	if s, ok := iter.AsString(); ok {
		for _, r := range s {
			if stop, err := runOne(object.Char(r)); err != nil || stop {
				return err
			}
		}
		return nil
	}
	return errAt(errors.New("TYPE-0001", map[string]any{
		"Function": "for",
		"Expected": "array or string",
		"Got":      iter.TypeName(),
	}), st.Iterable.Pos())
}

func (in *interp) evalImport(st *ast.ImportStatement, env *Environment) error {
	pv, err := in.evalExpr(st.Path, env)
	if err != nil {
		return err
	}
	pv, err = pv.Flatten()
	if err != nil {
		return errAt(err, st.Pos())
	}
	path, ok := pv.AsString()
	if !ok {
		return errAt(errors.New("TYPE-0001", map[string]any{
			"Function": "import",
			"Expected": "string",
			"Got":      pv.TypeName(),
		}), st.Path.Pos())
	}

	if in.eng.resolver == nil {
		return errAt(errors.New("MOD-0001", map[string]any{"Path": path}), st.Pos())
	}
	m, err := in.eng.resolver.Resolve(path)
	if err != nil {
		return errAt(err, st.Pos())
	}
	if st.Alias != "" {
		in.imports[st.Alias] = m
	}
	return nil
}

func (in *interp) evalExport(st *ast.ExportStatement, env *Environment) error {
	if st.Inner != nil {
		if _, err := in.evalStmt(st.Inner, env); err != nil {
			return err
		}
		if in.exports == nil {
			return nil
		}
		var name string
		switch inner := st.Inner.(type) {
		case *ast.LetStatement:
			name = inner.Name.Value
		case *ast.ConstStatement:
			name = inner.Name.Value
		default:
			return nil
		}
		v, _ := env.Get(name)
		in.exports[name] = v
		return nil
	}

	if in.exports == nil {
		return nil
	}
	v, ok := env.Get(st.Name)
	if !ok {
		return errAt(errors.New("UNDEF-0001", map[string]any{"Name": st.Name}), st.Pos())
	}
	key := st.Name
	if st.Alias != "" {
		key = st.Alias
	}
	in.exports[key] = v
	return nil
}

// evalBlock runs a block in the given scope and yields the value of its
// last statement.
func (in *interp) evalBlock(b *ast.BlockStatement, env *Environment) (object.Dynamic, error) {
	result := object.Unit()
	for _, stmt := range b.Statements {
		v, err := in.evalStmt(stmt, env)
		if err != nil {
			return object.Unit(), err
		}
		result = v
	}
	return result, nil
}

func (in *interp) evalExpr(e ast.Expression, env *Environment) (object.Dynamic, error) {
	if err := in.tick(e.Pos()); err != nil {
		return object.Unit(), err
	}

	switch ex := e.(type) {
	case *ast.Identifier:
		if v, ok := env.Get(ex.Value); ok {
			return v.Clone(), nil
		}
		if ex.Value == "this" {
			return object.Unit(), errAt(errors.New("STATE-0001", map[string]any{
				"Message": "'this' is not bound",
			}), ex.Pos())
		}
		if c, ok := in.eng.global.GetConstant(ex.Value); ok {
			return c.Clone(), nil
		}
		return object.Unit(), errAt(errors.New("UNDEF-0001", map[string]any{"Name": ex.Value}), ex.Pos())

	case *ast.IntegerLiteral:
		return object.Int(ex.Value), nil
	case *ast.FloatLiteral:
		return object.Float(ex.Value), nil
	case *ast.StringLiteral:
		return object.Str(ex.Value), nil
	case *ast.CharLiteral:
		return object.Char(ex.Value), nil
	case *ast.BooleanLiteral:
		return object.Bool(ex.Value), nil
	case *ast.UnitLiteral:
		return object.Unit(), nil

	case *ast.ArrayLiteral:
		elems := make([]object.Dynamic, len(ex.Elements))
		for i, el := range ex.Elements {
			v, err := in.evalExpr(el, env)
			if err != nil {
				return object.Unit(), err
			}
			elems[i] = v
		}
		return object.Array(elems), nil

	case *ast.MapLiteral:
		m := make(map[string]object.Dynamic, len(ex.Keys))
		for i, k := range ex.Keys {
			v, err := in.evalExpr(ex.Values[i], env)
			if err != nil {
				return object.Unit(), err
			}
			m[k] = v
		}
		return object.Map(m), nil

	case *ast.PrefixExpression:
		return in.evalPrefix(ex, env)

	case *ast.InfixExpression:
		return in.evalInfix(ex, env)

	case *ast.IfExpression:
		cond, err := in.evalExpr(ex.Condition, env)
		if err != nil {
			return object.Unit(), err
		}
		b, err := in.truthy(cond, "if", ex.Condition.Pos())
		if err != nil {
			return object.Unit(), err
		}
		if b {
			return in.evalBlock(ex.Consequence, NewEnclosedEnvironment(env))
		}
		if ex.Alternative != nil {
			return in.evalExpr(ex.Alternative, env)
		}
		return object.Unit(), nil

	case *ast.BlockStatement:
		return in.evalBlock(ex, NewEnclosedEnvironment(env))

	case *ast.IndexExpression:
		return in.evalIndex(ex, env)

	case *ast.DotExpression:
		if ex.Call != nil {
			return in.evalMethodCall(ex, env)
		}
		return in.evalProperty(ex, env)

	case *ast.CallExpression:
		return in.evalCall(ex, env)

	case *ast.PathExpression:
		return in.evalPathConstant(ex)

	case *ast.ClosureLiteral:
		return in.evalClosure(ex, env)
	}

	return object.Unit(), errAt(errors.New("STATE-0001", map[string]any{
		"Message": "unsupported expression",
	}), e.Pos())
}

func (in *interp) truthy(v object.Dynamic, ctx string, pos lexer.Position) (bool, error) {
	fv, err := v.Flatten()
	if err != nil {
		return false, errAt(err, pos)
	}
	b, ok := fv.AsBool()
	if !ok {
		return false, errAt(errors.New("TYPE-0001", map[string]any{
			"Function": ctx,
			"Expected": "bool",
			"Got":      fv.TypeName(),
		}), pos)
	}
	return b, nil
}

func (in *interp) evalPrefix(ex *ast.PrefixExpression, env *Environment) (object.Dynamic, error) {
	v, err := in.evalExpr(ex.Right, env)
	if err != nil {
		return object.Unit(), err
	}

	if ex.Operator == "!" {
		b, err := in.truthy(v, "!", ex.Pos())
		if err != nil {
			return object.Unit(), err
		}
		return object.Bool(!b), nil
	}
	return in.dispatch(ex.Operator, []object.Dynamic{v}, ex.Pos())
}

func (in *interp) evalInfix(ex *ast.InfixExpression, env *Environment) (object.Dynamic, error) {
	switch ex.Operator {
	case "&&":
		lb, err := in.evalBoolOperand(ex.Left, ex.Operator, env)
		if err != nil {
			return object.Unit(), err
		}
		if !lb {
			return object.Bool(false), nil
		}
		rb, err := in.evalBoolOperand(ex.Right, ex.Operator, env)
		if err != nil {
			return object.Unit(), err
		}
		return object.Bool(rb), nil

	case "||":
		lb, err := in.evalBoolOperand(ex.Left, ex.Operator, env)
		if err != nil {
			return object.Unit(), err
		}
		if lb {
			return object.Bool(true), nil
		}
		rb, err := in.evalBoolOperand(ex.Right, ex.Operator, env)
		if err != nil {
			return object.Unit(), err
		}
		return object.Bool(rb), nil
	}

	left, err := in.evalExpr(ex.Left, env)
	if err != nil {
		return object.Unit(), err
	}
	right, err := in.evalExpr(ex.Right, env)
	if err != nil {
		return object.Unit(), err
	}

	if ex.Operator == "in" {
		// 'x in y' asks the container: contains(y, x).
		return in.dispatch("contains", []object.Dynamic{right, left}, ex.Pos())
	}

	result, err := in.dispatch(ex.Operator, []object.Dynamic{left, right}, ex.Pos())
	if err == nil {
		return result, nil
	}
	if ce, ok := err.(*errors.ChervilError); ok && ce.Code == "FN-0001" {
		// Equality falls back to deep structural comparison.
		switch ex.Operator {
		case "==":
			return object.Bool(object.Equal(left, right)), nil
		case "!=":
			return object.Bool(!object.Equal(left, right)), nil
		}
	}
	return object.Unit(), err
}

func (in *interp) evalBoolOperand(e ast.Expression, op string, env *Environment) (bool, error) {
	v, err := in.evalExpr(e, env)
	if err != nil {
		return false, err
	}
	return in.truthy(v, op, e.Pos())
}

func (in *interp) evalIndex(ex *ast.IndexExpression, env *Environment) (object.Dynamic, error) {
	left, err := in.evalExpr(ex.Left, env)
	if err != nil {
		return object.Unit(), err
	}
	left, err = left.Flatten()
	if err != nil {
		return object.Unit(), errAt(err, ex.Pos())
	}
	idx, err := in.evalExpr(ex.Index, env)
	if err != nil {
		return object.Unit(), err
	}
	idx, err = idx.Flatten()
	if err != nil {
		return object.Unit(), errAt(err, ex.Index.Pos())
	}

	if elems, ok := left.AsArray(); ok {
		i, ok := idx.AsInt()
		if !ok {
			return object.Unit(), errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "index", "Expected": object.TypeInt, "Got": idx.TypeName(),
			}), ex.Index.Pos())
		}
		if i < 0 || i >= int64(len(elems)) {
			return object.Unit(), errAt(indexOutOfBounds(i, len(elems)), ex.Pos())
		}
		return elems[i].Clone(), nil
	}
	if m, ok := left.AsMap(); ok {
		k, ok := idx.AsString()
		if !ok {
			return object.Unit(), errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "index", "Expected": object.TypeString, "Got": idx.TypeName(),
			}), ex.Index.Pos())
		}
		if v, ok := m[k]; ok {
			return v.Clone(), nil
		}
		return object.Unit(), nil
	}
	if s, ok := left.AsString(); ok {
		i, ok := idx.AsInt()
		if !ok {
			return object.Unit(), errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "index", "Expected": object.TypeInt, "Got": idx.TypeName(),
			}), ex.Index.Pos())
		}
		runes := []rune(s)
		if i < 0 || i >= int64(len(runes)) {
			return object.Unit(), errAt(indexOutOfBounds(i, len(runes)), ex.Pos())
		}
		return object.Char(runes[i]), nil
	}
	return object.Unit(), errAt(errors.New("TYPE-0001", map[string]any{
		"Function": "index", "Expected": "array, map or string", "Got": left.TypeName(),
	}), ex.Pos())
}

func indexOutOfBounds(i int64, n int) *errors.ChervilError {
	return errors.New("STATE-0001", map[string]any{
		"Message": fmt.Sprintf("index out of bounds: %d (length %d)", i, n),
	})
}

func (in *interp) evalProperty(ex *ast.DotExpression, env *Environment) (object.Dynamic, error) {
	left, err := in.evalExpr(ex.Left, env)
	if err != nil {
		return object.Unit(), err
	}
	left, err = left.Flatten()
	if err != nil {
		return object.Unit(), errAt(err, ex.Pos())
	}
	m, ok := left.AsMap()
	if !ok {
		return object.Unit(), errAt(errors.New("TYPE-0001", map[string]any{
			"Function": "property access", "Expected": object.TypeMap, "Got": left.TypeName(),
		}), ex.Pos())
	}
	if v, ok := m[ex.Name]; ok {
		return v.Clone(), nil
	}
	return object.Unit(), errAt(errors.New("STATE-0001", map[string]any{
		"Message": "property not found: " + ex.Name,
	}), ex.Pos())
}

func (in *interp) evalClosure(cl *ast.ClosureLiteral, env *Environment) (object.Dynamic, error) {
	info, ok := in.compiled.closures[cl]
	if !ok {
		return object.Unit(), errAt(errors.New("STATE-0001", map[string]any{
			"Message": "closure was not compiled",
		}), cl.Pos())
	}

	curried := make([]object.Dynamic, len(info.captures))
	for i, name := range info.captures {
		if shared, ok := env.Promote(name); ok {
			curried[i] = shared
		} else {
			curried[i] = object.Unit().Share()
		}
	}
	return object.Fn(&object.FnPtr{Name: info.name, Curried: curried}), nil
}

func (in *interp) evalPathConstant(ex *ast.PathExpression) (object.Dynamic, error) {
	m, last, err := in.resolvePath(ex)
	if err != nil {
		return object.Unit(), err
	}
	if v, ok := m.GetConstant(last); ok {
		return v.Clone(), nil
	}
	return object.Unit(), errAt(errors.New("MOD-0002", map[string]any{
		"Module": ex.Segments[len(ex.Segments)-2],
		"Name":   last,
	}), ex.Pos())
}

// resolvePath walks alias::sub::...::member down to the module holding
// the final member.
func (in *interp) resolvePath(ex *ast.PathExpression) (*module.Module, string, error) {
	segs := ex.Segments
	m, ok := in.imports[segs[0]]
	if !ok {
		return nil, "", errAt(errors.New("MOD-0001", map[string]any{"Path": segs[0]}), ex.Pos())
	}
	for _, seg := range segs[1 : len(segs)-1] {
		sub, ok := m.GetSubModule(seg)
		if !ok {
			return nil, "", errAt(errors.New("MOD-0002", map[string]any{
				"Module": segs[0],
				"Name":   seg,
			}), ex.Pos())
		}
		m = sub
	}
	return m, segs[len(segs)-1], nil
}

func (in *interp) evalAssign(st *ast.AssignmentStatement, env *Environment) error {
	rhs, err := in.evalExpr(st.Value, env)
	if err != nil {
		return err
	}
	baseOp, compound := compoundOps[st.Operator]

	compute := func(old object.Dynamic) (object.Dynamic, error) {
		if !compound {
			return rhs, nil
		}
		return in.dispatch(baseOp, []object.Dynamic{old, rhs}, st.Pos())
	}

	switch target := st.Target.(type) {
	case *ast.Identifier:
		name := target.Value
		if env.IsConst(name) {
			return errAt(errors.New("STATE-0001", map[string]any{
				"Message": "cannot assign to constant '" + name + "'",
			}), st.Pos())
		}
		slot, ok := env.GetRef(name)
		if !ok {
			return errAt(errors.New("UNDEF-0001", map[string]any{"Name": name}), st.Pos())
		}
		if cell, shared := (*slot).AsCell(); shared {
			inner, release, err := cell.WriteLock()
			if err != nil {
				return errAt(err, st.Pos())
			}
			defer release()
			v, err := compute(*inner)
			if err != nil {
				return err
			}
			*inner = v
			return nil
		}
		v, err := compute(*slot)
		if err != nil {
			return err
		}
		*slot = v
		return nil

	case *ast.IndexExpression:
		container, release, err := in.containerRef(target.Left, env)
		if err != nil {
			return err
		}
		defer release()
		idx, err := in.evalExpr(target.Index, env)
		if err != nil {
			return err
		}
		idx, err = idx.Flatten()
		if err != nil {
			return errAt(err, target.Index.Pos())
		}

		if elems, ok := container.AsArray(); ok {
			i, ok := idx.AsInt()
			if !ok {
				return errAt(errors.New("TYPE-0001", map[string]any{
					"Function": "index", "Expected": object.TypeInt, "Got": idx.TypeName(),
				}), target.Index.Pos())
			}
			if i < 0 || i >= int64(len(elems)) {
				return errAt(indexOutOfBounds(i, len(elems)), st.Pos())
			}
			v, err := compute(elems[i])
			if err != nil {
				return err
			}
			elems[i] = v
			return nil
		}
		if m, ok := container.AsMap(); ok {
			k, ok := idx.AsString()
			if !ok {
				return errAt(errors.New("TYPE-0001", map[string]any{
					"Function": "index", "Expected": object.TypeString, "Got": idx.TypeName(),
				}), target.Index.Pos())
			}
			v, err := compute(m[k])
			if err != nil {
				return err
			}
			m[k] = v
			return nil
		}
		return errAt(errors.New("TYPE-0001", map[string]any{
			"Function": "index assignment", "Expected": "array or map", "Got": container.TypeName(),
		}), st.Pos())

	case *ast.DotExpression:
		container, release, err := in.containerRef(target.Left, env)
		if err != nil {
			return err
		}
		defer release()
		m, ok := container.AsMap()
		if !ok {
			return errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "property assignment", "Expected": object.TypeMap, "Got": container.TypeName(),
			}), st.Pos())
		}
		v, err := compute(m[target.Name])
		if err != nil {
			return err
		}
		m[target.Name] = v
		return nil
	}

	return errAt(errors.New("PARSE-0005", nil), st.Pos())
}

// containerRef resolves an expression to a container value that aliases
// the underlying storage, write-locking any shared cell on the way. The
// release function unwinds the locks.
func (in *interp) containerRef(e ast.Expression, env *Environment) (object.Dynamic, func(), error) {
	noop := func() {}

	unwrap := func(v object.Dynamic, release func()) (object.Dynamic, func(), error) {
		cell, shared := v.AsCell()
		if !shared {
			return v, release, nil
		}
		inner, unlock, err := cell.WriteLock()
		if err != nil {
			release()
			return object.Unit(), noop, errAt(err, e.Pos())
		}
		return *inner, func() { unlock(); release() }, nil
	}

	switch t := e.(type) {
	case *ast.Identifier:
		slot, ok := env.GetRef(t.Value)
		if !ok {
			return object.Unit(), noop, errAt(errors.New("UNDEF-0001", map[string]any{"Name": t.Value}), t.Pos())
		}
		return unwrap(*slot, noop)

	case *ast.IndexExpression:
		outer, release, err := in.containerRef(t.Left, env)
		if err != nil {
			return object.Unit(), noop, err
		}
		idx, err := in.evalExpr(t.Index, env)
		if err != nil {
			release()
			return object.Unit(), noop, err
		}
		idx, err = idx.Flatten()
		if err != nil {
			release()
			return object.Unit(), noop, errAt(err, t.Index.Pos())
		}
		if elems, ok := outer.AsArray(); ok {
			i, iok := idx.AsInt()
			if !iok || i < 0 || i >= int64(len(elems)) {
				release()
				return object.Unit(), noop, errAt(indexOutOfBounds(intOrMinus(idx), len(elems)), t.Pos())
			}
			return unwrap(elems[i], release)
		}
		if m, ok := outer.AsMap(); ok {
			k, kok := idx.AsString()
			if !kok {
				release()
				return object.Unit(), noop, errAt(errors.New("TYPE-0001", map[string]any{
					"Function": "index", "Expected": object.TypeString, "Got": idx.TypeName(),
				}), t.Index.Pos())
			}
			return unwrap(m[k], release)
		}
		release()
		return object.Unit(), noop, errAt(errors.New("TYPE-0001", map[string]any{
			"Function": "index", "Expected": "array or map", "Got": outer.TypeName(),
		}), t.Pos())

	case *ast.DotExpression:
		if t.Call != nil {
			break
		}
		outer, release, err := in.containerRef(t.Left, env)
		if err != nil {
			return object.Unit(), noop, err
		}
		m, ok := outer.AsMap()
		if !ok {
			release()
			return object.Unit(), noop, errAt(errors.New("TYPE-0001", map[string]any{
				"Function": "property access", "Expected": object.TypeMap, "Got": outer.TypeName(),
			}), t.Pos())
		}
		return unwrap(m[t.Name], release)
	}

	// Anything else is evaluated as a temporary.
	v, err := in.evalExpr(e, env)
	if err != nil {
		return object.Unit(), noop, err
	}
	return unwrap(v, noop)
}

func intOrMinus(d object.Dynamic) int64 {
	if i, ok := d.AsInt(); ok {
		return i
	}
	return -1
}
