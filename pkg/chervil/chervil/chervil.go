// Package chervil is the embedding facade: an engine with the standard
// library registered and script output routed through a Logger.
package chervil

import (
	"github.com/chervil-lang/chervil/pkg/chervil/evaluator"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

// Convenience aliases so embedders only import this package for common
// cases.
type (
	Dynamic     = object.Dynamic
	Module      = module.Module
	Environment = evaluator.Environment
)

// Engine wraps the evaluator engine with logging. All evaluator
// configuration methods remain available through the embedded engine.
type Engine struct {
	*evaluator.Engine
	printLogger Logger
	debugLogger Logger
}

// New creates an engine with the standard packages and the default
// stdout logger.
func New() *Engine {
	e := &Engine{
		Engine:      evaluator.New(),
		printLogger: DefaultLogger,
		debugLogger: DefaultLogger,
	}
	e.Engine.OnPrint(func(s string) { e.printLogger.LogLine(s) })
	e.Engine.OnDebug(func(s string) { e.debugLogger.LogLine(s) })
	return e
}

// SetLogger routes both print and debug output to l.
func (e *Engine) SetLogger(l Logger) *Engine {
	e.printLogger = l
	e.debugLogger = l
	return e
}

// SetDebugLogger routes only debug output to l, leaving print alone.
func (e *Engine) SetDebugLogger(l Logger) *Engine {
	e.debugLogger = l
	return e
}

// NewScope creates an empty scope for EvalWithScope and CallFn.
func NewScope() *Environment {
	return evaluator.NewEnvironment()
}
