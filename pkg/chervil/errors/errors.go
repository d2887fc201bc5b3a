// Package errors provides structured error types for the Chervil engine.
//
// This package defines ChervilError, a unified error type that represents
// lexer, parser and runtime failures with enough metadata for display and
// programmatic handling. Every failure in the engine is representable as
// data: an error class, a code, a message, and a source position (which may
// be "none" for errors of native origin).
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassLex        ErrorClass = "lex"        // Tokenizer errors
	ClassParse      ErrorClass = "parse"      // Parser/syntax errors
	ClassType       ErrorClass = "type"       // Type mismatches
	ClassArity      ErrorClass = "arity"      // Wrong argument count
	ClassUndefined  ErrorClass = "undefined"  // Not found/defined
	ClassFunction   ErrorClass = "function"   // Dispatch failures
	ClassModule     ErrorClass = "module"     // Import resolution
	ClassArithmetic ErrorClass = "arithmetic" // Overflow, divide-by-zero
	ClassRace       ErrorClass = "race"       // Illegal shared-value aliasing
	ClassState      ErrorClass = "state"      // Invalid state
	ClassLimit      ErrorClass = "limit"      // Execution limits exceeded
	ClassIO         ErrorClass = "io"         // Host-side I/O (storage package)
)

// ChervilError represents any error from lexing, parsing or evaluation.
type ChervilError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "LEX-0003")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 0-based column within line
	File    string         `json:"file,omitempty"`  // Source name (if known)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (e *ChervilError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *ChervilError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(" (line %d, position %d)", e.Line, e.Column))
	}

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *ChervilError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithPosition returns a copy of the error with line and column set.
func (e *ChervilError) WithPosition(line, column int) *ChervilError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// WithFile returns a copy of the error with the source name set.
func (e *ChervilError) WithFile(file string) *ChervilError {
	copy := *e
	copy.File = file
	return &copy
}

// IsLexError returns true if this error came from the tokenizer.
func (e *ChervilError) IsLexError() bool {
	return e.Class == ClassLex
}

// IsParseError returns true if this is a parser error.
func (e *ChervilError) IsParseError() bool {
	return e.Class == ClassParse || e.Class == ClassLex
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Lex errors (LEX-0xxx)
	// ========================================
	"LEX-0001": {
		Class:    ClassLex,
		Template: "unexpected '{{.Input}}'",
	},
	"LEX-0002": {
		Class:    ClassLex,
		Template: "invalid escape sequence: '{{.Sequence}}'",
	},
	"LEX-0003": {
		Class:    ClassLex,
		Template: "invalid number: '{{.Literal}}'",
	},
	"LEX-0004": {
		Class:    ClassLex,
		Template: "invalid character: '{{.Literal}}'",
	},
	"LEX-0005": {
		Class:    ClassLex,
		Template: "variable name is not proper: '{{.Name}}'",
	},
	"LEX-0006": {
		Class:    ClassLex,
		Template: "open string is not terminated",
	},
	"LEX-0007": {
		Class:    ClassLex,
		Template: "length of string literal exceeds the maximum limit ({{.Max}})",
	},
	"LEX-0008": {
		Class:    ClassLex,
		Template: "{{.Message}}",
	},

	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected token '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "duplicated parameter '{{.Param}}' for function '{{.Function}}'",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "closures are not allowed when compiling a single expression",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "invalid expression",
	},

	// ========================================
	// Dispatch errors (FN-0xxx)
	// ========================================
	"FN-0001": {
		Class:    ClassFunction,
		Template: "function not found: {{.Signature}}",
	},
	"FN-0002": {
		Class:    ClassFunction,
		Template: "error in native function '{{.Function}}': {{.Detail}}",
	},
	"FN-0003": {
		Class:    ClassFunction,
		Template: "invalid function name: '{{.Name}}'",
	},

	// ========================================
	// Module errors (MOD-0xxx)
	// ========================================
	"MOD-0001": {
		Class:    ClassModule,
		Template: "module not found: {{.Path}}",
	},
	"MOD-0002": {
		Class:    ClassModule,
		Template: "module '{{.Module}}' does not export '{{.Name}}'",
	},
	"MOD-0003": {
		Class:    ClassModule,
		Template: "resolver is sealed; cannot register module '{{.Path}}'",
	},

	// ========================================
	// Runtime errors
	// ========================================
	"TYPE-0001": {
		Class:    ClassType,
		Template: "{{.Function}} expected {{.Expected}}, got {{.Got}}",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "cannot call {{.Got}} as a function",
	},
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "wrong number of arguments to `{{.Function}}`. got={{.Got}}, want={{.Want}}",
	},
	"UNDEF-0001": {
		Class:    ClassUndefined,
		Template: "identifier not found: {{.Name}}",
	},
	"ARITH-0001": {
		Class:    ClassArithmetic,
		Template: "{{.Message}}",
	},
	"RACE-0001": {
		Class:    ClassRace,
		Template: "data race detected on '{{.Name}}'",
	},
	"STATE-0001": {
		Class:    ClassState,
		Template: "{{.Message}}",
	},
	"LIMIT-0001": {
		Class:    ClassLimit,
		Template: "script exceeded maximum number of operations ({{.Max}})",
	},
	"IO-0001": {
		Class:    ClassIO,
		Template: "failed to {{.Operation}} '{{.Path}}': {{.GoError}}",
	},
}

// New creates a ChervilError from the catalog.
// Unknown codes produce a generic state error so callers never get nil.
func New(code string, data map[string]any) *ChervilError {
	def, ok := ErrorCatalog[code]
	if !ok {
		return &ChervilError{
			Class:   ClassState,
			Code:    code,
			Message: fmt.Sprintf("unknown error code %q", code),
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &ChervilError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a ChervilError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *ChervilError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *ChervilError {
	return &ChervilError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}
