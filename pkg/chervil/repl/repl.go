// Package repl implements the interactive shell: line editing, history,
// tab completion over the keyword and builtin tables, and multi-line
// input collection.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/chervil-lang/chervil/pkg/chervil/evaluator"
)

const PROMPT = ">> "
const CONTINUATION_PROMPT = ".. "

const LOGO = `
█▀▀ █░█ █▀▀ █▀█ █░█ █ █░░
█▄▄ █▀█ ██▄ █▀▄ ▀▄▀ █ █▄▄ `

// completionWords feeds tab completion: keywords first, then builtins
// and the standard packages.
var completionWords = []string{
	// Keywords
	"let", "const", "fn", "private", "return", "if", "else", "while",
	"loop", "for", "in", "break", "continue", "import", "export", "as",
	"throw", "this", "true", "false",
	// Builtins
	"print", "debug", "type_of", "is_shared", "Fn", "call", "curry", "eval",
	// Strings
	"to_string", "len", "sub_string", "contains", "to_upper", "to_lower",
	"trim", "split", "replace",
	// Containers
	"range", "push", "pop", "keys", "values", "remove",
	// Math
	"abs", "sign", "sqrt", "to_float", "to_int",
	// Time
	"now", "parse_time", "format_time",
	// Misc
	"gzip", "gunzip", "blake2b",
	// Storage
	"kv_open", "kv_get", "kv_put", "kv_delete", "kv_close",
}

// Start runs the REPL loop against an engine until exit or Ctrl+D. The
// scope persists across inputs, so definitions accumulate.
func Start(eng *evaluator.Engine, out io.Writer, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(filterCompletions)

	historyFile := filepath.Join(os.TempDir(), ".chervil_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	scope := evaluator.NewEnvironment()

	fmt.Fprintf(out, "%s", LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := PROMPT
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			scope = handleReplCommand(trimmed, scope, out)
			continue
		}

		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}

		if trimmed != "" {
			line.AppendHistory(fullInput)
		}

		result, err := eng.EvalWithScope(scope, fullInput)
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
		} else if result.IsUnit() {
			fmt.Fprintln(out, "OK")
		} else {
			fmt.Fprintln(out, result.Inspect())
		}

		inputBuffer.Reset()
	}
}

// handleReplCommand handles meta-commands starting with ':'. It returns
// the scope to use afterwards, so :clear can swap in a fresh one.
func handleReplCommand(cmd string, scope *evaluator.Environment, out io.Writer) *evaluator.Environment {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :env            Show variables in scope")
		fmt.Fprintln(out, "  :clear          Clear all variables")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")
		return scope

	case ":env":
		printScope(scope, out)
		return scope

	case ":clear":
		fmt.Fprintln(out, "Scope cleared")
		return evaluator.NewEnvironment()

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
		return scope
	}
}

// printScope displays the variables defined in the REPL scope.
func printScope(scope *evaluator.Environment, out io.Writer) {
	names := scope.Names()
	if len(names) == 0 {
		fmt.Fprintln(out, "(no variables)")
		return
	}
	sort.Strings(names)

	for _, name := range names {
		v, _ := scope.Get(name)
		value := v.Inspect()
		if len(value) > 60 {
			value = value[:57] + "..."
		}
		fmt.Fprintf(out, "  %s: %s = %s\n", name, v.TypeName(), value)
	}
}

// filterCompletions returns the completion candidates for the word being
// typed.
func filterCompletions(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}

	words := strings.Fields(line)
	lastWord := words[len(words)-1]

	var matches []string
	for _, word := range completionWords {
		if strings.HasPrefix(word, lastWord) {
			matches = append(matches, word)
		}
	}
	return matches
}

// needsMoreInput reports whether the input has unclosed braces, brackets
// or parentheses outside of string literals.
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	braceCount := 0
	bracketCount := 0
	parenCount := 0
	inString := false
	escapeNext := false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if ch == '\\' {
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			braceCount++
		case '}':
			braceCount--
		case '[':
			bracketCount++
		case ']':
			bracketCount--
		case '(':
			parenCount++
		case ')':
			parenCount--
		}
	}

	return braceCount > 0 || bracketCount > 0 || parenCount > 0
}
