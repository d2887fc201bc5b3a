package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chervil-lang/chervil/pkg/chervil/config"
	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/evaluator"
	"github.com/chervil-lang/chervil/pkg/chervil/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.1.0"

var (
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")

	evalFlag     = flag.String("e", "", "Evaluate code string")
	evalLongFlag = flag.String("eval", "", "Evaluate code string")
	checkFlag    = flag.Bool("check", false, "Check syntax without executing")

	configFlag    = flag.String("config", "", "Path to a YAML config file")
	maxOpsFlag    = flag.Uint64("max-ops", 0, "Abort scripts after this many operations (0 = unlimited)")
	uncheckedFlag = flag.Bool("unchecked", false, "Use wrapping integer arithmetic")
)

func main() {
	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag || *versionLongFlag {
		fmt.Printf("chervil version %s\n", Version)
		os.Exit(0)
	}

	evalCode := *evalFlag
	if evalCode == "" {
		evalCode = *evalLongFlag
	}

	switch {
	case evalCode != "":
		os.Exit(runSource(evalCode, "", ""))
	case *checkFlag:
		files := flag.Args()
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "Error: --check requires at least one file")
			os.Exit(2)
		}
		os.Exit(checkFiles(files))
	case len(flag.Args()) > 0:
		file := flag.Args()[0]
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", file, err)
			os.Exit(1)
		}
		os.Exit(runSource(string(src), file, filepath.Dir(file)))
	default:
		eng, cleanup, err := buildEngine("")
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		defer cleanup()
		repl.Start(eng, os.Stdout, Version)
	}
}

// buildEngine assembles an engine from the config file (if given) plus
// command-line overrides. moduleRoot, when set, becomes the import root
// unless the config names one.
func buildEngine(moduleRoot string) (*evaluator.Engine, func(), error) {
	cfg := config.Defaults()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if *maxOpsFlag > 0 {
		cfg.MaxOperations = *maxOpsFlag
	}
	if *uncheckedFlag {
		cfg.UncheckedArithmetic = true
	}
	if cfg.ModuleRoot == "" {
		cfg.ModuleRoot = moduleRoot
	}

	eng, resolver, err := cfg.NewEngine()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	if resolver != nil {
		cleanup = func() { resolver.Close() }
	}
	return eng, cleanup, nil
}

func runSource(src, file, moduleRoot string) int {
	eng, cleanup, err := buildEngine(moduleRoot)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	defer cleanup()

	result, err := eng.Eval(src)
	if err != nil {
		printError(err, file)
		return 1
	}
	if !result.IsUnit() {
		fmt.Println(result.String())
	}
	return 0
}

// checkFiles parses each file without executing. Every file is reported;
// the exit code is nonzero if any failed.
func checkFiles(files []string) int {
	eng := evaluator.New()
	code := 0
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			code = 1
			continue
		}
		if _, err := eng.Compile(string(src)); err != nil {
			printError(err, file)
			code = 1
			continue
		}
		fmt.Printf("%s: OK\n", file)
	}
	return code
}

func printError(err error, file string) {
	if ce, ok := err.(*errors.ChervilError); ok && file != "" && ce.File == "" {
		err = ce.WithFile(file)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
}

func printHelp() {
	fmt.Printf(`chervil - Chervil language interpreter version %s

Usage:
  chervil [flags] [script.chv] [args...]

Modes:
  chervil                    Start the interactive REPL
  chervil script.chv         Run a script (imports resolve next to it)
  chervil -e 'code'          Evaluate a code string
  chervil --check file...    Check syntax without executing

Flags:
  -h, --help                 Show this help
  -V, --version              Show version
  -e, --eval <code>          Evaluate a code string
      --check                Check syntax without executing
      --config <path>        Load a YAML config file
      --max-ops <n>          Abort scripts after n operations
      --unchecked            Use wrapping integer arithmetic
`, Version)
}
