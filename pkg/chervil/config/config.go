// Package config loads engine configuration from YAML: evaluation
// limits, the arithmetic policy, custom keywords, disabled symbols and
// the module search root.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chervil-lang/chervil/pkg/chervil/evaluator"
)

// Config holds everything about an engine that is data rather than code.
type Config struct {
	// MaxStringSize caps string literal length. Zero means unlimited.
	MaxStringSize int `yaml:"max_string_size"`
	// MaxOperations caps evaluation steps per run. Zero means unlimited.
	MaxOperations uint64 `yaml:"max_operations"`
	// UncheckedArithmetic switches integer arithmetic to wrapping.
	UncheckedArithmetic bool `yaml:"unchecked_arithmetic"`
	// CustomKeywords maps additional keywords to their precedence.
	CustomKeywords map[string]int `yaml:"custom_keywords"`
	// DisabledSymbols lists keywords and operators to reject at lex time.
	DisabledSymbols []string `yaml:"disabled_symbols"`
	// ModuleRoot is the directory imports resolve against. Empty disables
	// file imports.
	ModuleRoot string `yaml:"module_root"`
}

// Defaults returns a Config matching a freshly constructed engine.
func Defaults() *Config {
	return &Config{
		MaxStringSize: 0,
		MaxOperations: 0,
	}
}

// Load reads a YAML config file over the defaults. Relative module roots
// resolve against the directory containing the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ModuleRoot != "" && !filepath.IsAbs(cfg.ModuleRoot) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		cfg.ModuleRoot = filepath.Join(filepath.Dir(absPath), cfg.ModuleRoot)
	}
	return cfg, nil
}

// Validate checks the limits and keyword table for values the engine
// cannot accept.
func (c *Config) Validate() error {
	if c.MaxStringSize < 0 {
		return fmt.Errorf("max_string_size must not be negative, got %d", c.MaxStringSize)
	}
	for kw, prec := range c.CustomKeywords {
		if kw == "" {
			return fmt.Errorf("custom keyword name must not be empty")
		}
		if prec < 0 {
			return fmt.Errorf("custom keyword %q has negative precedence %d", kw, prec)
		}
	}
	return nil
}

// NewEngine builds a configured engine with the standard packages
// registered. When ModuleRoot is set the engine gets a file resolver;
// the caller owns the returned resolver and should close it when done.
func (c *Config) NewEngine() (*evaluator.Engine, *evaluator.FileResolver, error) {
	e := evaluator.New().
		SetMaxStringSize(c.MaxStringSize).
		SetMaxOperations(c.MaxOperations)

	if c.UncheckedArithmetic {
		e.SetUncheckedArithmetic(true)
	}
	if len(c.CustomKeywords) > 0 {
		e.SetCustomKeywords(c.CustomKeywords)
	}
	for _, sym := range c.DisabledSymbols {
		e.DisableSymbol(sym)
	}

	var resolver *evaluator.FileResolver
	if c.ModuleRoot != "" {
		r, err := evaluator.NewFileResolver(e, c.ModuleRoot)
		if err != nil {
			return nil, nil, err
		}
		e.SetModuleResolver(r)
		resolver = r
	}
	return e, resolver, nil
}
