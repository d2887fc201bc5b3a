package lexer

import "fmt"

// Position is a (line number, character position) location in a script.
//
// Both fields have 16-bit resolution: up to 65,535 lines and 65,535
// characters per line. Advancing beyond either maximum is not an error but
// has no effect (the cursor saturates).
//
// Line 0 is the "none" sentinel used for errors with no source location,
// such as errors raised inside native functions.
type Position struct {
	line uint16 // 1-based line, 0 = none
	col  uint16 // character position, 0 = beginning of line
}

// NewPosition creates a new Position. line must not be zero; a column of
// zero means the beginning of a line.
func NewPosition(line, column uint16) Position {
	if line == 0 {
		panic("line cannot be zero")
	}
	return Position{line: line, col: column}
}

// NoPosition returns the Position representing no location.
func NoPosition() Position {
	return Position{}
}

// IsNone reports whether this is the "none" sentinel.
func (p Position) IsNone() bool {
	return p.line == 0 && p.col == 0
}

// Line returns the 1-based line number, or 0 if there is no position.
func (p Position) Line() int {
	return int(p.line)
}

// Column returns the character position within the line.
func (p Position) Column() int {
	return int(p.col)
}

// Advance moves one character forward, saturating at the maximum column.
func (p *Position) Advance() {
	if p.IsNone() {
		panic("cannot advance a none position")
	}
	if p.col < 0xffff {
		p.col++
	}
}

// Rewind moves one character backward. It is an internal invariant
// violation to rewind at the beginning of a line.
func (p *Position) Rewind() {
	if p.IsNone() {
		panic("cannot rewind a none position")
	}
	if p.col == 0 {
		panic("cannot rewind at position 0")
	}
	p.col--
}

// NewLine moves to the start of the next line, saturating at the maximum
// line number.
func (p *Position) NewLine() {
	if p.IsNone() {
		panic("cannot advance a none position")
	}
	if p.line < 0xffff {
		p.line++
		p.col = 0
	}
}

// String returns "line L, position C", or "none" for the sentinel.
func (p Position) String() string {
	if p.IsNone() {
		return "none"
	}
	return fmt.Sprintf("line %d, position %d", p.line, p.col)
}
