package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
)

func TestClosureCaptureAndMutate(t *testing.T) {
	src := `
let a = 41;
let f = || { a += 1; };
f.call();
a
`
	assert.Equal(t, int64(42), testInt(t, src))
}

func TestCaptureSharesTheVariable(t *testing.T) {
	assert.False(t, testBool(t, "let a = 1; is_shared(a)"))
	assert.True(t, testBool(t, "let a = 1; let f = || a; is_shared(a)"))
	// Returning a capture keeps it shared inside the script.
	assert.True(t, testBool(t, "let a = 1; let f = || a; is_shared(f.call())"))
}

func TestSharedStateAcrossClosures(t *testing.T) {
	src := `
let a = 1;
let inc = || { a += 1; };
let get = || a;
inc.call();
inc.call();
get.call()
`
	assert.Equal(t, int64(3), testInt(t, src))
}

func TestClosureWithParameters(t *testing.T) {
	assert.Equal(t, int64(42), testInt(t, "let add = |x, y| x + y; add.call(40, 2)"))
	assert.Equal(t, int64(42), testInt(t, "let add = |x, y| x + y; add(40, 2)"))
}

func TestNestedClosures(t *testing.T) {
	src := `
let x = 1;
let outer = |a| {
	let inner = |b| { x + a + b };
	inner.call(10)
};
outer.call(100)
`
	assert.Equal(t, int64(111), testInt(t, src))
}

func TestClosureCapturesFunctionParameter(t *testing.T) {
	src := `
fn make_adder(n) {
	|x| x + n
}
let add2 = make_adder(2);
add2.call(40)
`
	assert.Equal(t, int64(42), testInt(t, src))
}

func TestFnPtrByName(t *testing.T) {
	src := `
fn add(x, y) { x + y }
let f = Fn("add");
f.call(40, 2)
`
	assert.Equal(t, int64(42), testInt(t, src))
}

func TestFnPtrInvalidName(t *testing.T) {
	ce := testErr(t, `Fn("not a name")`)
	assert.Equal(t, errors.ClassFunction, ce.Class)
	assert.Contains(t, ce.Message, "invalid function name")
}

func TestCurryScriptFunction(t *testing.T) {
	src := `
fn add(x, y) { x + y }
let f = Fn("add");
f.curry(40).call(2)
`
	assert.Equal(t, int64(42), testInt(t, src))
}

func TestCurryClosure(t *testing.T) {
	src := `
let add = |x, y| x + y;
let f = add.curry(40);
f.call(2)
`
	assert.Equal(t, int64(42), testInt(t, src))
}

func TestCurryComposes(t *testing.T) {
	src := `
fn add3(a, b, c) { a + b + c }
Fn("add3").curry(1).curry(2).call(39)
`
	assert.Equal(t, int64(42), testInt(t, src))
}

func TestMethodCallBindsThis(t *testing.T) {
	src := `
let x = 20;
let f = |n| { this += n; };
x.call(f, 1);
x
`
	assert.Equal(t, int64(21), testInt(t, src))
}

func TestDataRaceDetected(t *testing.T) {
	src := `
let x = 20;
let f = |n| { this += n + x; };
x.call(f, 2)
`
	ce := testErr(t, src)
	assert.Equal(t, errors.ClassRace, ce.Class)
	assert.Contains(t, ce.Message, "data race detected")
}

func TestThisUnbound(t *testing.T) {
	ce := testErr(t, "fn f() { this } f()")
	assert.Equal(t, errors.ClassState, ce.Class)
	assert.Contains(t, ce.Message, "'this' is not bound")
}

func TestClosuresInsideLoops(t *testing.T) {
	src := `
let total = 0;
let add = |n| { total += n; };
for i in range(1, 5) {
	add.call(i);
}
total
`
	assert.Equal(t, int64(10), testInt(t, src))
}

func TestClosureResultIsFlattenedAtBoundary(t *testing.T) {
	src := `
let a = 41;
let f = || { a += 1; };
f.call();
a
`
	v := testEval(t, src)
	require.False(t, v.IsShared())
	i, _ := v.AsInt()
	assert.Equal(t, int64(42), i)
}
