package evaluator

import (
	"fmt"
	"reflect"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

var (
	dynamicType    = reflect.TypeOf(object.Dynamic{})
	dynamicPtrType = reflect.TypeOf((*object.Dynamic)(nil))
	fnPtrType      = reflect.TypeOf((*object.FnPtr)(nil))
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

// RegisterRawFn registers a native function under an explicit signature.
// The function sees its arguments by pointer and may mutate args[0] when
// registered as a method.
func (e *Engine) RegisterRawFn(name string, argTypes []string, fn module.NativeFunc) *Engine {
	e.global.SetFn(name, module.Public, argTypes, fn)
	return e
}

// RegisterConstant exposes a host value as a global constant.
func (e *Engine) RegisterConstant(name string, value any) *Engine {
	e.global.SetConstant(name, e.toDynamic(reflect.ValueOf(value)))
	return e
}

// RegisterFn registers a plain Go function. The signature is derived by
// reflection: parameters map onto script types, a pointer first parameter
// makes the function a method with a mutable receiver, and the return
// value (if any) maps back. Functions that can fail belong in
// RegisterResultFn.
func (e *Engine) RegisterFn(name string, fn any) *Engine {
	e.registerReflect(name, fn, false)
	return e
}

// RegisterResultFn registers a Go function whose last return value is an
// error. A non-nil error surfaces as a runtime error naming the function.
func (e *Engine) RegisterResultFn(name string, fn any) *Engine {
	e.registerReflect(name, fn, true)
	return e
}

func (e *Engine) registerReflect(name string, fn any, hasErr bool) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func || t.IsVariadic() {
		panic(fmt.Sprintf("chervil: cannot register %q: need a non-variadic function, got %T", name, fn))
	}

	numOut := t.NumOut()
	if hasErr {
		if numOut == 0 || !t.Out(numOut-1).Implements(errorType) {
			panic(fmt.Sprintf("chervil: cannot register %q: last return value must be error", name))
		}
	}
	valueOuts := numOut
	if hasErr {
		valueOuts--
	}
	if valueOuts > 1 {
		panic(fmt.Sprintf("chervil: cannot register %q: at most one value return", name))
	}

	numIn := t.NumIn()
	argTypes := make([]string, numIn)
	mutableRecv := numIn > 0 && t.In(0).Kind() == reflect.Ptr
	for i := 0; i < numIn; i++ {
		at := t.In(i)
		if i == 0 && mutableRecv {
			if at == dynamicPtrType {
				argTypes[i] = object.TypeDynamic
			} else {
				argTypes[i] = e.scriptTypeName(at.Elem())
			}
			continue
		}
		argTypes[i] = e.scriptTypeName(at)
	}

	wrapper := func(c object.Caller, args []*object.Dynamic) (object.Dynamic, error) {
		callArgs := make([]reflect.Value, numIn)
		var recvSlot reflect.Value
		for i := 0; i < numIn; i++ {
			if i == 0 && mutableRecv {
				if t.In(0) == dynamicPtrType {
					callArgs[0] = reflect.ValueOf(args[0])
					continue
				}
				gv, err := e.fromDynamic(*args[0], t.In(0).Elem(), name)
				if err != nil {
					return object.Unit(), err
				}
				recvSlot = reflect.New(t.In(0).Elem())
				recvSlot.Elem().Set(gv)
				callArgs[0] = recvSlot
				continue
			}
			gv, err := e.fromDynamic(*args[i], t.In(i), name)
			if err != nil {
				return object.Unit(), err
			}
			callArgs[i] = gv
		}

		outs := v.Call(callArgs)

		if mutableRecv && recvSlot.IsValid() {
			*args[0] = e.toDynamic(recvSlot.Elem())
		}
		if hasErr {
			if errVal := outs[len(outs)-1]; !errVal.IsNil() {
				return object.Unit(), errVal.Interface().(error)
			}
			outs = outs[:len(outs)-1]
		}
		if len(outs) == 0 {
			return object.Unit(), nil
		}
		return e.toDynamic(outs[0]), nil
	}

	e.global.SetFn(name, module.Public, argTypes, wrapper)
}

// scriptTypeName maps a Go type onto the canonical script type name used
// for dispatch, so every host spelling of a concept hits the same
// overload.
func (e *Engine) scriptTypeName(t reflect.Type) string {
	if t == dynamicType {
		return object.TypeDynamic
	}
	if t == fnPtrType {
		return object.TypeFnPtr
	}
	switch t.Kind() {
	case reflect.Bool:
		return object.TypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return object.TypeInt
	case reflect.Int32:
		// rune
		return object.TypeChar
	case reflect.Float32, reflect.Float64:
		return object.TypeFloat
	case reflect.String:
		return object.TypeString
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return object.TypeString
		}
		if t.Elem() == dynamicType {
			return object.TypeArray
		}
	case reflect.Map:
		if t.Key().Kind() == reflect.String && t.Elem() == dynamicType {
			return object.TypeMap
		}
	}
	if name, ok := e.typeNames[t]; ok {
		return name
	}
	return t.String()
}

// fromDynamic converts a script value to the Go type a registered
// function expects.
func (e *Engine) fromDynamic(d object.Dynamic, t reflect.Type, fnName string) (reflect.Value, error) {
	d, err := d.Flatten()
	if err != nil {
		return reflect.Value{}, err
	}
	if t == dynamicType {
		return reflect.ValueOf(d), nil
	}

	mismatch := func() error {
		return errors.New("TYPE-0001", map[string]any{
			"Function": fnName,
			"Expected": e.scriptTypeName(t),
			"Got":      d.TypeName(),
		})
	}

	switch e.scriptTypeName(t) {
	case object.TypeBool:
		if b, ok := d.AsBool(); ok {
			return reflect.ValueOf(b).Convert(t), nil
		}
	case object.TypeInt:
		if i, ok := d.AsInt(); ok {
			return reflect.ValueOf(i).Convert(t), nil
		}
	case object.TypeChar:
		if c, ok := d.AsChar(); ok {
			return reflect.ValueOf(c).Convert(t), nil
		}
	case object.TypeFloat:
		if f, ok := d.AsFloat(); ok {
			return reflect.ValueOf(f).Convert(t), nil
		}
	case object.TypeString:
		if s, ok := d.AsString(); ok {
			if t.Kind() == reflect.Slice {
				return reflect.ValueOf([]byte(s)), nil
			}
			return reflect.ValueOf(s).Convert(t), nil
		}
	case object.TypeArray:
		if a, ok := d.AsArray(); ok {
			return reflect.ValueOf(a), nil
		}
	case object.TypeMap:
		if m, ok := d.AsMap(); ok {
			return reflect.ValueOf(m), nil
		}
	case object.TypeFnPtr:
		if fp, ok := d.AsFnPtr(); ok {
			return reflect.ValueOf(fp), nil
		}
	default:
		if v, ok := d.AsVariant(); ok {
			rv := reflect.ValueOf(v.Value)
			if rv.Type().AssignableTo(t) {
				return rv, nil
			}
		}
	}
	return reflect.Value{}, mismatch()
}

// toDynamic converts a Go value returned by a registered function into a
// script value. Unknown types are boxed as custom-typed variants.
func (e *Engine) toDynamic(v reflect.Value) object.Dynamic {
	if !v.IsValid() {
		return object.Unit()
	}
	t := v.Type()
	if t == dynamicType {
		return v.Interface().(object.Dynamic)
	}
	if t == fnPtrType {
		return object.Fn(v.Interface().(*object.FnPtr))
	}

	switch e.scriptTypeName(t) {
	case object.TypeBool:
		return object.Bool(v.Bool())
	case object.TypeInt:
		if t.Kind() >= reflect.Uint && t.Kind() <= reflect.Uint64 {
			return object.Int(int64(v.Uint()))
		}
		return object.Int(v.Int())
	case object.TypeChar:
		return object.Char(rune(v.Int()))
	case object.TypeFloat:
		return object.Float(v.Float())
	case object.TypeString:
		if t.Kind() == reflect.Slice {
			return object.Str(string(v.Bytes()))
		}
		return object.Str(v.String())
	case object.TypeArray:
		return object.Array(v.Interface().([]object.Dynamic))
	case object.TypeMap:
		return object.Map(v.Interface().(map[string]object.Dynamic))
	}
	return object.NewVariant(e.scriptTypeName(t), v.Interface())
}
