package loxx

import "fmt"

// ObjKind discriminates the Obj sum type, mirroring Value's ValueType.
type ObjKind uint8

const (
	ObjKindString ObjKind = iota
	ObjKindFunction
	ObjKindNative
	ObjKindClosure
	ObjKindUpvalue
)

// NativeFn is the signature every native function value must implement.
type NativeFn func(args []Value) (Value, error)

// Obj is the common representation for every heap-allocated value. Next
// threads it into the VM's single live-object list so the whole heap can be
// walked and freed at shutdown without a tracing collector. Every variant's
// payload lives in the same struct, keyed off Kind, rather than behind a
// per-kind Go type — the same tagged-union approach as Value.
type Obj struct {
	Kind ObjKind
	Next *Obj

	// ObjKindString
	chars []byte
	hash  uint32

	// ObjKindFunction
	arity        int
	upvalueCount int
	name         *Obj // ObjKindString, nil for the top-level script
	fnChunk      chunk

	// ObjKindNative
	native NativeFn

	// ObjKindClosure
	function *Obj
	upvalues []*Obj // each ObjKindUpvalue

	// ObjKindUpvalue
	location int  // index into VM.stack while open, -1 once closed
	closed   Value // holds the value once closed
	openNext *Obj  // next node in VM.openUpvalues, open upvalues only
}

func newStringObj(chars []byte, hash uint32) *Obj {
	return &Obj{Kind: ObjKindString, chars: chars, hash: hash}
}

func newFunctionObj() *Obj {
	return &Obj{Kind: ObjKindFunction, fnChunk: newChunk()}
}

func newNativeObj(fn NativeFn, arity int) *Obj {
	return &Obj{Kind: ObjKindNative, native: fn, arity: arity}
}

func newClosureObj(fn *Obj) *Obj {
	return &Obj{
		Kind:     ObjKindClosure,
		function: fn,
		upvalues: make([]*Obj, fn.upvalueCount),
	}
}

func newUpvalueObj(slot int) *Obj {
	return &Obj{Kind: ObjKindUpvalue, location: slot, closed: NilValue()}
}

func (o *Obj) getUpvalue(stack []Value) Value {
	if o.location == -1 {
		return o.closed
	}
	return stack[o.location]
}

func (o *Obj) setUpvalue(stack []Value, v Value) {
	if o.location == -1 {
		o.closed = v
		return
	}
	stack[o.location] = v
}

// closeUpvalue copies the referenced stack slot's value out of the stack
// and retargets location to -1, so the upvalue stays valid after its frame
// returns.
func (o *Obj) closeUpvalue(stack []Value) {
	o.closed = stack[o.location]
	o.location = -1
}

func printObj(o *Obj) string {
	switch o.Kind {
	case ObjKindString:
		return string(o.chars)
	case ObjKindFunction:
		if o.name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", string(o.name.chars))
	case ObjKindNative:
		return "<native fn>"
	case ObjKindClosure:
		return printObj(o.function)
	default:
		return "<obj>"
	}
}

// hashBytes is FNV-1a, the hash clox uses for string interning.
func hashBytes(b []byte) uint32 {
	var hash uint32 = 2166136261
	for _, c := range b {
		hash ^= uint32(c)
		hash *= 16777619
	}
	return hash
}
