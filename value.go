package loxx

import "fmt"

// ValueType discriminates the Value sum type. Values are a fixed-size
// struct rather than an interface: §9 calls for a tagged union here, not
// subtype polymorphism.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj
)

type Value struct {
	Type ValueType
	as   struct {
		boolean bool
		number  float64
		obj     *Obj
	}
}

func NilValue() Value { return Value{Type: ValNil} }

func BoolValue(b bool) Value {
	v := Value{Type: ValBool}
	v.as.boolean = b
	return v
}

func NumberValue(n float64) Value {
	v := Value{Type: ValNumber}
	v.as.number = n
	return v
}

func ObjValue(o *Obj) Value {
	v := Value{Type: ValObj}
	v.as.obj = o
	return v
}

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

func (v Value) AsBool() bool      { return v.as.boolean }
func (v Value) AsNumber() float64 { return v.as.number }
func (v Value) AsObj() *Obj       { return v.as.obj }

func (v Value) isObjKind(k ObjKind) bool {
	return v.Type == ValObj && v.as.obj.Kind == k
}

func (v Value) IsString() bool   { return v.isObjKind(ObjKindString) }
func (v Value) IsFunction() bool { return v.isObjKind(ObjKindFunction) }
func (v Value) IsClosure() bool  { return v.isObjKind(ObjKindClosure) }
func (v Value) IsNative() bool   { return v.isObjKind(ObjKindNative) }

// isFalsey treats nil and false as falsey; everything else, including 0 and
// the empty string, is truthy.
func isFalsey(v Value) bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

func valuesEqual(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case ValNil:
		return true
	case ValBool:
		return a.AsBool() == b.AsBool()
	case ValNumber:
		return a.AsNumber() == b.AsNumber()
	case ValObj:
		return a.AsObj() == b.AsObj()
	default:
		return false
	}
}

// printValue renders a Value the way `print` and the disassembler do.
// Numbers use 6 significant digits with trailing zeros stripped, matching
// the book's printf("%g", ...) default precision.
func printValue(v Value) string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValNumber:
		return fmt.Sprintf("%.6g", v.AsNumber())
	case ValObj:
		return printObj(v.AsObj())
	default:
		return "<unknown value>"
	}
}
