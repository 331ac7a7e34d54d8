package loxx

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrInterpretRuntimeError = errors.New("loxx runtime error")
	ErrInterpretCompileError = errors.New("loxx compile error")
)

type callFrame struct {
	closure *Obj // ObjKindClosure
	ip      int  // instruction pointer
	slots   int  // absolute index of this frame's first stack slot
}

func (f *callFrame) readByte() uint8 {
	f.ip++
	return f.closure.function.fnChunk.code[f.ip-1]
}

func (f *callFrame) readShort() uint16 {
	big := f.readByte()
	small := f.readByte()
	return uint16(big)<<8 | uint16(small)
}

func (f *callFrame) readConstant() Value {
	return f.closure.function.fnChunk.constants[f.readByte()]
}

func (f *callFrame) readString() *Obj {
	return f.readConstant().AsObj()
}

// VM is a stack machine that executes the bytecode the compiler emits. The
// value stack is a fixed-capacity array sized from Config at construction
// and never reallocated, so open upvalues can hold a stable slot index into
// it for the lifetime of the interpreter, exactly like clox's raw Value*
// into a fixed VM.stack array.
type VM struct {
	heap         *Heap
	cfg          *Config
	globals      table
	frames       []callFrame
	stack        []Value
	sp           int
	openUpvalues *Obj
}

// New constructs a VM. A nil cfg uses DefaultConfig().
func New(cfg *Config) *VM {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	vm := &VM{
		heap:    newHeap(),
		cfg:     cfg,
		globals: newTable(),
		frames:  make([]callFrame, 0, cfg.FramesMax),
		stack:   make([]Value, cfg.stackMax()),
	}
	LoadNative(vm, "clock", 0, nativeClock)
	return vm
}

// FreeObjects releases every heap-allocated object; call once at shutdown.
func (vm *VM) FreeObjects() {
	vm.heap.FreeObjects()
}

// Interpret compiles and runs source, returning nil on success or one of
// ErrInterpretCompileError / ErrInterpretRuntimeError (both wrapped with
// the underlying diagnostic already written to stderr).
func (vm *VM) Interpret(source []byte) error {
	comp := newCompiler(source, vm.heap, vm.cfg)
	f := comp.compile()
	if f == nil {
		return fmt.Errorf("interpreting source: %w", ErrInterpretCompileError)
	}

	if vm.cfg.PrintCode {
		disassembleFunction(f)
	}

	closure := vm.heap.newClosure(f)
	vm.push(ObjValue(closure))
	if err := vm.callClosure(closure, 0); err != nil {
		return err
	}

	return vm.run()
}

func (vm *VM) run() error {
	frame := &vm.frames[len(vm.frames)-1]

	for {
		if vm.cfg.TraceExecution {
			for _, slot := range vm.stack[:vm.sp] {
				fmt.Printf("[%s]", printValue(slot))
			}
			fmt.Println()
		}

		switch instruction := frame.readByte(); instruction {
		case opConstant:
			vm.push(frame.readConstant())
		case opNil:
			vm.push(NilValue())
		case opTrue:
			vm.push(BoolValue(true))
		case opFalse:
			vm.push(BoolValue(false))
		case opPop:
			vm.pop()
		case opGetLocal:
			slot := int(frame.readByte())
			vm.push(vm.stack[frame.slots+slot])
		case opSetLocal:
			slot := int(frame.readByte())
			vm.stack[frame.slots+slot] = vm.peek(0)
		case opGetGlobal:
			name := frame.readString()
			value, ok := vm.globals.get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", string(name.chars))
			}
			vm.push(value)
		case opDefineGlobal:
			name := frame.readString()
			vm.globals.set(name, vm.pop())
		case opSetGlobal:
			name := frame.readString()
			if vm.globals.set(name, vm.peek(0)) {
				vm.globals.delete(name)
				return vm.runtimeError("Undefined variable '%s'.", string(name.chars))
			}
		case opGetUpvalue:
			slot := int(frame.readByte())
			upval := frame.closure.upvalues[slot]
			vm.push(upval.getUpvalue(vm.stack))
		case opSetUpvalue:
			slot := int(frame.readByte())
			upval := frame.closure.upvalues[slot]
			upval.setUpvalue(vm.stack, vm.peek(0))
		case opEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolValue(valuesEqual(a, b)))
		case opAdd:
			if vm.peek(0).IsString() && vm.peek(1).IsString() {
				b := vm.pop().AsObj()
				a := vm.pop().AsObj()
				concat := make([]byte, 0, len(a.chars)+len(b.chars))
				concat = append(concat, a.chars...)
				concat = append(concat, b.chars...)
				vm.push(ObjValue(vm.heap.internString(concat)))
			} else if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
				b := vm.pop().AsNumber()
				a := vm.pop().AsNumber()
				vm.push(NumberValue(a + b))
			} else {
				return vm.runtimeError("Operands must be two numbers or two strings.")
			}
		case opGreater, opLess, opSubtract, opMultiply, opDivide:
			if err := vm.numericBinaryOp(instruction); err != nil {
				return err
			}
		case opNot:
			vm.push(BoolValue(isFalsey(vm.pop())))
		case opNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(NumberValue(-vm.pop().AsNumber()))
		case opPrint:
			fmt.Println(printValue(vm.pop()))
		case opJump:
			frame.ip += int(frame.readShort())
		case opJumpIfFalse:
			offset := int(frame.readShort())
			if isFalsey(vm.peek(0)) {
				frame.ip += offset
			}
		case opLoop:
			frame.ip -= int(frame.readShort())
		case opCall:
			argCount := int(frame.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[len(vm.frames)-1]
		case opClosure:
			function := frame.readConstant().AsObj()
			closure := vm.heap.newClosure(function)
			vm.push(ObjValue(closure))
			for i := range closure.upvalues {
				isLocal := frame.readByte()
				index := int(frame.readByte())
				if isLocal == 1 {
					closure.upvalues[i] = vm.captureUpvalue(frame.slots + index)
				} else {
					closure.upvalues[i] = frame.closure.upvalues[index]
				}
			}
		case opCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()
		case opReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop() // discard the top-level closure
				return nil
			}
			vm.sp = frame.slots
			vm.push(result)
			frame = &vm.frames[len(vm.frames)-1]
		default:
			panic("run: unknown instruction")
		}
	}
}

func (vm *VM) push(value Value) {
	vm.stack[vm.sp] = value
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) runtimeError(format string, a ...any) error {
	fmt.Fprintf(os.Stderr, format+"\n", a...)

	for i := len(vm.frames) - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		function := frame.closure.function
		line := function.fnChunk.lines[frame.ip-1]
		fmt.Fprintf(os.Stderr, "  [line %d] in ", line)
		if function.name == nil {
			fmt.Fprintf(os.Stderr, "script\n")
		} else {
			fmt.Fprintf(os.Stderr, "%s()\n", string(function.name.chars))
		}
	}

	return fmt.Errorf("interpreting source: %w", ErrInterpretRuntimeError)
}

func (vm *VM) callValue(value Value, argCount int) error {
	if !value.IsObj() {
		return vm.runtimeError("Can only call functions and classes.")
	}
	switch callee := value.AsObj(); callee.Kind {
	case ObjKindClosure:
		return vm.callClosure(callee, argCount)
	case ObjKindNative:
		return vm.callNative(callee, argCount)
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

func (vm *VM) callClosure(closure *Obj, argCount int) error {
	fn := closure.function
	if argCount != fn.arity {
		return vm.runtimeError("Expected %d arguments but got %d.", fn.arity, argCount)
	}
	if len(vm.frames) == vm.cfg.FramesMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames = append(vm.frames, callFrame{closure, 0, vm.sp - argCount - 1})
	return nil
}

func (vm *VM) callNative(native *Obj, argCount int) error {
	if argCount != native.arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.arity, argCount)
	}
	args := vm.stack[vm.sp-argCount : vm.sp]
	result, err := native.native(args)
	if err != nil {
		return vm.runtimeError("In native function: %s.", err)
	}
	vm.sp -= argCount + 1
	vm.push(result)
	return nil
}

// captureUpvalue finds or creates the open upvalue for the given absolute
// stack slot, keeping VM.openUpvalues sorted by descending slot so two
// closures capturing the same local share one upvalue object.
func (vm *VM) captureUpvalue(slot int) *Obj {
	var prev *Obj
	upval := vm.openUpvalues

	for upval != nil && upval.location > slot {
		prev = upval
		upval = upval.openNext
	}

	if upval != nil && upval.location == slot {
		return upval
	}

	created := vm.heap.newUpvalue(slot)
	created.openNext = upval
	if prev != nil {
		prev.openNext = created
	} else {
		vm.openUpvalues = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above last, called when a
// scope or call frame holding those slots goes away.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.location >= last {
		upval := vm.openUpvalues
		upval.closeUpvalue(vm.stack)
		vm.openUpvalues = upval.openNext
	}
}

func (vm *VM) numericBinaryOp(op uint8) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	switch op {
	case opGreater:
		vm.push(BoolValue(a > b))
	case opLess:
		vm.push(BoolValue(a < b))
	case opSubtract:
		vm.push(NumberValue(a - b))
	case opMultiply:
		vm.push(NumberValue(a * b))
	case opDivide:
		vm.push(NumberValue(a / b))
	default:
		panic("numericBinaryOp: unknown operator")
	}
	return nil
}
