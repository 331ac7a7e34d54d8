package loxx

import "time"

// LoadNative registers a native function under name in the VM's globals.
func LoadNative(vm *VM, name string, arity int, fn NativeFn) {
	obj := vm.heap.newNative(fn, arity)
	key := vm.heap.internString([]byte(name))
	vm.globals.set(key, ObjValue(obj))
}

func nativeClock(_ []Value) (Value, error) {
	return NumberValue(float64(time.Now().UnixNano()) / float64(time.Second)), nil
}
