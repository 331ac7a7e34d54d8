package loxx

// Heap owns every object allocated during compilation and execution, and
// the string-interning table that canonicalizes them. Compiler and VM share
// one Heap so a string literal compiled once and a string built at runtime
// by concatenation intern to the same Obj.
type Heap struct {
	strings table
	objects *Obj
}

func newHeap() *Heap {
	return &Heap{strings: newTable()}
}

func (h *Heap) addObject(o *Obj) *Obj {
	o.Next = h.objects
	h.objects = o
	return o
}

// internString returns the canonical Obj for chars, allocating a new one
// only if this exact content hasn't been seen before.
func (h *Heap) internString(chars []byte) *Obj {
	hash := hashBytes(chars)
	if interned := h.strings.findString(chars, hash); interned != nil {
		return interned
	}
	owned := make([]byte, len(chars))
	copy(owned, chars)
	o := h.addObject(newStringObj(owned, hash))
	h.strings.set(o, NilValue())
	return o
}

func (h *Heap) newFunction() *Obj {
	return h.addObject(newFunctionObj())
}

func (h *Heap) newNative(fn NativeFn, arity int) *Obj {
	return h.addObject(newNativeObj(fn, arity))
}

func (h *Heap) newClosure(fn *Obj) *Obj {
	return h.addObject(newClosureObj(fn))
}

func (h *Heap) newUpvalue(slot int) *Obj {
	return h.addObject(newUpvalueObj(slot))
}

// FreeObjects severs every object this heap allocated; called once at
// shutdown since there is no tracing collector to reclaim them earlier.
func (h *Heap) FreeObjects() {
	obj := h.objects
	for obj != nil {
		next := obj.Next
		obj.Next = nil
		obj = next
	}
	h.objects = nil
	h.strings = newTable()
}
