package loxx

import "testing"

func compileSource(t *testing.T, src string) *Obj {
	t.Helper()
	h := newHeap()
	c := newCompiler([]byte(src), h, DefaultConfig())
	return c.compile()
}

func TestCompileValidSourceReturnsFunction(t *testing.T) {
	f := compileSource(t, `var a = 1; print a + 2;`)
	if f == nil {
		t.Fatalf("expected a compiled function, got nil")
	}
	if len(f.fnChunk.code) == 0 {
		t.Fatalf("expected non-empty bytecode")
	}
}

func TestCompileErrorReturnsNilFunction(t *testing.T) {
	f := compileSource(t, `var a = ;`)
	if f != nil {
		t.Fatalf("expected nil function on a compile error, got %#v", f)
	}
}

func TestCompileInvalidAssignmentTargetIsError(t *testing.T) {
	f := compileSource(t, `1 = 2;`)
	if f != nil {
		t.Fatalf("expected nil function for an invalid assignment target")
	}
}

// TestCompileClosureEmitsMatchingUpvaluePairs checks that OP_CLOSURE is
// followed by exactly upvalueCount (isLocal, index) pairs.
func TestCompileClosureEmitsMatchingUpvaluePairs(t *testing.T) {
	src := `
	fun makeAdder(x) {
		fun adder(y) {
			return x + y;
		}
		return adder;
	}
	`
	f := compileSource(t, src)
	if f == nil {
		t.Fatalf("expected successful compile")
	}

	// adder's OP_CLOSURE is emitted into makeAdder's chunk, not the script's,
	// so walk every function reached through an OP_CLOSURE operand.
	pending := []*Obj{f}
	for len(pending) > 0 {
		fn := pending[0]
		pending = pending[1:]
		code := fn.fnChunk.code
		for i := 0; i < len(code); i++ {
			if code[i] != opClosure {
				continue
			}
			fnIndex := code[i+1]
			fnObj := fn.fnChunk.constants[fnIndex].AsObj()
			if fnObj.Kind != ObjKindFunction {
				t.Fatalf("OP_CLOSURE operand must reference a function constant")
			}
			if fnObj.name != nil && string(fnObj.name.chars) == "adder" {
				wantPairs := fnObj.upvalueCount
				if wantPairs != 1 {
					t.Fatalf("expected adder to capture exactly 1 upvalue, got %d", wantPairs)
				}
				// Each pair is 2 bytes: isLocal flag then index.
				for p := 0; p < wantPairs; p++ {
					isLocal := code[i+2+p*2]
					if isLocal != 0 && isLocal != 1 {
						t.Fatalf("upvalue isLocal flag must be 0 or 1, got %d", isLocal)
					}
				}
				return
			}
			pending = append(pending, fnObj)
		}
	}
	t.Fatalf("did not find an OP_CLOSURE for adder")
}

func TestCompileLocalScopeShadowsGlobal(t *testing.T) {
	src := `
	var a = "outer";
	{
		var a = "inner";
		print a;
	}
	`
	f := compileSource(t, src)
	if f == nil {
		t.Fatalf("expected successful compile")
	}
}

func TestCompileReturnOutsideFunctionIsError(t *testing.T) {
	f := compileSource(t, `return 1;`)
	if f != nil {
		t.Fatalf("expected nil function for top-level return")
	}
}
