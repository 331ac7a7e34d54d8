package loxx

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything written to it; used since print writes straight to os.Stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func runSource(t *testing.T, src string) (string, error) {
	t.Helper()
	vm := New(DefaultConfig())
	defer vm.FreeObjects()

	var err error
	out := captureStdout(t, func() {
		err = vm.Interpret([]byte(src))
	})
	return out, err
}

func TestVMArithmetic(t *testing.T) {
	out, err := runSource(t, `print (1 + 2) * 3 - 4 / 2;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("expected 7, got %q", out)
	}
}

func TestVMStringConcatenation(t *testing.T) {
	out, err := runSource(t, `print "foo" + "bar";`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "foobar" {
		t.Fatalf("expected foobar, got %q", out)
	}
}

func TestVMBlockScoping(t *testing.T) {
	src := `
	var a = "outer";
	{
		var a = "inner";
		print a;
	}
	print a;
	`
	out, err := runSource(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != "inner" || lines[1] != "outer" {
		t.Fatalf("expected [inner outer], got %v", lines)
	}
}

func TestVMRecursiveFibonacci(t *testing.T) {
	src := `
	fun fib(n) {
		if (n < 2) return n;
		return fib(n - 1) + fib(n - 2);
	}
	print fib(10);
	`
	out, err := runSource(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "55" {
		t.Fatalf("expected 55, got %q", out)
	}
}

func TestVMClosureCounter(t *testing.T) {
	src := `
	fun makeCounter() {
		var count = 0;
		fun counter() {
			count = count + 1;
			return count;
		}
		return counter;
	}
	var c = makeCounter();
	print c();
	print c();
	print c();
	`
	out, err := runSource(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || lines[0] != "1" || lines[1] != "2" || lines[2] != "3" {
		t.Fatalf("expected [1 2 3], got %v", lines)
	}
}

func TestVMRuntimeTypeErrorReturnsRuntimeError(t *testing.T) {
	src := `
	fun broken() {
		return 1 + "two";
	}
	broken();
	`
	_, err := runSource(t, src)
	if err == nil {
		t.Fatalf("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "runtime error") {
		t.Fatalf("expected wrapped runtime error, got %v", err)
	}
}

func TestVMUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, err := runSource(t, `print undefined_name;`)
	if err == nil {
		t.Fatalf("expected a runtime error for an undefined global")
	}
}

func TestVMNativeClockReturnsNumber(t *testing.T) {
	out, err := runSource(t, `print clock() > 0;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("expected true, got %q", out)
	}
}

func TestVMCompileErrorPropagates(t *testing.T) {
	_, err := runSource(t, `var a = ;`)
	if err == nil {
		t.Fatalf("expected a compile error")
	}
	if !strings.Contains(err.Error(), "compile error") {
		t.Fatalf("expected wrapped compile error, got %v", err)
	}
}
