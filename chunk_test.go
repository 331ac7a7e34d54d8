package loxx

import "testing"

func TestChunkWriteCodeKeepsCodeAndLinesInStep(t *testing.T) {
	c := newChunk()
	c.writeCode(opNil, 1)
	c.writeCode(opTrue, 1)
	c.writeCode(opPop, 2)

	if len(c.code) != len(c.lines) {
		t.Fatalf("code and lines diverged: len(code)=%d len(lines)=%d", len(c.code), len(c.lines))
	}
	if c.lines[2] != 2 {
		t.Fatalf("expected third instruction on line 2, got %d", c.lines[2])
	}
}

func TestChunkAddConstantDedupes(t *testing.T) {
	c := newChunk()
	first := c.addConstant(NumberValue(3.14))
	second := c.addConstant(NumberValue(3.14))
	third := c.addConstant(NumberValue(2.71))

	if first != second {
		t.Fatalf("identical constants should share a pool slot: %d != %d", first, second)
	}
	if third == first {
		t.Fatalf("distinct constants must not collapse to the same slot")
	}
	if len(c.constants) != 2 {
		t.Fatalf("expected 2 distinct constants, got %d", len(c.constants))
	}
}

func TestChunkAddConstantReturnsIndexWithinBounds(t *testing.T) {
	c := newChunk()
	for i := 0; i < 10; i++ {
		idx := c.addConstant(NumberValue(float64(i)))
		if idx < 0 || idx >= len(c.constants) {
			t.Fatalf("constant index %d out of bounds for %d constants", idx, len(c.constants))
		}
	}
}
