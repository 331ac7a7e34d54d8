package loxx

import "testing"

func internFixture(h *Heap, s string) *Obj {
	return h.internString([]byte(s))
}

func TestTableSetGetRoundTrip(t *testing.T) {
	h := newHeap()
	tbl := newTable()

	key := internFixture(h, "answer")
	if isNew := tbl.set(key, NumberValue(42)); !isNew {
		t.Fatalf("set of a fresh key should report isNewKey=true")
	}

	v, ok := tbl.get(key)
	if !ok {
		t.Fatalf("expected key to be present")
	}
	if !v.IsNumber() || v.AsNumber() != 42 {
		t.Fatalf("expected 42, got %#v", v)
	}
}

func TestTableSetExistingKeyReportsNotNew(t *testing.T) {
	h := newHeap()
	tbl := newTable()
	key := internFixture(h, "x")

	tbl.set(key, NumberValue(1))
	if isNew := tbl.set(key, NumberValue(2)); isNew {
		t.Fatalf("overwriting an existing key should report isNewKey=false")
	}

	v, ok := tbl.get(key)
	if !ok || v.AsNumber() != 2 {
		t.Fatalf("expected updated value 2, got %#v ok=%v", v, ok)
	}
}

func TestTableDeleteLeavesTombstoneProbeable(t *testing.T) {
	h := newHeap()
	tbl := newTable()

	// Force several keys into the same small table so at least some
	// collide and rely on probing past a tombstone to find survivors.
	keys := make([]*Obj, 0, 20)
	for i := 0; i < 20; i++ {
		k := internFixture(h, string(rune('a'+i)))
		keys = append(keys, k)
		tbl.set(k, NumberValue(float64(i)))
	}

	// Delete every other key, leaving tombstones interleaved with live
	// entries.
	for i := 0; i < len(keys); i += 2 {
		if !tbl.delete(keys[i]) {
			t.Fatalf("delete of present key %d should report true", i)
		}
	}

	for i := 1; i < len(keys); i += 2 {
		v, ok := tbl.get(keys[i])
		if !ok {
			t.Fatalf("key %d should still be reachable past tombstones", i)
		}
		if v.AsNumber() != float64(i) {
			t.Fatalf("key %d: expected %d, got %v", i, i, v.AsNumber())
		}
	}

	for i := 0; i < len(keys); i += 2 {
		if _, ok := tbl.get(keys[i]); ok {
			t.Fatalf("deleted key %d should no longer be found", i)
		}
	}
}

func TestTableCountSurvivesResize(t *testing.T) {
	h := newHeap()
	tbl := newTable()

	const n = 100
	for i := 0; i < n; i++ {
		k := internFixture(h, stringizeInt(i))
		tbl.set(k, NumberValue(float64(i)))
	}

	if tbl.count != n {
		t.Fatalf("expected count=%d after %d inserts, got %d", n, n, tbl.count)
	}

	for i := 0; i < n; i++ {
		k := internFixture(h, stringizeInt(i))
		v, ok := tbl.get(k)
		if !ok || v.AsNumber() != float64(i) {
			t.Fatalf("entry %d missing or wrong after resize: ok=%v v=%#v", i, ok, v)
		}
	}
}

func stringizeInt(i int) string {
	if i == 0 {
		return "0"
	}
	digits := make([]byte, 0, 4)
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func TestFindStringCanonicalizesDuplicates(t *testing.T) {
	h := newHeap()
	a := h.internString([]byte("hello"))
	b := h.internString([]byte("hello"))
	if a != b {
		t.Fatalf("interning the same content twice should return the same Obj")
	}
}
