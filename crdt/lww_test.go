package crdt

import "testing"

func TestLWWSetAdvancesClock(t *testing.T) {
	r := NewLWW[string]()
	r.Set("a", agentFromByte(1))
	r.Set("b", agentFromByte(1))
	v, ok := r.Get()
	if !ok || v != "b" {
		t.Fatalf("expected b, got %v (ok=%v)", v, ok)
	}
	if r.Clock().Counter != 2 {
		t.Fatalf("expected counter 2, got %d", r.Clock().Counter)
	}
}

func TestLWWMergeLargerClockWins(t *testing.T) {
	a := NewLWW[string]()
	a.SetAt("a", Clock{Peer: agentFromByte(1), Counter: 1})

	b := NewLWW[string]()
	b.SetAt("b", Clock{Peer: agentFromByte(1), Counter: 2})

	a.Merge(b)
	v, _ := a.Get()
	if v != "b" {
		t.Fatalf("expected larger clock (b) to win, got %v", v)
	}
}

func TestLWWTieBreaksByPeerBytes(t *testing.T) {
	low := NewLWW[string]()
	low.SetAt("low-peer", Clock{Peer: agentFromByte(1), Counter: 5})

	high := NewLWW[string]()
	high.SetAt("high-peer", Clock{Peer: agentFromByte(9), Counter: 5})

	merged := NewLWW[string]()
	merged.Merge(low)
	merged.Merge(high)
	v, _ := merged.Get()
	if v != "high-peer" {
		t.Fatalf("expected tie-break toward larger peer bytes (high-peer), got %v", v)
	}

	reversed := NewLWW[string]()
	reversed.Merge(high)
	reversed.Merge(low)
	rv, _ := reversed.Get()
	if rv != v {
		t.Fatalf("tie-break must be order-independent: got %v then %v", v, rv)
	}
}

func TestLWWMergeIdempotent(t *testing.T) {
	a := NewLWW[string]()
	a.SetAt("a", Clock{Peer: agentFromByte(1), Counter: 1})
	b := NewLWW[string]()
	b.SetAt("b", Clock{Peer: agentFromByte(1), Counter: 5})

	a.Merge(b)
	first, _ := a.Get()
	a.Merge(b)
	second, _ := a.Get()
	if first != second {
		t.Fatalf("merge not idempotent: %v vs %v", first, second)
	}
}
