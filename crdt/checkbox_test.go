package crdt

import "testing"

func agentFromByte(b byte) [32]byte {
	var a [32]byte
	a[0] = b
	return a
}

func TestTransitionToClaimedFromEmpty(t *testing.T) {
	agent := agentFromByte(1)
	state, err := TransitionToClaimed(Empty(), agent, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Variant != CheckboxClaimed {
		t.Fatalf("expected Claimed, got %v", state.Variant)
	}
}

func TestTransitionToClaimedFromClaimedFails(t *testing.T) {
	agentA := agentFromByte(1)
	agentB := agentFromByte(2)
	claimed := Claimed(agentA, 10)
	_, err := TransitionToClaimed(claimed, agentB, 20)
	var already *AlreadyClaimedError
	if err == nil {
		t.Fatalf("expected AlreadyClaimedError")
	}
	if ac, ok := err.(*AlreadyClaimedError); !ok {
		t.Fatalf("expected *AlreadyClaimedError, got %T", err)
	} else {
		already = ac
	}
	if already.PriorAgent != agentA {
		t.Fatalf("expected prior agent %x, got %x", agentA, already.PriorAgent)
	}
}

func TestTransitionToClaimedFromDoneFails(t *testing.T) {
	done := Done(agentFromByte(1), 10)
	_, err := TransitionToClaimed(done, agentFromByte(2), 20)
	if err != ErrAlreadyDone {
		t.Fatalf("expected ErrAlreadyDone, got %v", err)
	}
}

func TestTransitionToDoneFromEmptyFails(t *testing.T) {
	_, err := TransitionToDone(Empty(), agentFromByte(1), 10)
	if err != ErrMustClaimFirst {
		t.Fatalf("expected ErrMustClaimFirst, got %v", err)
	}
}

func TestTransitionToDoneFromClaimed(t *testing.T) {
	claimed := Claimed(agentFromByte(1), 10)
	state, err := TransitionToDone(claimed, agentFromByte(1), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Variant != CheckboxDone {
		t.Fatalf("expected Done, got %v", state.Variant)
	}
}

func TestResolveCheckboxStatesDoneDominates(t *testing.T) {
	states := []CheckboxState{
		Claimed(agentFromByte(1), 5),
		Done(agentFromByte(2), 10),
	}
	resolved := ResolveCheckboxStates(states)
	if resolved.Variant != CheckboxDone {
		t.Fatalf("expected Done to dominate, got %v", resolved.Variant)
	}
}

func TestResolveCheckboxStatesEarliestDoneWins(t *testing.T) {
	states := []CheckboxState{
		Done(agentFromByte(2), 10),
		Done(agentFromByte(1), 5),
	}
	resolved := ResolveCheckboxStates(states)
	if resolved.TsMs != 5 || resolved.Agent != agentFromByte(1) {
		t.Fatalf("expected earliest Done (ts=5, agent=1), got ts=%d agent=%x", resolved.TsMs, resolved.Agent)
	}
}

func TestResolveCheckboxStatesTieBreakByAgent(t *testing.T) {
	states := []CheckboxState{
		Done(agentFromByte(9), 5),
		Done(agentFromByte(1), 5),
	}
	resolved := ResolveCheckboxStates(states)
	if resolved.Agent != agentFromByte(1) {
		t.Fatalf("expected tie broken toward smaller agent bytes, got %x", resolved.Agent)
	}
}

func TestResolveCheckboxStatesFirstClaimWins(t *testing.T) {
	states := []CheckboxState{
		Claimed(agentFromByte(5), 20),
		Claimed(agentFromByte(1), 5),
	}
	resolved := ResolveCheckboxStates(states)
	if resolved.TsMs != 5 {
		t.Fatalf("expected first claim (ts=5) to win, got ts=%d", resolved.TsMs)
	}
}

func TestResolveCheckboxStatesEmptyInput(t *testing.T) {
	resolved := ResolveCheckboxStates(nil)
	if resolved.Variant != CheckboxEmpty {
		t.Fatalf("expected Empty for no input, got %v", resolved.Variant)
	}
}
