package crdt

import (
	"bytes"
	"errors"
	"fmt"
)

// CheckboxVariant is the tag of a CheckboxState.
type CheckboxVariant uint8

const (
	CheckboxEmpty CheckboxVariant = iota
	CheckboxClaimed
	CheckboxDone
)

// CheckboxState is the tagged union Empty | Claimed{agent,ts} | Done{agent,ts}.
// Variant rank order (Empty < Claimed < Done) is the primary tie-break key
// across concurrent states in an OR-Set.
type CheckboxState struct {
	Variant CheckboxVariant
	Agent   [32]byte
	TsMs    uint64
}

// Empty is the zero-value rest state.
func Empty() CheckboxState { return CheckboxState{Variant: CheckboxEmpty} }

// Claimed builds a Claimed state.
func Claimed(agent [32]byte, tsMs uint64) CheckboxState {
	return CheckboxState{Variant: CheckboxClaimed, Agent: agent, TsMs: tsMs}
}

// Done builds a Done state.
func Done(agent [32]byte, tsMs uint64) CheckboxState {
	return CheckboxState{Variant: CheckboxDone, Agent: agent, TsMs: tsMs}
}

// Errors for the three-state lifecycle transitions (spec section 4.3).
var (
	ErrAlreadyDone    = errors.New("checkbox already done")
	ErrMustClaimFirst = errors.New("checkbox must be claimed before completion")
)

// AlreadyClaimedError reports the agent currently holding the claim.
type AlreadyClaimedError struct {
	PriorAgent [32]byte
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("already claimed by %x", e.PriorAgent)
}

// TransitionToClaimed moves Empty -> Claimed. Fails with
// *AlreadyClaimedError from Claimed, and ErrAlreadyDone from Done.
func TransitionToClaimed(current CheckboxState, agent [32]byte, ts uint64) (CheckboxState, error) {
	switch current.Variant {
	case CheckboxEmpty:
		return Claimed(agent, ts), nil
	case CheckboxClaimed:
		return current, &AlreadyClaimedError{PriorAgent: current.Agent}
	default: // CheckboxDone
		return current, ErrAlreadyDone
	}
}

// TransitionToDone moves Claimed -> Done. Fails with ErrMustClaimFirst from
// Empty, and ErrAlreadyDone from Done.
func TransitionToDone(current CheckboxState, agent [32]byte, ts uint64) (CheckboxState, error) {
	switch current.Variant {
	case CheckboxClaimed:
		return Done(agent, ts), nil
	case CheckboxEmpty:
		return current, ErrMustClaimFirst
	default: // CheckboxDone
		return current, ErrAlreadyDone
	}
}

// rank orders variants Empty < Claimed < Done for tie-breaking.
func (v CheckboxVariant) rank() int { return int(v) }

// less implements the total order used to break ties among concurrent
// OR-Set entries: variant rank, then ts ascending, then agent bytes
// lexicographically.
func less(a, b CheckboxState) bool {
	if a.Variant != b.Variant {
		return a.Variant.rank() < b.Variant.rank()
	}
	if a.TsMs != b.TsMs {
		return a.TsMs < b.TsMs
	}
	return bytes.Compare(a.Agent[:], b.Agent[:]) < 0
}

// ResolveCheckboxStates collapses a set of concurrent CheckboxStates (as
// held live in an OR-Set) to the single resolved state per spec section
// 4.3: Done dominates Claimed dominates Empty; among same-variant Done or
// Claimed states, the earliest ts wins, ties broken by smallest agent
// bytes. An empty input resolves to Empty.
func ResolveCheckboxStates(states []CheckboxState) CheckboxState {
	resolved := Empty()
	first := true
	for _, s := range states {
		if first {
			resolved = s
			first = false
			continue
		}
		resolved = resolveTwo(resolved, s)
	}
	return resolved
}

// resolveTwo picks the winner between two states under the dominance and
// earliest-wins policy. Variant dominance always decides first; within the
// same variant, the *earliest* (by the total order `less`) wins, which is
// the opposite of picking the "larger" value — this is the
// first-claim-wins anti-theft property for Claimed, and "earliest Done
// wins" for Done.
func resolveTwo(a, b CheckboxState) CheckboxState {
	if a.Variant != b.Variant {
		if a.Variant.rank() > b.Variant.rank() {
			return a
		}
		return b
	}
	if a.Variant == CheckboxEmpty {
		return a
	}
	if less(a, b) {
		return a
	}
	return b
}
