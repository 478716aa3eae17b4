package loans

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateRequested, StateStaffPreparing},
		{StateRequested, StateCancelled},
		{StateRequested, StateReturned}, // same-day counter loan
		{StateStaffPreparing, StateReadyForPickup},
		{StateReadyForPickup, StateCheckedOut},
		{StateCheckedOut, StateOverdue},
		{StateCheckedOut, StateDropoffScheduled},
		{StateCheckedOut, StateReturned},
		{StateOverdue, StateReturned},
		{StateDropoffScheduled, StateStaffProcessingReturn},
		{StateStaffProcessingReturn, StateDamageReported},
		{StateStaffProcessingReturn, StateReturned},
		{StateDamageReported, StateReturned},
	}
	for _, move := range allowed {
		if !CanTransition(move.from, move.to) {
			t.Errorf("expected %s -> %s to be allowed", move.from, move.to)
		}
	}

	denied := []struct{ from, to State }{
		{StateRequested, StateCheckedOut},
		{StateReadyForPickup, StateReturned},
		{StateCheckedOut, StateCancelled},
		{StateOverdue, StateCancelled},
		{StateDropoffScheduled, StateCancelled},
		{StateReturned, StateCheckedOut},
		{StateCancelled, StateRequested},
		{StateDamageReported, StateCancelled},
	}
	for _, move := range denied {
		if CanTransition(move.from, move.to) {
			t.Errorf("expected %s -> %s to be denied", move.from, move.to)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, state := range []State{StateReturned, StateCancelled} {
		if !state.Terminal() {
			t.Errorf("expected %s to be terminal", state)
		}
	}
	for _, state := range []State{StateRequested, StateCheckedOut, StateDamageReported} {
		if state.Terminal() {
			t.Errorf("expected %s to be non-terminal", state)
		}
	}
}

func TestValid(t *testing.T) {
	if !StateCheckedOut.Valid() {
		t.Error("expected checked_out to be valid")
	}
	if State("lost").Valid() {
		t.Error("expected unknown state to be invalid")
	}
}

func TestActiveStatesExcludeTerminal(t *testing.T) {
	for _, state := range ActiveStates() {
		if state.Terminal() {
			t.Errorf("active states must not include terminal state %s", state)
		}
	}
	if len(ActiveStates()) != 8 {
		t.Errorf("expected 8 active states, got %d", len(ActiveStates()))
	}
}

func TestCapabilityFlags(t *testing.T) {
	cancellable := map[State]bool{
		StateRequested:             true,
		StateStaffPreparing:        true,
		StateReadyForPickup:        true,
		StateCheckedOut:            false,
		StateOverdue:               false,
		StateDropoffScheduled:      false,
		StateStaffProcessingReturn: false,
		StateDamageReported:        false,
		StateReturned:              false,
		StateCancelled:             false,
	}
	for state, want := range cancellable {
		caps, ok := CapabilitiesFor(state)
		if !ok {
			t.Fatalf("missing capabilities for %s", state)
		}
		if caps.CanBeCancelledByMember != want {
			t.Errorf("state %s: expected member-cancellable=%v", state, want)
		}
	}
}
