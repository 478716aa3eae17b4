// Package loans implements the equipment loan lifecycle: a closed state
// machine plus the checkout and return operations that guard it.
package loans

// State is one step of the equipment loan lifecycle. Values are persisted as
// strings on the equipment_loans table.
type State string

// Loan lifecycle states.
const (
	// StateRequested means a member asked to borrow the item.
	StateRequested State = "requested"
	// StateStaffPreparing means staff is pulling and checking the item.
	StateStaffPreparing State = "staff_preparing"
	// StateReadyForPickup means the item is waiting at the front desk.
	StateReadyForPickup State = "ready_for_pickup"
	// StateCheckedOut means the item left the building.
	StateCheckedOut State = "checked_out"
	// StateOverdue means the item is out past its due date.
	StateOverdue State = "overdue"
	// StateDropoffScheduled means the member arranged a return time.
	StateDropoffScheduled State = "dropoff_scheduled"
	// StateStaffProcessingReturn means staff is inspecting the returned item.
	StateStaffProcessingReturn State = "staff_processing_return"
	// StateDamageReported means the inspection found damage to record.
	StateDamageReported State = "damage_reported"
	// StateReturned is terminal: the loan is closed.
	StateReturned State = "returned"
	// StateCancelled is terminal: the loan never happened.
	StateCancelled State = "cancelled"
)

// transitions is the closed transition graph. A move not listed here is
// invalid regardless of who attempts it.
var transitions = map[State][]State{
	// Requested → Returned covers immediate same-day loans handed straight
	// over the counter.
	StateRequested:             {StateStaffPreparing, StateCancelled, StateReturned},
	StateStaffPreparing:        {StateReadyForPickup, StateCancelled},
	StateReadyForPickup:        {StateCheckedOut, StateCancelled},
	StateCheckedOut:            {StateOverdue, StateDropoffScheduled, StateReturned},
	StateOverdue:               {StateDropoffScheduled, StateReturned},
	StateDropoffScheduled:      {StateStaffProcessingReturn},
	StateStaffProcessingReturn: {StateReturned, StateDamageReported},
	StateDamageReported:        {StateReturned},
	StateReturned:              nil,
	StateCancelled:             nil,
}

// Capabilities gates which actor may act on a loan in a given state. The
// state machine itself only enforces the transition graph; callers are
// responsible for checking these before acting on behalf of a member or
// staff.
type Capabilities struct {
	Description            string
	CanBeCancelledByMember bool
	RequiresStaffAction    bool
	RequiresMemberAction   bool
}

var capabilities = map[State]Capabilities{
	StateRequested: {
		Description:            "Loan requested, waiting for staff review",
		CanBeCancelledByMember: true,
		RequiresStaffAction:    true,
	},
	StateStaffPreparing: {
		Description:            "Staff preparing equipment",
		CanBeCancelledByMember: true,
		RequiresStaffAction:    true,
	},
	StateReadyForPickup: {
		Description:            "Ready for pickup at the front desk",
		CanBeCancelledByMember: true,
		RequiresMemberAction:   true,
	},
	StateCheckedOut: {
		Description:          "Checked out",
		RequiresMemberAction: true,
	},
	StateOverdue: {
		Description:          "Overdue, return required",
		RequiresMemberAction: true,
	},
	StateDropoffScheduled: {
		Description:          "Dropoff scheduled",
		RequiresMemberAction: true,
	},
	StateStaffProcessingReturn: {
		Description:         "Staff inspecting returned equipment",
		RequiresStaffAction: true,
	},
	StateDamageReported: {
		Description:         "Damage reported, resolution pending",
		RequiresStaffAction: true,
	},
	StateReturned: {
		Description: "Returned",
	},
	StateCancelled: {
		Description: "Cancelled",
	},
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s State) Terminal() bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}

// CanTransition reports whether the move from → to is in the graph.
func CanTransition(from, to State) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// CapabilitiesFor returns the capability flags for a state.
func CapabilitiesFor(s State) (Capabilities, bool) {
	caps, ok := capabilities[s]
	return caps, ok
}

// ActiveStates returns every non-terminal state, the set that blocks a new
// checkout of the same equipment item.
func ActiveStates() []State {
	out := make([]State, 0, len(transitions))
	for state, targets := range transitions {
		if len(targets) > 0 {
			out = append(out, state)
		}
	}
	return out
}
