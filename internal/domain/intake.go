package domain

// Admission is where an accepted intake request lands.
type Admission string

const (
	AdmitConfirmed Admission = "confirmed"
	AdmitWaitlist  Admission = "waitlisted"
)

// IntakeState is the locked view of one (user, event) pair at submission time.
type IntakeState struct {
	Capacity         int
	Registered       int
	WaitlistCount    int
	HasRegistration  bool
	HasWaitlistEntry bool
}

type IntakeRequest struct {
	Guests       int
	JoinWaitlist bool
}

type IntakeDecision struct {
	Admission Admission
	// Position is set for waitlist admissions.
	Position int
	// Seats is the number of seats a confirmed admission takes.
	Seats int
}

// DecideIntake applies the registration rules in order: duplicate checks,
// then full-or-waitlist routing, then the attendee count against the seats
// left. Waitlist joins have no ceiling.
func DecideIntake(s IntakeState, req IntakeRequest) (IntakeDecision, error) {
	if s.HasRegistration {
		return IntakeDecision{}, ErrAlreadyRegistered
	}
	if s.HasWaitlistEntry {
		return IntakeDecision{}, ErrAlreadyWaitlisted
	}

	occ := Calculate(s.Capacity, s.Registered)
	if occ.IsFull || req.JoinWaitlist {
		return IntakeDecision{
			Admission: AdmitWaitlist,
			Position:  NextWaitlistPosition(s.WaitlistCount),
		}, nil
	}

	seats := 1 + req.Guests
	if seats > occ.Remaining {
		return IntakeDecision{}, &InsufficientCapacityError{Remaining: occ.Remaining}
	}
	return IntakeDecision{Admission: AdmitConfirmed, Seats: seats}, nil
}
