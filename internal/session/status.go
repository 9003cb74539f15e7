package session

import "github.com/youhedge/hedgetv/internal/models"

// Phase enumerates the variants of the login state machine.
type Phase int

const (
	Pending Phase = iota
	Initialized
	Finalized
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Initialized:
		return "initialized"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Status is an immutable login-state value. Transition methods return a new
// Status, or the receiver unchanged when the transition is invalid for the
// current phase.
type Status struct {
	phase Phase
	login *models.LoginDetails
	auth  *models.AuthDetails
}

// NewStatus returns the initial Pending status.
func NewStatus() Status {
	return Status{phase: Pending}
}

// Phase returns the live variant.
func (s Status) Phase() Phase { return s.phase }

// LoginDetails returns the device-code details held by an Initialized status,
// or nil for the other variants.
func (s Status) LoginDetails() *models.LoginDetails { return s.login }

// AuthDetails returns the credentials held by a Finalized status, or nil.
func (s Status) AuthDetails() *models.AuthDetails { return s.auth }

// Initialize moves Pending to Initialized with the given login details.
// Already-initialized and finalized statuses are returned unchanged: once
// login is underway (or done) a new device code must not displace it.
func (s Status) Initialize(details models.LoginDetails) Status {
	switch s.phase {
	case Pending:
		return Status{phase: Initialized, login: &details}
	case Initialized, Finalized:
		return s
	default:
		return s
	}
}

// Finalize moves Initialized to Finalized with the given credentials.
// Pending cannot finalize (nothing was initialized) and Finalized is terminal
// until an explicit logout; both return unchanged.
func (s Status) Finalize(details models.AuthDetails) Status {
	switch s.phase {
	case Initialized:
		return Status{phase: Finalized, auth: &details}
	case Pending, Finalized:
		return s
	default:
		return s
	}
}

// FinalizedStatus builds a Finalized status directly, used when a stored
// session is rehydrated and the handshake is long done.
func FinalizedStatus(details models.AuthDetails) Status {
	return Status{phase: Finalized, auth: &details}
}
