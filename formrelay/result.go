package formrelay

// State is the submission state of a form instance.
type State string

// Submission states.
const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFailure State = "failure"
)

// Result is the outcome a form instance reflects back to the user. Exactly
// one State is active; Message is only set for StateSuccess and StateFailure.
type Result struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

// Idle is the result of a form that has never been submitted.
func Idle() Result { return Result{State: StateIdle} }

// Pending is the result while a submission is in flight.
func Pending() Result { return Result{State: StatePending} }

// Success returns a successful result carrying message.
func Success(message string) Result { return Result{State: StateSuccess, Message: message} }

// Failure returns a failed result carrying message.
func Failure(message string) Result { return Result{State: StateFailure, Message: message} }
