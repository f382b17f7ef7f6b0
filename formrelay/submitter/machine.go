package submitter

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"github.com/Pandentia/formrelay/formrelay"
)

// Session state machine events.
const (
	EventSubmit  = "submit"
	EventSucceed = "succeed"
	EventFail    = "fail"
)

func newMachine(logger zerolog.Logger) *fsm.FSM {
	idle := string(formrelay.StateIdle)
	pending := string(formrelay.StatePending)
	success := string(formrelay.StateSuccess)
	failure := string(formrelay.StateFailure)

	return fsm.NewFSM(
		idle,
		fsm.Events{
			{Name: EventSubmit, Src: []string{idle, success, failure}, Dst: pending},
			{Name: EventSucceed, Src: []string{pending}, Dst: success},
			{Name: EventFail, Src: []string{pending}, Dst: failure},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug().Str("from", e.Src).Str("to", e.Dst).Str("event", e.Event).Msg("Session state changed")
			},
		},
	)
}
