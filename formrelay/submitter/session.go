package submitter

import (
	"context"
	"errors"
	"sync"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"github.com/Pandentia/formrelay/formrelay"
	"github.com/Pandentia/formrelay/formrelay/schema"
)

// ErrSubmissionInFlight is returned when Submit is called while the
// session is pending. It is the equivalent of a disabled submit button.
var ErrSubmissionInFlight = errors.New("submitter: a submission is already in flight")

// Session is one rendered instance of a form: its current field values and
// its submission state. At most one submission is in flight per session.
type Session struct {
	submitter *Submitter
	logger    zerolog.Logger

	mu        sync.Mutex
	machine   *fsm.FSM
	values    formrelay.Fields
	result    formrelay.Result
	done      chan struct{}
	listeners []func(formrelay.Result)
}

func newSession(s *Submitter) *Session {
	done := make(chan struct{})
	close(done)

	return &Session{
		submitter: s,
		logger:    s.logger,
		machine:   newMachine(s.logger),
		values:    s.form.Empty(),
		result:    formrelay.Idle(),
		done:      done,
	}
}

// Set updates one field value. Names the form does not declare are ignored.
func (s *Session) Set(name, value string) {
	if _, ok := s.submitter.form.Field(name); !ok {
		return
	}
	s.mu.Lock()
	s.values.Set(name, value)
	s.mu.Unlock()
}

// Fill updates every declared field present in values.
func (s *Session) Fill(values map[string]string) {
	for name, value := range values {
		s.Set(name, value)
	}
}

// Values returns a snapshot of the current field values in form order.
func (s *Session) Values() formrelay.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// Result returns the current result.
func (s *Session) Result() formrelay.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// CanSubmit reports whether the submit control is enabled.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Can(EventSubmit)
}

// SubmitLabel is the caption of the submit control in the current state.
func (s *Session) SubmitLabel() string {
	form := s.submitter.form
	if !s.CanSubmit() && form.PendingLabel != "" {
		return form.PendingLabel
	}
	return form.SubmitLabel
}

// OnChange registers fn to be called after every state change.
func (s *Session) OnChange(fn func(formrelay.Result)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Done returns a channel closed once the most recent submission completed.
// Before the first submission the channel is already closed.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Wait blocks until the most recent submission completes or ctx ends.
// Ending ctx does not abort the submission.
func (s *Session) Wait(ctx context.Context) (formrelay.Result, error) {
	select {
	case <-s.Done():
		return s.Result(), nil
	case <-ctx.Done():
		return s.Result(), ctx.Err()
	}
}

// Submit validates the current values and, when they pass, moves the
// session to pending and relays them in the background. A validation
// failure is returned as *schema.ValidationError and leaves the state
// untouched. The outcome is observed through Result, Done, Wait or OnChange.
func (s *Session) Submit() error {
	form := s.submitter.form

	s.mu.Lock()
	if !s.machine.Can(EventSubmit) {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}

	fields := s.values.Clone()
	if err := form.Validate(fields); err != nil {
		s.mu.Unlock()
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			s.logger.Debug().Int("issues", len(verr.Issues)).Msg("Submission blocked by validation")
			s.submitter.rejected(verr)
		}
		return err
	}

	if err := s.machine.Event(context.Background(), EventSubmit); err != nil {
		s.mu.Unlock()
		return err
	}
	s.result = formrelay.Pending()
	s.done = make(chan struct{})
	done := s.done
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, formrelay.Pending())
	s.submitter.started()

	go s.complete(fields, done)
	return nil
}

func (s *Session) complete(fields formrelay.Fields, done chan struct{}) {
	c := s.submitter.send(fields)

	event := EventFail
	if c.Result.State == formrelay.StateSuccess {
		event = EventSucceed
	}

	s.mu.Lock()
	if err := s.machine.Event(context.Background(), event); err != nil {
		s.logger.Err(err).Str("event", event).Msg("Unexpected session transition")
	}
	if event == EventSucceed {
		s.values = s.submitter.form.Empty()
	}
	s.result = c.Result
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, c.Result)
	s.submitter.finished(c)
	close(done)
}

func (s *Session) snapshotListeners() []func(formrelay.Result) {
	out := make([]func(formrelay.Result), len(s.listeners))
	copy(out, s.listeners)
	return out
}

func notify(listeners []func(formrelay.Result), result formrelay.Result) {
	for _, fn := range listeners {
		fn(result)
	}
}
