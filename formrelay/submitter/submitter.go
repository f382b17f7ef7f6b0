// Package submitter turns a validated form snapshot into exactly one relay
// submission and reflects its outcome as an idle/pending/success/failure
// state per form instance.
package submitter

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/Pandentia/formrelay/formrelay"
	"github.com/Pandentia/formrelay/formrelay/relay"
	"github.com/Pandentia/formrelay/formrelay/schema"
)

// Relay sends one submission to the form-relay service. *relay.Client
// implements it.
type Relay interface {
	Submit(ctx context.Context, req *formrelay.SubmissionRequest) (relay.Response, error)
}

// Completion describes a finished submission. Fields never carry the
// access credential.
type Completion struct {
	ID       string
	Form     string
	Fields   formrelay.Fields
	Result   formrelay.Result
	Err      error
	Started  time.Time
	Finished time.Time
}

// Observer is notified about submission activity. Methods must not block.
type Observer interface {
	Rejected(form string, err *schema.ValidationError)
	Started(form string)
	Finished(c Completion)
}

// Config configures a Submitter.
type Config struct {
	Form      *schema.Form
	AccessKey string
	Relay     Relay
	Logger    zerolog.Logger
	Observers []Observer

	// Policy sanitizes relay-provided failure messages. Defaults to
	// bluemonday's strict policy.
	Policy *bluemonday.Policy
}

// Submitter relays submissions of one form. It holds no per-submission
// state and is safe for concurrent use by any number of sessions.
type Submitter struct {
	form      *schema.Form
	accessKey string
	relay     Relay
	logger    zerolog.Logger
	observers []Observer
	policy    *bluemonday.Policy
}

// New validates cfg and returns a Submitter.
func New(cfg Config) (*Submitter, error) {
	if cfg.Form == nil {
		return nil, errors.New("submitter: form is required")
	}
	if cfg.Relay == nil {
		return nil, errors.New("submitter: relay is required")
	}
	if cfg.AccessKey == "" {
		return nil, formrelay.ErrMissingAccessKey
	}
	policy := cfg.Policy
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}

	return &Submitter{
		form:      cfg.Form,
		accessKey: cfg.AccessKey,
		relay:     cfg.Relay,
		logger:    cfg.Logger.With().Str("module", "submitter").Str("form", cfg.Form.ID).Logger(),
		observers: cfg.Observers,
		policy:    policy,
	}, nil
}

// Form returns the descriptor this submitter relays.
func (s *Submitter) Form() *schema.Form {
	return s.form
}

// NewSession starts a fresh, idle form instance.
func (s *Submitter) NewSession() *Session {
	return newSession(s)
}

// send performs the single relay call for fields and maps its outcome.
func (s *Submitter) send(fields formrelay.Fields) Completion {
	c := Completion{Form: s.form.ID, Fields: fields, Started: time.Now()}

	req, err := formrelay.NewSubmissionRequest(s.form.ID, s.form.Metadata(), fields, s.accessKey)
	if err != nil {
		c.Err = err
		c.Result = formrelay.Failure(formrelay.GenericFailureMessage)
		c.Finished = time.Now()
		return c
	}
	c.ID = req.ID
	c.Fields = req.Fields

	logger := s.logger.With().Str("submission", req.ID).Logger()
	logger.Debug().Msg("Submitting form")

	// the call is not tied to the caller; once issued it runs to completion
	_, err = s.relay.Submit(context.Background(), req)
	c.Finished = time.Now()
	if err != nil {
		c.Err = err
		c.Result = formrelay.Failure(s.failureMessage(err))
		logger.Err(err).Msg("Submission failed")
		return c
	}

	c.Result = formrelay.Success(s.form.SuccessMessage)
	logger.Info().Dur("took", c.Finished.Sub(c.Started)).Msg("Submission relayed")
	return c
}

func (s *Submitter) failureMessage(err error) string {
	msg := relay.FailureMessage(err)
	clean := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(msg)))
	if clean == "" {
		return formrelay.RejectedFailureMessage
	}
	return clean
}

func (s *Submitter) rejected(err *schema.ValidationError) {
	for _, o := range s.observers {
		o.Rejected(s.form.ID, err)
	}
}

func (s *Submitter) started() {
	for _, o := range s.observers {
		o.Started(s.form.ID)
	}
}

func (s *Submitter) finished(c Completion) {
	for _, o := range s.observers {
		o.Finished(c)
	}
}
