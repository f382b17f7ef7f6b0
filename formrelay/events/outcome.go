// Package events publishes submission outcomes to the message broker and
// consumes them again for logging.
package events

import (
	"time"

	"github.com/Pandentia/formrelay/formrelay"
	"github.com/Pandentia/formrelay/formrelay/submitter"
)

// Outcome represents a completed submission as published to the broker.
// It never carries the access credential.
type Outcome struct {
	ID          string            `json:"id"`
	Form        string            `json:"form"`
	State       formrelay.State   `json:"state"`
	Message     string            `json:"message,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
}

// NewOutcome converts a submitter completion into an Outcome.
func NewOutcome(c submitter.Completion) Outcome {
	return Outcome{
		ID:          c.ID,
		Form:        c.Form,
		State:       c.Result.State,
		Message:     c.Result.Message,
		Fields:      c.Fields.Without(formrelay.AccessKeyField).Map(),
		CompletedAt: c.Finished.UTC(),
	}
}

// RoutingKey is the topic key the outcome is published under.
func (o Outcome) RoutingKey() string {
	return formrelay.OutcomeRoutingKey + "." + o.Form
}
