package formrelay

import (
	"errors"

	"github.com/google/uuid"
)

// ErrMissingAccessKey is returned when a request would be built without a credential.
var ErrMissingAccessKey = errors.New("formrelay: access key is required")

// Metadata holds the fixed per-form payload fields.
type Metadata struct {
	Source  string // form_source, for instance "Contact Us Page"
	Subject string // subject line of the relayed notification
}

// SubmissionRequest represents one relay submission. It is built fresh for
// every submit action and discarded once the relay call resolves.
type SubmissionRequest struct {
	ID     string // correlation id, not sent to the relay
	Form   string // form id
	Fields Fields // metadata followed by the user fields, without the credential

	accessKey string
}

// NewSubmissionRequest assembles a request for form. Metadata comes first,
// then fields in order. The credential is appended only when encoding.
func NewSubmissionRequest(form string, meta Metadata, fields Fields, accessKey string) (*SubmissionRequest, error) {
	if accessKey == "" {
		return nil, ErrMissingAccessKey
	}

	payload := make(Fields, 0, len(fields)+2)
	payload = append(payload,
		Field{Name: FormSourceField, Value: meta.Source},
		Field{Name: SubjectField, Value: meta.Subject},
	)
	for _, field := range fields {
		if IsReserved(field.Name) {
			continue
		}
		payload.Set(field.Name, field.Value)
	}

	return &SubmissionRequest{
		ID:        uuid.NewString(),
		Form:      form,
		Fields:    payload,
		accessKey: accessKey,
	}, nil
}

// IsReserved reports whether name is a payload key the user cannot supply.
func IsReserved(name string) bool {
	switch name {
	case AccessKeyField, FormSourceField, SubjectField:
		return true
	}
	return false
}

// Payload returns the fields exactly as they are sent, credential included.
func (r *SubmissionRequest) Payload() Fields {
	payload := r.Fields.Clone()
	payload.Set(AccessKeyField, r.accessKey)
	return payload
}

// MarshalJSON implements json.Marshaler, emitting the wire payload.
func (r *SubmissionRequest) MarshalJSON() ([]byte, error) {
	return r.Payload().MarshalJSON()
}
