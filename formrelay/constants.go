package formrelay

// DefaultEndpoint is the hosted form-relay service submissions are sent to.
const DefaultEndpoint = "https://api.web3forms.com/submit"

// Reserved and metadata payload keys.
const (
	AccessKeyField  = "access_key"
	FormSourceField = "form_source"
	SubjectField    = "subject"
)

// User-facing fallback messages.
const (
	GenericFailureMessage  = "An error occurred. Please try again."
	RejectedFailureMessage = "Failed to submit form."
)

// Exchange describes the RabbitMQ exchange name outcome events are published to.
const Exchange = "formrelay"

// Message broker queue names.
const (
	OutcomeQueue = Exchange + ".outcomes"
)

// Routing key prefixes.
const (
	OutcomeRoutingKey = "outcome"
)
