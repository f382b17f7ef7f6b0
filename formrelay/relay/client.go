// Package relay sends form submissions to the hosted form-relay service.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pandentia/formrelay/formrelay"
)

// maxResponseBytes caps how much of a relay response is read. A genuine
// answer is a small {success, message} object.
const maxResponseBytes = 256 << 10

// ErrResponseTooLarge is wrapped by the *TransportError returned when the
// relay answers with more than maxResponseBytes.
var ErrResponseTooLarge = errors.New("relay: response body too large")

// Response is the relay's answer to a submission.
type Response struct {
	Success    bool
	Message    string
	StatusCode int
}

type responseBody struct {
	Success formrelay.RawValue `json:"success"`
	Message formrelay.RawValue `json:"message"`
}

// Client describes a form-relay client. It issues exactly one POST per
// Submit call and never retries.
type Client struct {
	Endpoint   string       // defaults to formrelay.DefaultEndpoint
	HTTPClient *http.Client // defaults to http.DefaultClient
	Logger     zerolog.Logger
}

func (c *Client) endpoint() string {
	if c.Endpoint == "" {
		return formrelay.DefaultEndpoint
	}
	return c.Endpoint
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// Submit relays req. A nil error means the relay reported success; otherwise
// the error is a *TransportError or an *ApplicationError.
func (c *Client) Submit(ctx context.Context, req *formrelay.SubmissionRequest) (Response, error) {
	logger := c.Logger.With().Str("module", "relay").Str("submission", req.ID).Str("form", req.Form).Logger()

	body, err := formrelay.Marshal(req)
	if err != nil {
		return Response{}, &TransportError{Op: "build", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return Response{}, &TransportError{Op: "build", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	logger.Debug().Int("fields", len(req.Fields)).Msg("Sending submission to relay")
	started := time.Now()

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		logger.Err(err).Msg("Relay request failed")
		return Response{}, &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err == nil && len(raw) > maxResponseBytes {
		err = ErrResponseTooLarge
	}
	if err != nil {
		logger.Err(err).Int("status", resp.StatusCode).Msg("Error reading relay response")
		return Response{StatusCode: resp.StatusCode}, &TransportError{Op: "read", StatusCode: resp.StatusCode, Err: err}
	}

	result := Response{StatusCode: resp.StatusCode}
	var decoded responseBody
	if err := formrelay.Unmarshal(raw, &decoded); err != nil {
		logger.Err(err).Int("status", resp.StatusCode).Msg("Error decoding relay response")
		return result, &TransportError{Op: "decode", StatusCode: resp.StatusCode, Err: err}
	}
	result.Success = decoded.Success.Truthy()
	result.Message = decoded.Message.String()

	logger.Debug().
		Int("status", resp.StatusCode).
		Bool("success", result.Success).
		Dur("took", time.Since(started)).
		Msg("Relay answered")

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	switch {
	case !result.Success:
		return result, &ApplicationError{StatusCode: resp.StatusCode, Message: result.Message}
	case !ok:
		return result, &TransportError{
			Op:         "status",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}
	return result, nil
}

// FailureMessage maps a Submit error to the message shown to the user:
// the relay's own message when it rejected the submission, otherwise a
// fallback.
func FailureMessage(err error) string {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		if appErr.Message != "" {
			return appErr.Message
		}
		return formrelay.RejectedFailureMessage
	}
	return formrelay.GenericFailureMessage
}
