package web_test

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/h2non/gock"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pandentia/formrelay/formrelay"
	"github.com/Pandentia/formrelay/formrelay/ingress/web"
	"github.com/Pandentia/formrelay/formrelay/metrics"
	"github.com/Pandentia/formrelay/formrelay/relay"
	"github.com/Pandentia/formrelay/formrelay/schema"
	"github.com/Pandentia/formrelay/formrelay/submitter"
)

const accessKey = "super-secret-access-key"

type countingRelay struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRelay) Submit(context.Context, *formrelay.SubmissionRequest) (relay.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return relay.Response{}, r.err
	}
	return relay.Response{Success: true, StatusCode: http.StatusOK}, nil
}

func (r *countingRelay) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newAPI(t *testing.T, rel submitter.Relay, observers ...submitter.Observer) *web.API {
	t.Helper()
	forms, err := schema.Default()
	require.NoError(t, err)

	api := &web.API{
		Logger:    zerolog.Nop(),
		Forms:     forms,
		AccessKey: accessKey,
		Relay:     rel,
		Observers: observers,
	}
	require.NoError(t, api.New())
	return api
}

func do(api http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	return rec
}

const contactJSON = `{
	"email": "a@b.com",
	"name": "Jane",
	"companyname": "Acme",
	"phone": "1234567890",
	"companysize": 50,
	"intrestproduct": "SMS",
	"message": "Hi",
	"agreement": true
}`

func decodeSubmission(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, formrelay.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSubmitThroughRelay(t *testing.T) {
	cases := []struct {
		name       string
		mock       func()
		wantStatus int
		wantState  string
		wantMsg    string
		wantName   string
	}{
		{
			name: "success",
			mock: func() {
				gock.New("https://relay.test").Post("/submit").Reply(200).JSON(map[string]interface{}{"success": true})
			},
			wantStatus: http.StatusOK,
			wantState:  "success",
			wantMsg:    "Thank you! Your message has been sent successfully.",
			wantName:   "",
		},
		{
			name: "rejected",
			mock: func() {
				gock.New("https://relay.test").Post("/submit").Reply(200).JSON(map[string]interface{}{"success": false, "message": "Invalid key"})
			},
			wantStatus: http.StatusBadGateway,
			wantState:  "failure",
			wantMsg:    "Invalid key",
			wantName:   "Jane",
		},
		{
			name: "network error",
			mock: func() {
				gock.New("https://relay.test").Post("/submit").ReplyError(errors.New("no route to host"))
			},
			wantStatus: http.StatusBadGateway,
			wantState:  "failure",
			wantMsg:    "An error occurred. Please try again.",
			wantName:   "Jane",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer gock.Off()
			httpClient := &http.Client{}
			gock.InterceptClient(httpClient)
			defer gock.RestoreClient(httpClient)
			tc.mock()

			api := newAPI(t, &relay.Client{Endpoint: "https://relay.test/submit", HTTPClient: httpClient, Logger: zerolog.Nop()})
			rec := do(api, http.MethodPost, "/api/forms/contact", "application/json", contactJSON)

			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			body := decodeSubmission(t, rec)
			assert.Equal(t, tc.wantState, body["state"])
			assert.Equal(t, tc.wantMsg, body["message"])
			fields := body["fields"].(map[string]interface{})
			assert.Equal(t, tc.wantName, fields["name"])
			assert.NotContains(t, rec.Body.String(), accessKey)
			assert.True(t, gock.IsDone(), "relay should be called exactly once")
		})
	}
}

func TestSubmitValidationNeverReachesRelay(t *testing.T) {
	rel := &countingRelay{}
	reg := prometheus.NewRegistry()
	api := newAPI(t, rel, metrics.New(reg))

	body := strings.Replace(contactJSON, `"1234567890"`, `"12345"`, 1)
	rec := do(api, http.MethodPost, "/api/forms/contact", "application/json", body)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	decoded := decodeSubmission(t, rec)
	assert.Equal(t, "idle", decoded["state"])
	issues := decoded["issues"].([]interface{})
	require.Len(t, issues, 1)
	assert.Equal(t, map[string]interface{}{"field": "phone", "message": "Phone number must be 10 digits."}, issues[0])
	assert.Equal(t, 0, rel.Calls())
}

func TestSubmitUnknownFormAndBadBody(t *testing.T) {
	api := newAPI(t, &countingRelay{})

	rec := do(api, http.MethodPost, "/api/forms/newsletter", "application/json", contactJSON)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(api, http.MethodPost, "/api/forms/contact", "application/json", `{"email": ["a@b.com"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(api, http.MethodPost, "/api/forms/contact", "application/json", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormDescriptors(t *testing.T) {
	api := newAPI(t, &countingRelay{})

	rec := do(api, http.MethodGet, "/api/forms", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"career"`)
	assert.Contains(t, rec.Body.String(), `"id":"schedule-demo"`)

	rec = do(api, http.MethodGet, "/api/forms/career", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"successMessage":"Thank you for your application! We will review it and get back to you soon."`)

	rec = do(api, http.MethodGet, "/api/forms/newsletter", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageRendersForm(t *testing.T) {
	api := newAPI(t, &countingRelay{})

	rec := do(api, http.MethodGet, "/schedule-demo", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "<h1>Schedule a Demo</h1>")
	assert.Contains(t, page, `name="msg"`)
	assert.Contains(t, page, `pattern="[0-9]{10}"`)
	assert.Contains(t, page, `<button type="submit">Schedule a Demo</button>`)
	assert.NotContains(t, page, accessKey)
	assert.NotContains(t, page, "form-status")
}

func contactForm() url.Values {
	return url.Values{
		"email":          {"a@b.com"},
		"name":           {"Jane"},
		"companyname":    {"Acme"},
		"phone":          {"1234567890"},
		"companysize":    {"50"},
		"intrestproduct": {"SMS"},
		"message":        {"Hi"},
		"agreement":      {"on"},
	}
}

func TestPagePostSuccessClearsForm(t *testing.T) {
	rel := &countingRelay{}
	api := newAPI(t, rel)

	rec := do(api, http.MethodPost, "/contact", "application/x-www-form-urlencoded", contactForm().Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Thank you! Your message has been sent successfully.")
	assert.Contains(t, page, `name="email" value=""`)
	assert.NotContains(t, page, "Jane")
	assert.Equal(t, 1, rel.Calls())
}

func TestPagePostFailureKeepsValues(t *testing.T) {
	rel := &countingRelay{err: &relay.ApplicationError{StatusCode: 200, Message: "Invalid key"}}
	api := newAPI(t, rel)

	rec := do(api, http.MethodPost, "/contact", "application/x-www-form-urlencoded", contactForm().Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, `role="alert">Invalid key</p>`)
	assert.Contains(t, page, `value="Jane"`)
	assert.Contains(t, page, `<option value="SMS" selected>SMS</option>`)
	assert.Contains(t, page, ` checked>`)
}

func TestPagePostValidation(t *testing.T) {
	rel := &countingRelay{}
	api := newAPI(t, rel)

	form := contactForm()
	form.Set("phone", "12345")
	form.Del("agreement")
	rec := do(api, http.MethodPost, "/contact", "application/x-www-form-urlencoded", form.Encode())

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Phone number must be 10 digits.")
	assert.Contains(t, page, schema.MessageChecked)
	assert.Contains(t, page, `value="12345"`)
	assert.Equal(t, 0, rel.Calls())
}

func TestOperationalEndpoints(t *testing.T) {
	forms, err := schema.Default()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	health := healthcheck.NewHandler()

	api := &web.API{
		Logger:    zerolog.Nop(),
		Forms:     forms,
		AccessKey: accessKey,
		Relay:     &countingRelay{},
		Observers: []submitter.Observer{metrics.New(reg)},
		Gatherer:  reg,
		Health:    health,
	}
	require.NoError(t, api.New())

	rec := do(api, http.MethodPost, "/api/forms/contact", "application/json", contactJSON)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(api, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `formrelay_submissions_total{form="contact",outcome="success"} 1`)

	// a scraper asking for gzip decompresses exactly once
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	scraped, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(scraped), `formrelay_submissions_total{form="contact",outcome="success"} 1`)

	assert.Equal(t, http.StatusOK, do(api, http.MethodGet, "/live", "", "").Code)
	assert.Equal(t, http.StatusOK, do(api, http.MethodGet, "/ready", "", "").Code)
}

func TestPagesAreCompressed(t *testing.T) {
	api := newAPI(t, &countingRelay{})

	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	page, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(page), `name="companyname"`)
}

func TestNewRequiresAccessKey(t *testing.T) {
	forms, err := schema.Default()
	require.NoError(t, err)
	api := &web.API{Logger: zerolog.Nop(), Forms: forms, Relay: &countingRelay{}}
	assert.ErrorIs(t, api.New(), formrelay.ErrMissingAccessKey)
}
