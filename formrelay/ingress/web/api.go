// Package web serves the site's forms over HTTP and relays their submissions.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Pandentia/formrelay/formrelay/schema"
	"github.com/Pandentia/formrelay/formrelay/submitter"
)

// API describes this ingress API.
type API struct {
	Logger zerolog.Logger

	Forms     *schema.Store        // forms to serve
	AccessKey string               // form-relay credential, never rendered
	Relay     submitter.Relay      // relay every submitter sends through
	Observers []submitter.Observer // notified about every submission

	Gatherer prometheus.Gatherer // served at /metrics when set
	Health   healthcheck.Handler // served at /live and /ready when set

	submitters map[string]*submitter.Submitter
	engine     *gin.Engine
}

// New builds one submitter per form and the HTTP routes.
func (api *API) New() error {
	logger := api.Logger.With().Str("module", "initializer").Logger()

	if api.Forms == nil {
		return errors.New("web: no forms configured")
	}

	api.submitters = make(map[string]*submitter.Submitter)
	for _, form := range api.Forms.Forms() {
		s, err := submitter.New(submitter.Config{
			Form:      form,
			AccessKey: api.AccessKey,
			Relay:     api.Relay,
			Logger:    api.Logger,
			Observers: api.Observers,
		})
		if err != nil {
			return fmt.Errorf("web: form %s: %w", form.ID, err)
		}
		api.submitters[form.ID] = s
		logger.Debug().Str("form", form.ID).Str("path", form.Path).Msg("Form registered")
	}

	api.engine = api.routes()
	return nil
}

func (api *API) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	// promhttp negotiates its own compression
	r.Use(gin.Recovery(), requestLogger(api.Logger), gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.SetHTMLTemplate(loadTemplates())

	for _, form := range api.Forms.Forms() {
		r.GET(form.Path, api.pageHandler)
		r.POST(form.Path, api.pageSubmitHandler)
	}

	forms := r.Group("/api/forms")
	forms.GET("", api.listFormsHandler)
	forms.GET("/:id", api.formHandler)
	forms.POST("/:id", api.submitHandler)

	if api.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(api.Gatherer, promhttp.HandlerOpts{})))
	}
	if api.Health != nil {
		r.GET("/live", gin.WrapF(api.Health.LiveEndpoint))
		r.GET("/ready", gin.WrapF(api.Health.ReadyEndpoint))
	}

	return r
}

// ServeHTTP implements http.Handler. New must have been called.
func (api *API) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	api.engine.ServeHTTP(w, req)
}

// Run runs the API instance at a given bind address.
func (api *API) Run(bind string) error {
	server := &http.Server{
		Addr:              bind,
		Handler:           api.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	api.Logger.Info().Str("bind", bind).Msg("Form ingress listening")
	return server.ListenAndServe()
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	logger = logger.With().Str("module", "http").Logger()
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(started)).
			Msg("Request handled")
	}
}
