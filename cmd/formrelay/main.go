package main

import (
	"net/http"
	"os"

	"github.com/heptiolabs/healthcheck"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/Pandentia/formrelay/formrelay"
	"github.com/Pandentia/formrelay/formrelay/events"
	"github.com/Pandentia/formrelay/formrelay/ingress/web"
	"github.com/Pandentia/formrelay/formrelay/metrics"
	"github.com/Pandentia/formrelay/formrelay/relay"
	"github.com/Pandentia/formrelay/formrelay/schema"
	"github.com/Pandentia/formrelay/formrelay/submitter"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	app := kingpin.New("formrelay", "Form ingress relaying site submissions to a hosted form relay")

	accessKey := app.Flag("access-key", "The form relay access key").Envar("FORM_RELAY_ACCESS_KEY").Required().String()
	endpoint := app.Flag("endpoint", "The form relay submit endpoint").Envar("FORM_RELAY_ENDPOINT").Default(formrelay.DefaultEndpoint).URL()
	bind := app.Flag("bind", "The address to bind to").Default("[::]:8080").Short('b').String()
	formsDir := app.Flag("forms", "Directory of YAML form descriptors replacing the bundled forms").Envar("FORM_RELAY_FORMS").ExistingDir()
	AMQPURI := app.Flag("amqp-uri", "The AMQP URI to publish submission outcomes to").Envar("AMQP_URI").Short('u').String()
	relayTimeout := app.Flag("relay-timeout", "Transport timeout for relay requests").Default("30s").Duration()

	verbose := app.Flag("verbose", "Enables debug logging").Short('v').Bool()
	pretty := app.Flag("pretty", "Enables pretty logging").Short('p').Bool()

	// a missing .env file is fine, the environment may already be set
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if *pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	forms, err := loadForms(*formsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error loading forms.")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))

	observers := []submitter.Observer{metrics.New(registry)}
	if *AMQPURI != "" {
		publisher := &events.Publisher{
			MQURI:  *AMQPURI,
			Logger: logger,
		}
		if err := publisher.New(); err != nil {
			logger.Fatal().Err(err).Msg("Error connecting outcome publisher.")
		}
		defer publisher.Close()
		health.AddReadinessCheck("amqp", publisher.Check)
		observers = append(observers, publisher)
	}

	ingress := &web.API{
		Logger:    logger,
		Forms:     forms,
		AccessKey: *accessKey,
		Relay: &relay.Client{
			Endpoint:   (*endpoint).String(),
			HTTPClient: &http.Client{Timeout: *relayTimeout},
			Logger:     logger,
		},
		Observers: observers,
		Gatherer:  registry,
		Health:    health,
	}

	if err := ingress.New(); err != nil {
		logger.Fatal().Err(err).Msg("Error initializing.")
	}
	if err := ingress.Run(*bind); err != nil {
		logger.Fatal().Err(err).Msg("Error running form ingress.")
	}
}

func loadForms(dir string) (*schema.Store, error) {
	if dir == "" {
		return schema.Default()
	}
	return schema.Load(dir)
}
