package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/Pandentia/formrelay/formrelay/events"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	app := kingpin.New("outcome-logger", "Logs form submission outcomes published by formrelay")

	AMQPURI := app.Flag("amqp-uri", "The AMQP URI to connect to").Envar("AMQP_URI").Short('u').Required().String()

	verbose := app.Flag("verbose", "Enables debug logging").Short('v').Bool()
	pretty := app.Flag("pretty", "Enables pretty logging").Short('p').Bool()

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

	consumer := events.Consumer{
		MQURI:  *AMQPURI,
		Logger: logger,
	}

	if err := consumer.New(); err != nil {
		logger.Fatal().Err(err).Msg("Error initializing outcome consumer.")
	}
	defer consumer.Close()
	if err := consumer.Run(); err != nil {
		logger.Fatal().Err(err).Msg("Error running outcome consumer.")
	}
}
