package main

import (
	"fmt"
	"net/http"

	"github.com/mguentner/mailtoken/config"
	"github.com/mguentner/mailtoken/crypto"
	"github.com/mguentner/mailtoken/deliver"
	"github.com/mguentner/mailtoken/handlers"
	"github.com/mguentner/mailtoken/metrics"
	"github.com/mguentner/mailtoken/operations"
	"github.com/mguentner/mailtoken/registry"
	"github.com/mguentner/mailtoken/state"
	"github.com/mguentner/mailtoken/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

var (
	configPath string
	debug      bool
)

func main() {
	flag.StringVar(&configPath, "configPath", "config.yaml", "path to the config file")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	config, err := config.ReadConfigFromFile(configPath)
	if err != nil {
		log.Fatal().Msgf("Could not read config: %v", err)
	}
	rsaKeys, err := crypto.ReadRSAKeysFromPath(config.KeyPath)
	if err != nil {
		log.Fatal().Msgf("Could setup crypto %v", err)
	}
	state, err := state.NewState(*config, rsaKeys)
	if err != nil {
		log.Fatal().Msgf("Could create state: %v", err)
	}
	defer state.Close()
	transport, err := deliver.NewTransport(config.SMTP)
	if err != nil {
		log.Fatal().Msgf("Could not create transport: %v", err)
	}
	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Msgf("Could not register metrics: %v", err)
	}

	// the registry lives as long as the process, tokens are gone on restart
	flow := operations.NewFlow(
		registry.New(),
		operations.WithScheduler(registry.TimeScheduler{}),
		operations.WithGenerator(token.GeneratorFromConfig(*config)),
		operations.WithHasher(crypto.BcryptHasher{Cost: config.BcryptCost}),
		operations.WithTransport(transport),
		operations.WithRecorder(state),
		operations.WithMetrics(m),
	)

	router := handlers.NewRouter(state, config, flow, handlers.DefaultMetricsHandler())
	log.Info().Msgf("Starting to listen on port %d", config.ListenPort)
	err = http.ListenAndServe(fmt.Sprintf(":%d", config.ListenPort), router)
	if err != nil {
		log.Error().Msgf("Server stopped: %v", err)
	}
}
