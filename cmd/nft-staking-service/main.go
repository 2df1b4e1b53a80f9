package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/cmd/nft-staking-service/cli"
	"github.com/stakevault/nft-staking-service/cmd/nft-staking-service/scripts"
	"github.com/stakevault/nft-staking-service/internal/api"
	"github.com/stakevault/nft-staking-service/internal/clients"
	"github.com/stakevault/nft-staking-service/internal/config"
	"github.com/stakevault/nft-staking-service/internal/db"
	"github.com/stakevault/nft-staking-service/internal/db/model"
	"github.com/stakevault/nft-staking-service/internal/events"
	"github.com/stakevault/nft-staking-service/internal/ledger"
	"github.com/stakevault/nft-staking-service/internal/observability/healthcheck"
	"github.com/stakevault/nft-staking-service/internal/observability/metrics"
	"github.com/stakevault/nft-staking-service/internal/queue"
	"github.com/stakevault/nft-staking-service/internal/services"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("failed to load .env file")
	}
}

func main() {
	ctx := context.Background()

	// setup cli commands and flags
	if err := cli.Setup(); err != nil {
		log.Fatal().Err(err).Msg("error while setting up cli")
	}

	// load config
	cfgPath := cli.GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	if err := model.Setup(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("error while setting up ledger db model")
	}
	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up database client")
	}
	clients, err := clients.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up token clients")
	}

	// The queue section is optional; without it events only reach the
	// websocket feed and the archived journal.
	var queues *queue.Queues
	var publisher events.EventPublisher
	if cfg.Queue != nil {
		queues, err = queue.New(cfg.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("error while connecting to the event queue")
		}
		publisher = queues
	}

	bus := events.NewBus()
	pipeline := events.NewPipeline(cfg.Ledger.EventBufferSize, publisher, bus)
	defer pipeline.Stop()

	services, err := services.New(ctx, cfg, clients, dbClient, pipeline, ledger.NewSystemClock())
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up the staking ledger services layer")
	}

	// Check if the replay flag is set
	if cli.GetReplayFlag() {
		if queues == nil {
			log.Fatal().Msg("event replay requires the queue section in config")
		}
		log.Info().Msg("Replay flag is set. Starting replay of archived events.")
		if err := scripts.ReplayEvents(ctx, queues, dbClient, cli.GetReplayFromSeq()); err != nil {
			log.Fatal().Err(err).Msg("error while replaying archived events")
		}
		return
	}

	if err := healthcheck.StartHealthCheckCron(ctx, dbClient, queues, cfg.Server.HealthCheckInterval); err != nil {
		log.Fatal().Err(err).Msg("error while starting health check cron")
	}

	apiServer, err := api.New(ctx, cfg, services, bus)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up the staking api service")
	}
	if err = apiServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("error while starting the staking api service")
	}
}
