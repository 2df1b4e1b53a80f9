package healthcheck

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/db"
	"github.com/stakevault/nft-staking-service/internal/queue"
)

var logger zerolog.Logger = log.Logger

func SetLogger(customLogger zerolog.Logger) {
	logger = customLogger
}

// StartHealthCheckCron periodically verifies the database and queue
// connections and terminates the service when one stays unhealthy, leaving
// the restart to the orchestrator. A nil queues skips the queue check.
func StartHealthCheckCron(ctx context.Context, dbClient db.DBClient, queues *queue.Queues, cronTime int) error {
	c := cron.New()
	logger.Info().Msg("Initiated Health Check Cron")

	if cronTime == 0 {
		cronTime = 60
	}

	cronSpec := fmt.Sprintf("@every %ds", cronTime)

	_, err := c.AddFunc(cronSpec, func() {
		dbHealthCheck(dbClient)
		queueHealthCheck(queues)
	})

	if err != nil {
		return err
	}

	c.Start()

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Stopping Health Check Cron")
		c.Stop()
	}()

	return nil
}

func dbHealthCheck(dbClient db.DBClient) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dbClient.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Database connection is not healthy.")
		terminateService()
	}
}

func queueHealthCheck(queues *queue.Queues) {
	if queues == nil {
		return
	}
	if err := queues.IsConnectionHealthy(); err != nil {
		logger.Error().Err(err).Msg("Queue connection is not healthy.")
		terminateService()
	}
}

func terminateService() {
	logger.Fatal().Msg("Terminating service due to health check failure.")
	os.Exit(1)
}
