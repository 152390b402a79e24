package main

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/souq-labs/backend-souq/internal/config"
	"github.com/souq-labs/backend-souq/internal/notify"
	"github.com/souq-labs/backend-souq/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	sender := notify.NewSender(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIKey, cfg.WhatsAppCountryPrefix, logger)
	worker := &notify.Worker{Sender: sender, Logger: logger}

	mux := asynq.NewServeMux()
	worker.Register(mux)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
}
