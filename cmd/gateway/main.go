// The gateway binary serves the HTTP submission surface: POST /submit
// validates a submission and publishes it to the classify queue.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkms/content-pipeline/internal/config"
	"github.com/pkms/content-pipeline/internal/gateway"
	"github.com/pkms/content-pipeline/internal/logger"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log := logger.Logger.With().Str("service", "gateway").Logger()

	publisher := gateway.NewBrokerPublisher(cfg.BrokerURL, cfg.Exchange, cfg.ClassifyQueue)
	defer publisher.Close()

	handler := gateway.NewHandler(publisher, log)
	port := config.GetString("GATEWAY_PORT", "8080")
	srv := &http.Server{Addr: ":" + port, Handler: handler.Routes()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("gateway server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown failed")
	}
	log.Info().Msg("gateway stopped")
}
