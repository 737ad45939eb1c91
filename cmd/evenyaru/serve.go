package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/evenyaru/evenyaru/pkg/config"
	"github.com/evenyaru/evenyaru/pkg/server"
	"github.com/evenyaru/evenyaru/pkg/server/ingress"
	"github.com/evenyaru/evenyaru/pkg/server/static"
	"github.com/evenyaru/evenyaru/pkg/state"
	"github.com/evenyaru/evenyaru/pkg/store"

	"github.com/rs/zerolog/log"
)

func serveCommand(configs []string) error {
	processed, err := config.Process(configs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	serverConfig := processed.Server

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redis := store.NewRedisStore(serverConfig.Redis)
	defer redis.Close()

	var audit *state.AuditLog
	if serverConfig.Database != "" {
		db, err := state.InitDB(serverConfig.Database)
		if err != nil {
			log.Fatal().Err(err).Msgf("failed to open database: %s", serverConfig.Database)
		}
		audit = state.NewAuditLog(db)
		log.Info().Str("path", serverConfig.Database).Msg("audit log enabled")
	}

	coordinator := server.New(redis, audit, time.Duration(serverConfig.PollInterval))

	newConnections := make(chan ingress.Connection)
	wsIngress := ingress.NewWSIngress(newConnections)

	go coordinator.Poll(ctx, newConnections)
	coordinator.StartRelay(ctx)

	staticSite, err := static.Site()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load site data")
	}

	listen, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", serverConfig.Ingress.Web.Port))
	if err != nil {
		return err
	}

	log.Info().Msgf("listening on http://%v", listen.Addr())

	mux := http.NewServeMux()
	mux.Handle("/", staticSite)
	mux.Handle("/ws/", wsIngress)
	mux.Handle("/api/", coordinator)

	httpServer := &http.Server{
		Handler: mux,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.Serve(listen)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	select {
	case err := <-errc:
		log.Error().Err(err).Msg("failed to serve")
	case sig := <-sigs:
		log.Info().Msgf("terminating: %v", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Release every locally-held occupant before going away so the shared
	// store does not remember players this process can no longer serve.
	coordinator.Shutdown(shutdownCtx)
	httpServer.Shutdown(shutdownCtx)

	return nil
}
