package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/devapi"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/logging"
	"github.com/jrsteele09/go-session-client/roles"
)

func main() {
	_ = godotenv.Load()

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetEnv())

	figure.NewFigure("devapi", "cybermedium", true).Print()
	fmt.Println()

	backend, err := devapi.Bootstrap(c, devapi.Options{RotateRefresh: c.GetDevAPIRotateRefresh()})
	if err != nil {
		log.Fatal().Err(err).Msg("devapi.Bootstrap")
	}
	for _, role := range roles.All() {
		log.Info().Str("email", devapi.SeedEmail(role)).Str("password", devapi.SeedPassword).Msg("seeded account")
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go backend.Run(log.Logger.WithContext(runCtx))

	srv := &http.Server{Addr: c.GetDevAPIPort(), Handler: backend}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("devapi listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("devapi.ListenAndServe")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	stopRun()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("devapi.Shutdown")
	}
}
