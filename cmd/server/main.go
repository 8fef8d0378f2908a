// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/cache"
	"github.com/MafiaJoker/mafia-game-sub000/internal/config"
	"github.com/MafiaJoker/mafia-game-sub000/internal/database"
	"github.com/MafiaJoker/mafia-game-sub000/internal/game"
	"github.com/MafiaJoker/mafia-game-sub000/internal/outbox"
	"github.com/MafiaJoker/mafia-game-sub000/internal/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.WithError(err).Fatal("logger")
	}
	log := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	hub := server.NewHub(log)
	deps := game.Deps{
		Rules:     engine.DefaultRules(),
		Log:       log,
		Broadcast: hub.Broadcast,
		OnGameEnd: func(gameID int64, result engine.Result, outcome engine.Outcome) {
			log.WithFields(logrus.Fields{"game_id": gameID, "result": result, "outcome": outcome}).Info("game ended")
		},
	}

	var stager *game.Stager
	if cfg.DatabaseURL != "" {
		store, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		ob, err := outbox.Open(cfg.OutboxPath)
		if err != nil {
			return err
		}
		defer ob.Close()
		if n, err := ob.Count(ctx); err == nil && n > 0 {
			log.WithField("pending", n).Warn("outbox holds undelivered writes")
		}
		stager = game.NewStager(store, ob, game.StagerConfig{
			Attempts: cfg.WriteAttempts,
			Timeout:  cfg.WriteTimeout,
		}, log)
		deps.Backend = store
		deps.Stager = stager
	} else {
		log.Warn("MAFIA_DATABASE_URL not set; sessions stay in memory")
	}

	var history server.HistoryReader
	if cfg.RedisAddr != "" {
		historian, err := cache.NewHistorian(ctx, cfg.RedisAddr, cfg.RedisQueue)
		if err != nil {
			return err
		}
		defer historian.Close()
		deps.Historian = historian
		history = historian
	} else {
		log.Warn("MAFIA_REDIS_ADDR not set; action history disabled")
	}

	registry, err := game.NewRegistry(cfg.SessionCapacity, deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(registry, hub, history, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if stager != nil {
		g.Go(func() error { return stager.Run(gctx) })
		g.Go(func() error { return stager.RunReplay(gctx, cfg.RetryInterval) })
	}
	return g.Wait()
}
