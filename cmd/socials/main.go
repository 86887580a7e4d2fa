package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/internal/config"
	"github.com/jmartynas/socials/internal/database"
	"github.com/jmartynas/socials/internal/migrations"
	"github.com/jmartynas/socials/internal/server"
	"github.com/jmartynas/socials/internal/session"
	"github.com/jmartynas/socials/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Error("parsing environment variables")
		os.Exit(1)
	}
	if err := cfg.Validate(false, true); err != nil {
		logrus.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}
	log := newLogger(cfg)

	var dbc dbresolver.DB
	if cfg.MySQL.DSN() != "" {
		dbc, err = database.Open(cfg.MySQL, log)
		if err != nil {
			log.WithError(err).Error("mysql connection failed")
			os.Exit(1)
		}
		defer dbc.Close()
		log.Info("mysql connected")

		if err := migrations.Up(database.Primary(dbc), log); err != nil {
			log.WithError(err).Error("migrations failed")
			os.Exit(1)
		}
	} else {
		log.Warn("mysql not configured, accounts will not be stored")
	}

	var states strategy.StateStore
	switch cfg.OAuth.StateStore {
	case config.StateStoreRedis:
		client, err := session.Connect(cfg.Redis)
		if err != nil {
			log.WithError(err).Error("redis connection failed")
			os.Exit(1)
		}
		defer client.Close()
		states = session.NewRedisStateStore(client, log)
	default:
		states = server.NewCookieStates(cfg.OAuth)
	}

	srv := server.New(cfg, log, dbc, states)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown error")
		return
	}
	log.Info("server stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Production {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
