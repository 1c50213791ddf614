package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Joab0/squarecloud-manager/bot"
)

func main() {
	// Missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	cfg, err := bot.ConfigFromEnv()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	var log *zap.Logger
	if cfg.Debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	b, err := bot.New(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize bot", zap.Error(err))
	}

	if err := b.Start(); err != nil {
		log.Fatal("failed to start bot", zap.Error(err))
	}
	log.Info("bot is running, press CTRL+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := b.Close(); err != nil {
		log.Error("shutdown errors", zap.Error(err))
	}
}
