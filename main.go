package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vizflow/config"
	"vizflow/logger"
	"vizflow/models"
	"vizflow/processor"
	"vizflow/reader"
	"vizflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Vizflow.Name,
		"version": cfg.Vizflow.Version,
		"market":  cfg.Market,
	}).Info("starting vizflow")

	if err := cfg.RegisterMarkets(); err != nil {
		log.WithError(err).Error("failed to register markets")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "", "")
	}

	rawChan := make(chan models.DayBatch, cfg.Channels.RawBuffer)
	processedChan := make(chan models.ResultBatch, cfg.Channels.ProcessedBuffer)

	scanner, err := reader.NewScanner(cfg, rawChan)
	if err != nil {
		log.WithError(err).Error("failed to create scanner")
		os.Exit(1)
	}
	markout := processor.NewMarkout(cfg, rawChan, processedChan)
	resultWriter, err := writer.NewResultWriter(cfg, processedChan)
	if err != nil {
		log.WithError(err).Error("failed to create result writer")
		os.Exit(1)
	}

	if err := resultWriter.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start result writer")
		os.Exit(1)
	}
	if err := markout.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start markout processor")
		os.Exit(1)
	}
	if err := scanner.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start scanner")
		os.Exit(1)
	}

	log.Info("all components started successfully")

	// The scanner closes the raw channel when every date is loaded; the
	// processed channel closes once the markout stage has drained.
	go func() {
		markout.Wait()
		close(processedChan)
	}()

	done := make(chan struct{})
	go func() {
		resultWriter.Wait()
		close(done)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
		log.Info("all dates processed")
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	}

	log.Info("starting graceful shutdown")
	cancel()

	scanner.Stop()
	markout.Stop()
	resultWriter.Stop()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("vizflow stopped")
}
