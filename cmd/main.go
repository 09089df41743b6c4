package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ebookgen/config"
	"ebookgen/db"
	"ebookgen/handlers"
	"ebookgen/logger"
	"ebookgen/producer"
	"ebookgen/render"
	"ebookgen/services"
)

func main() {
	// A missing .env file is fine; the environment may already be set
	_ = godotenv.Load()

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	configPath := flag.String("config", defaultConfig, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	if err := run(cfg, appLog); err != nil {
		appLog.Fatal("Server exited", "error", err)
	}
	appLog.Info("Server stopped")
}

func run(cfg *config.AppConfig, appLog *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	mongoClient, err := db.ConnectMongoDB(ctx, cfg.Mongo.URI, appLog)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		if err := db.DisconnectMongoDB(mongoClient); err != nil {
			appLog.Error("Failed to disconnect MongoDB", "error", err)
		}
	}()

	jobsCol := db.GetJobsCollection(mongoClient, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err := db.EnsureIndexes(ctx, jobsCol); err != nil {
		appLog.Warn("Failed to create indexes", "error", err)
	}
	store := db.NewMongoStore(jobsCol)

	renderer, err := render.New(cfg.Render, appLog)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	textProducer := producer.New(cfg.Producer, appLog)

	tracker := services.NewTracker(store, appLog)
	renders := services.NewRenderRunner(tracker, renderer, appLog)
	ebooks := services.NewEbookGenerator(textProducer, tracker, renders, appLog)
	prompts := services.NewPromptGenerator(textProducer, tracker, renders, appLog)

	// The buffered channel is the in-memory queue; its workers outlive ctx until Stop drains them
	jobWorker := services.NewJobWorker(cfg.Worker.QueueSize, cfg.Worker.Count, appLog)
	jobWorker.Start(context.Background())
	defer jobWorker.Stop()

	dispatcher := services.NewDispatcher(jobWorker, ebooks, prompts, renders, tracker, appLog)
	jobHandler := handlers.NewJobHandler(store, dispatcher, renderer, appLog)

	// Register HTTP routes
	mux := http.NewServeMux()
	jobHandler.Routes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /public/", http.StripPrefix("/public/", http.FileServer(http.Dir(cfg.Render.OutputDir))))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handlers.CORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLog.Info("Starting server", "port", cfg.Server.Port, "live_producer", textProducer.Live())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Wait for interrupt signal to gracefully shutdown the server
		<-gctx.Done()
		appLog.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
