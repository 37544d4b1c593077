// Package main runs the chess game server: JSON API, engine opponents and
// optional SQLite persistence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chessrules/cmd/chessd/cli"
	"chessrules/internal/engine"
	"chessrules/internal/service"
	"chessrules/internal/storage"
	"chessrules/internal/transport/http"
)

const gracefulShutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "db: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var (
		apiHost     = flag.String("api-host", "localhost", "API server host")
		apiPort     = flag.Int("api-port", 8080, "API server port")
		dev         = flag.Bool("dev", false, "Development mode (relaxed rate limits, readable logs)")
		accessLog   = flag.Bool("access-log", false, "Log every HTTP request")
		storagePath = flag.String("storage-path", "", "Path to SQLite database file (disables persistence if empty)")
		pidPath     = flag.String("pid", "", "Optional path to write PID file")
		pidLock     = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")

		enginePath   = flag.String("engine", "stockfish", "UCI engine binary for computer players")
		engineArgs   = flag.String("engine-args", "", "Space separated arguments for the engine binary")
		engineDebug  = flag.Bool("engine-debug", false, "Enable engine debug output and log engine traffic")
		bookFile     = flag.String("book", "", "Opening book file passed to the engine")
		maxComputer  = flag.Int("max-computer-games", service.DefaultMaxComputerGames, "Maximum concurrent engine processes")
		pollInterval = flag.Duration("engine-poll", engine.DefaultPollInterval, "Engine reply poll interval")
		maxPolls     = flag.Int("engine-max-polls", engine.DefaultMaxPolls, "Polls before an engine reply times out")
	)
	flag.Parse()

	log, err := newLogger(*dev || *engineDebug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *pidLock && *pidPath == "" {
		log.Fatal("-pid-lock flag requires the -pid flag to be set")
	}

	if *pidPath != "" {
		pid, err := acquirePIDFile(*pidPath, *pidLock)
		if err != nil {
			log.Fatal("failed to manage PID file", zap.Error(err))
		}
		defer pid.Release()
		log.Info("PID file created", zap.String("path", *pidPath), zap.Bool("lock", *pidLock))
	}

	var store *storage.Store
	if *storagePath != "" {
		store, err = storage.NewStore(*storagePath, *dev, log.Named("storage"))
		if err != nil {
			log.Fatal("failed to initialize storage", zap.Error(err))
		}
		if err := store.InitDB(); err != nil {
			log.Fatal("failed to initialize schema", zap.Error(err))
		}
		log.Info("persistent storage enabled", zap.String("path", *storagePath))
	} else {
		log.Info("persistent storage disabled (use -storage-path to enable)")
	}

	svc := service.New(service.Config{
		Engine: engine.Config{
			Path:         *enginePath,
			Args:         strings.Fields(*engineArgs),
			PollInterval: *pollInterval,
			MaxPolls:     *maxPolls,
			Debug:        *engineDebug,
			OwnBook:      *bookFile != "",
			BookFile:     *bookFile,
		},
		MaxComputerGames: *maxComputer,
		Store:            store,
		Logger:           log.Named("service"),
	})

	app := http.NewFiberApp(svc, http.Config{
		DevMode:   *dev,
		AccessLog: *accessLog,
		Logger:    log.Named("http"),
	})

	apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)
	go func() {
		log.Info("chess API server starting",
			zap.String("addr", "http://"+apiAddr),
			zap.String("games", "http://"+apiAddr+"/api/v1/games"),
			zap.String("health", "http://"+apiAddr+"/health"),
			zap.String("engine", *enginePath),
			zap.Bool("dev", *dev))
		if err := app.Listen(apiAddr); err != nil {
			log.Error("API server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", zap.Error(err))
	}
	if err := svc.Close(gracefulShutdownTimeout); err != nil {
		log.Warn("service shutdown error", zap.Error(err))
	}

	log.Info("server exited")
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
