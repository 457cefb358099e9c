package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tckz/visit-counter/internal/config"
	"github.com/tckz/visit-counter/internal/counter"
	"github.com/tckz/visit-counter/internal/log"
	"github.com/tckz/visit-counter/internal/visit"
	"go.uber.org/zap"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	optListen   = flag.String("listen", defaultListen(), "addr:port to listen")
	optLogLevel = flag.String("log-level", "", "debug|info|warn|error (default: COUNTER_LOG_LEVEL)")
)

func defaultListen() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}

func init() {
	godotenv.Load()

	flag.Parse()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Must(zap.NewProduction()).Sugar().Fatalf("*** config.Load: %v", err)
	}
	if *optLogLevel != "" {
		cfg.LogLevel = *optLogLevel
	}

	logger = log.Must(log.NewLogger(log.WithLogLevel(cfg.LogLevel))).Sugar().With(zap.String("app", myName))
	logger.Infof("ver=%s, args=%s", version, os.Args)
	defer logger.Infof("done")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Fatalf("*** run: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	c, closeFn, err := counter.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	srv := &http.Server{
		Addr:              *optListen,
		Handler:           visit.NewHandler(c, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	chErr := make(chan error, 1)
	go func() {
		logger.Infof("listen=%s, backend=%s", *optListen, cfg.Backend)
		chErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-chErr:
		return err
	case <-ctx.Done():
		logger.Infof("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-chErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
