package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/lambda"
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

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Until log initialization complete, use default json logger instead of it.
		log.Must(zap.NewProduction()).Sugar().Fatalf("*** config.Load: %v", err)
	}

	logger = log.Must(log.NewLogger(log.WithLogLevel(cfg.LogLevel))).Sugar().With(zap.String("app", myName))
	logger.Infof("ver=%s, backend=%s", version, cfg.Backend)

	// Built once per execution environment and reused across invocations.
	c, closeFn, err := counter.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("*** counter.New: %v", err)
	}
	defer closeFn()

	h := visit.NewHandler(c, logger)
	lambda.Start(h.HandleEvent)
}
