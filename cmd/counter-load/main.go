package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	vh "github.com/tckz/vegetahelper"
	"github.com/tckz/visit-counter/internal/loadcheck"
	"github.com/tckz/visit-counter/internal/log"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/idtoken"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	optRate = &vh.RateFlag{
		Rate: &vegeta.Rate{
			Freq: 10,
			Per:  1 * time.Second,
		}}
	optDuration    = flag.Duration("duration", 10*time.Second, "Duration of the test [0 = forever]")
	optOutput      = flag.String("output", "", "/path/to/results.bin or 'stdout'")
	optWorkers     = flag.Uint64("workers", vegeta.DefaultWorkers, "Number of workers")
	optLogLevel    = flag.String("log-level", "info", "info|warn|error")
	optURL         = flag.String("url", "", "URL of the counter endpoint")
	optMethod      = flag.String("method", http.MethodPost, "HTTP method of each visit")
	optTimeout     = flag.Duration("timeout", 10*time.Second, "Timeout of each request")
	optAudience    = flag.String("audience", "", "attach an ID token for this audience (Cloud Run with IAM)")
	optAccessToken = flag.Bool("access-token", false, "attach an OAuth2 access token from default credentials")
)

func init() {
	godotenv.Load()

	flag.Var(optRate, "rate", "Number of requests per time unit")
	flag.Parse()

	logger = log.Must(log.NewLogger(log.WithLogLevel(*optLogLevel))).Sugar().With(zap.String("app", myName))
}

type nopWriteCloser struct {
	io.Writer
}

func (c nopWriteCloser) Close() error {
	return nil
}

func openResultFile(out string) (io.WriteCloser, error) {
	switch out {
	case "stdout":
		return &nopWriteCloser{os.Stdout}, nil
	case "":
		return &nopWriteCloser{io.Discard}, nil
	default:
		return os.Create(out)
	}
}

func newHTTPClient(ctx context.Context) (*http.Client, error) {
	switch {
	case *optAudience != "":
		cl, err := idtoken.NewClient(ctx, *optAudience)
		if err != nil {
			return nil, fmt.Errorf("idtoken.NewClient: %w", err)
		}
		cl.Timeout = *optTimeout
		return cl, nil
	case *optAccessToken:
		ts, err := google.DefaultTokenSource(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return nil, fmt.Errorf("google.DefaultTokenSource: %w", err)
		}
		cl := oauth2.NewClient(ctx, ts)
		cl.Timeout = *optTimeout
		return cl, nil
	}
	return &http.Client{Timeout: *optTimeout}, nil
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)
	defer logger.Infof("done")

	if *optURL == "" {
		logger.Fatalf("*** --url must be specified.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cl, err := newHTTPClient(ctx)
	if err != nil {
		logger.Fatalf("*** newHTTPClient: %v", err)
	}

	marker := loadcheck.NewCountMarker()
	hitter := loadcheck.NewHitter(cl, *optURL, *optMethod, marker)

	atk := vh.NewAttacker(func(ctx context.Context) (result *vh.HitResult, retErr error) {
		return result, hitter.Hit(ctx)
	}, vh.WithWorkers(*optWorkers))
	res := atk.Attack(ctx, *optRate.Rate, *optDuration, "counter-load")

	out, err := openResultFile(*optOutput)
	if err != nil {
		logger.Fatal(err)
	}
	defer out.Close()
	enc := vegeta.NewEncoder(out)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)

	eg, egCtx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	eg.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger.Infof("hits=%s", humanize.Comma(int64(marker.Summary().Hits)))
			case <-done:
				return nil
			case <-egCtx.Done():
				return nil
			}
		}
	})

	var metrics vegeta.Metrics
loop:
	for {
		select {
		case s := <-sig:
			logger.Infof("Received signal: %s", s)
			cancel()
			// keep loop until 'res' is closed.
		case r, ok := <-res:
			if !ok {
				break loop
			}
			metrics.Add(r)
			if err := enc.Encode(r); err != nil {
				logger.Errorf("*** Encode: %v", err)
				break loop
			}
		}
	}
	metrics.Close()
	close(done)

	if err := eg.Wait(); err != nil {
		logger.Errorf("Wait: %v", err)
	}

	s := marker.Summary()
	logger.With(
		zap.Int64("non200", hitter.Non200()),
		zap.Float64("successRatio", metrics.Success),
		zap.Duration("p99", metrics.Latencies.P99),
		zap.Int64s("duplicates", s.Duplicates),
	).Infof("hits=%s, min=%s, max=%s, gaps=%s, duplicates=%d",
		humanize.Comma(int64(s.Hits)), humanize.Comma(s.Min), humanize.Comma(s.Max), humanize.Comma(s.Gaps), len(s.Duplicates))

	if len(s.Duplicates) > 0 {
		logger.Fatalf("*** lost updates detected: %d counts were returned more than once", len(s.Duplicates))
	}
}
