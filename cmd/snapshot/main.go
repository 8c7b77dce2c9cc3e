package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	finance "github.com/piquette/finance-go"
	"go.uber.org/zap"

	"pricesnapshot/internal/config"
	"pricesnapshot/internal/httpx"
	"pricesnapshot/internal/logger"
	"pricesnapshot/internal/provider"
	"pricesnapshot/internal/provider/cache"
	"pricesnapshot/internal/provider/financego"
	"pricesnapshot/internal/provider/ratelimit"
	"pricesnapshot/internal/provider/yahoo"
	"pricesnapshot/internal/publish"
	"pricesnapshot/internal/resolver"
	"pricesnapshot/internal/snapshot"
)

func main() {
	var configPath, inPath, outPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.StringVar(&inPath, "in", "", "recommendations JSON (overrides paths.recommendations)")
	flag.StringVar(&outPath, "out", "", "output prices JSON (overrides paths.output)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if inPath != "" {
		cfg.Paths.Recommendations = inPath
	}
	if outPath != "" {
		cfg.Paths.Output = outPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publishers, closePublishers := buildPublishers(ctx, cfg, log)
	defer closePublishers()

	runner := snapshot.New(
		snapshot.Config{InputPath: cfg.Paths.Recommendations, OutputPath: cfg.Paths.Output},
		resolver.New(log, buildTiers(cfg)...),
		snapshot.WithPacer(buildPacer(cfg.Throttle)),
		snapshot.WithProgress(os.Stdout),
		snapshot.WithLogger(log),
		snapshot.WithPublishers(publishers...),
	)
	if _, err := runner.Run(ctx); err != nil {
		closePublishers()
		log.Fatal("snapshot failed", zap.Error(err))
	}
}

func buildTiers(cfg config.Config) []resolver.Tier {
	httpClient := httpx.New(time.Duration(cfg.Yahoo.RequestTimeoutSec) * time.Second)
	if cfg.Yahoo.UserAgent != "" {
		httpClient.UserAgent = cfg.Yahoo.UserAgent
	}

	client := yahoo.NewChartAPIClient(
		yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
		yahoo.WithHTTPClient(httpClient),
	)
	charts := cache.New[*yahoo.Chart](time.Duration(cfg.Yahoo.CacheTTLSeconds)*time.Second, cfg.Yahoo.CacheMaxItems)
	source := yahoo.NewSource(client, charts)

	var snap provider.SnapshotSource = source
	if cfg.Yahoo.SnapshotSource == config.SnapshotQuote {
		finance.SetHTTPClient(httpClient.HTTP)
		snap = financego.New(nil)
	}
	tiers := resolver.Default(source, snap)
	if cfg.Yahoo.SymbolSearch {
		tiers = resolver.WithSearch(tiers, source)
	}
	return tiers
}

func buildPacer(t config.Throttle) ratelimit.Pacer {
	if t.MaxRequestsPerMinute > 0 {
		return ratelimit.PerMinute(t.MaxRequestsPerMinute, t.Burst)
	}
	if t.MinRequestIntervalMs > 0 {
		return &ratelimit.MinInterval{Interval: time.Duration(t.MinRequestIntervalMs) * time.Millisecond}
	}
	return ratelimit.None{}
}

// buildPublishers connects the enabled sinks. A sink that cannot be set up is
// skipped with a warning; the snapshot file is still written.
func buildPublishers(ctx context.Context, cfg config.Config, log *zap.Logger) ([]publish.Publisher, func()) {
	var pubs []publish.Publisher
	var closers []func() error

	if cfg.Redis.Enabled {
		client, err := publish.DialRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis publisher disabled", zap.Error(err))
		} else {
			pubs = append(pubs, publish.NewRedisPublisher(client, cfg.Redis.KeyPrefix, time.Duration(cfg.Redis.TTLSec)*time.Second))
			closers = append(closers, client.Close)
		}
	}
	if cfg.Kafka.Enabled {
		kp := publish.NewKafkaPublisher(publish.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		pubs = append(pubs, kp)
		closers = append(closers, kp.Close)
	}

	closed := false
	return pubs, func() {
		if closed {
			return
		}
		closed = true
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("close publisher", zap.Error(err))
			}
		}
	}
}
