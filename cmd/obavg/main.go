package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"obavg/internal/infrastructure/config"
	"obavg/internal/infrastructure/logger"
	"obavg/internal/infrastructure/svc"
	"obavg/internal/interfaces/web"
)

// errStreamEnded 行情连接断开；进程退出，由外部重启
var errStreamEnded = errors.New("market stream ended")

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.SetLevel(cfg.App.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	if err := sc.Start(ctx); err != nil {
		log.Error().Err(err).Msg("market stream start failed")
		_ = sc.Close()
		os.Exit(1)
	}

	server := web.NewServer(sc.OrderBook(), sc.Publisher(), web.Options{
		StaticDir:      cfg.App.StaticDir,
		RateLimitRPS:   cfg.Query.RateLimitRPS,
		RateLimitBurst: cfg.Query.RateLimitBurst,
	})

	log.Info().
		Str("config", *configPath).
		Str("exchange", cfg.Stream.Exchange).
		Int("symbols", len(cfg.Stream.Symbols)).
		Int("buffer_capacity", cfg.Stream.BufferCapacity).
		Str("listen", cfg.ListenAddr()).
		Msg("obavg started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, cfg.ListenAddr())
	})
	g.Go(func() error {
		select {
		case <-sc.Publisher().Done():
			if ctx.Err() != nil {
				return nil
			}
			if err := sc.Publisher().Err(); err != nil {
				return errors.Join(errStreamEnded, err)
			}
			return errStreamEnded
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("obavg exited")
		_ = sc.Close()
		os.Exit(1)
	}
	log.Info().Msg("obavg stopped")
}
