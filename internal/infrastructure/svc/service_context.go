package svc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"obavg/internal/application/fanout"
	"obavg/internal/application/port"
	"obavg/internal/application/usecase/orderbook"
	"obavg/internal/infrastructure/config"
	"obavg/internal/infrastructure/container"
	"obavg/internal/infrastructure/marketstream"
	"obavg/internal/infrastructure/websocket"

	// 注册行情源
	_ "obavg/internal/infrastructure/exchange/binance"
)

type ServiceContext struct {
	Config *config.Config

	// 基础设施层（第一层初始化）
	container *container.Container
	source    port.FrameSource
	connector *websocket.Connector

	// 应用业务组件（依赖基础设施）
	publisher *fanout.Publisher
	service   *orderbook.Service
}

// New 创建并初始化 ServiceContext
// 这是应用启动的唯一入口点，所有依赖初始化都在这里完成
func New(cfg *config.Config) (*ServiceContext, error) {
	factory, ok := marketstream.Get(cfg.Stream.Exchange)
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownExchange, cfg.Stream.Exchange, marketstream.Names())
	}

	c, err := container.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}

	retry := websocket.DefaultRetryConfig
	retry.MaxRetries = cfg.Stream.ConnectRetries

	return newWithSource(cfg, c, factory(marketstream.Settings{
		WsURL:       cfg.Stream.WsURL,
		MaxStreams:  cfg.Stream.MaxStreams,
		ReadTimeout: cfg.ReadTimeout(),
		PingEvery:   cfg.PingEvery(),
	}), websocket.NewConnector(retry)), nil
}

func newWithSource(cfg *config.Config, c *container.Container, src port.FrameSource, conn *websocket.Connector) *ServiceContext {
	pub := fanout.NewPublisher(src, cfg.Stream.BufferCapacity)
	return &ServiceContext{
		Config:    cfg,
		container: c,
		source:    src,
		connector: conn,
		publisher: pub,
		service: orderbook.NewService(orderbook.ServiceDeps{
			Stream:   pub,
			Symbols:  cfg.SymbolList(),
			Restrict: cfg.Query.RestrictSymbols,
			Timeout:  cfg.QueryTimeout(),
			Repo:     c.ResultRepository(),
		}),
	}
}

// Start 连接行情源、订阅全部交易对，然后启动唯一的读循环
func (sc *ServiceContext) Start(ctx context.Context) error {
	symbols := sc.Config.SymbolList()
	if err := sc.connector.Open(ctx, sc.source, symbols); err != nil {
		return err
	}
	log.Info().
		Str("exchange", sc.source.Name()).
		Int("symbols", len(symbols)).
		Msg("✓ market stream subscribed")
	return sc.publisher.Start(ctx)
}

// OrderBook 获取查询服务
func (sc *ServiceContext) OrderBook() *orderbook.Service {
	return sc.service
}

// Publisher 获取行情分发器
func (sc *ServiceContext) Publisher() *fanout.Publisher {
	return sc.publisher
}

// Close 关闭 ServiceContext 中的所有资源
// 读循环未启动时由这里关闭行情连接，否则由读循环自己关闭
func (sc *ServiceContext) Close() error {
	if !sc.publisher.Running() {
		if err := sc.source.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing frame source")
		}
	}
	return sc.container.Close()
}
