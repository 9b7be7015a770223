package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"obavg/internal/application/port"
	"obavg/internal/domain"
)

// RetryConfig WebSocket 连接重试配置
type RetryConfig struct {
	MaxRetries int           // 最大重试次数
	InitialDel time.Duration // 初始延迟
	MaxDelay   time.Duration // 最大延迟
}

// DefaultRetryConfig 默认重试配置
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	InitialDel: 1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// Connector 在启动阶段建立行情连接并完成订阅
// 只有 Connect 失败会重试；订阅被拒绝（数量超限等）直接返回，不重试
type Connector struct {
	retryConfig RetryConfig
	sleep       func(ctx context.Context, d time.Duration) bool
}

// NewConnector 创建连接器
func NewConnector(cfg RetryConfig) *Connector {
	return &Connector{retryConfig: cfg, sleep: sleepCtx}
}

// Open connects src (with retry) and subscribes symbols on it.
func (c *Connector) Open(ctx context.Context, src port.FrameSource, symbols []domain.Symbol) error {
	if err := c.connectWithRetry(ctx, src); err != nil {
		return err
	}
	if err := src.Subscribe(ctx, symbols); err != nil {
		_ = src.Close()
		return err
	}
	return nil
}

// connectWithRetry 带重试的连接
func (c *Connector) connectWithRetry(ctx context.Context, src port.FrameSource) error {
	var lastErr error
	delay := c.retryConfig.InitialDel

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Info().
				Str("exchange", src.Name()).
				Int("attempt", attempt).
				Int64("delay_ms", delay.Milliseconds()).
				Msg("retrying websocket connection")
			if !c.sleep(ctx, delay) {
				return ctx.Err()
			}
			// 指数退避：每次重试延迟翻倍，但不超过最大延迟
			delay = delay * 2
			if delay > c.retryConfig.MaxDelay {
				delay = c.retryConfig.MaxDelay
			}
		}

		err := src.Connect(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed to connect %s websocket after %d retries: %w",
		src.Name(), c.retryConfig.MaxRetries, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
