package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"obavg/internal/application/port"
	"obavg/internal/domain"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultReadTimeout = 60 * time.Second
	defaultPingEvery   = 25 * time.Second
	writeWait          = 5 * time.Second
)

// Options 连接参数，零值使用默认值
type Options struct {
	MaxStreams  int // 单连接最多订阅的流数量，默认 1024
	DialTimeout time.Duration
	ReadTimeout time.Duration // 超过该时间没有任何数据（包括 ping）视为连接失效
	PingEvery   time.Duration
}

// DiffDepthStream 通过 combined stream 端点订阅 <symbol>@depth 增量深度
// 一个实例只对应一条连接，读完即止，不负责重连
type DiffDepthStream struct {
	wsURL  string
	opts   Options
	dialer *websocket.Dialer

	conn      *websocket.Conn
	reqID     atomic.Uint64
	stop      chan struct{}
	closeOnce sync.Once
}

// NewDiffDepthStream wsURL e.g. wss://stream.binance.com:9443/stream
func NewDiffDepthStream(wsURL string, opts Options) *DiffDepthStream {
	if opts.MaxStreams <= 0 {
		opts.MaxStreams = DefaultMaxStreams
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.PingEvery <= 0 {
		opts.PingEvery = defaultPingEvery
	}
	return &DiffDepthStream{
		wsURL:  strings.TrimSpace(wsURL),
		opts:   opts,
		dialer: websocket.DefaultDialer,
		stop:   make(chan struct{}),
	}
}

func (s *DiffDepthStream) Name() string { return ExchangeName }

// Connect 建立连接并安装 ping/pong 处理，控制帧不会出现在 ReadFrame 的结果里
func (s *DiffDepthStream) Connect(ctx context.Context) error {
	if s.conn != nil {
		return fmt.Errorf("%w: already connected", domain.ErrConnection)
	}
	if s.wsURL == "" {
		return fmt.Errorf("%w: ws url empty", domain.ErrConnection)
	}

	log.Info().Str("feed", s.Name()).Str("url", s.wsURL).Msg("ws connecting")
	cctx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
	conn, _, err := s.dialer.DialContext(cctx, s.wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", domain.ErrConnection, s.wsURL, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		return nil
	})
	// 服务端 ping 必须回 pong，否则会被断开
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	s.conn = conn
	go s.keepAlive()

	log.Info().Str("feed", s.Name()).Msg("ws connected")
	return nil
}

func (s *DiffDepthStream) keepAlive() {
	ticker := time.NewTicker(s.opts.PingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// WriteControl 可以和其他方法并发调用
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				log.Debug().Str("feed", s.Name()).Err(err).Msg("ws ping failed")
			}
		}
	}
}

// Subscribe 一次请求订阅全部 symbol 的 depth 流
func (s *DiffDepthStream) Subscribe(ctx context.Context, symbols []domain.Symbol) error {
	if s.conn == nil {
		return fmt.Errorf("%w: not connected", domain.ErrSubscription)
	}
	req, err := BuildSubscribeRequest(symbols, s.opts.MaxStreams, s.reqID.Add(1))
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)
	defer func() { _ = s.conn.SetWriteDeadline(time.Time{}) }()
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSubscription, err)
	}

	log.Info().Str("feed", s.Name()).Strs("streams", req.Params).Uint64("id", req.ID).Msg("ws subscribed")
	return nil
}

// ReadFrame 阻塞直到收到下一条文本帧；ctx 取消时关闭连接以打断读取
func (s *DiffDepthStream) ReadFrame(ctx context.Context) (domain.RawFrame, error) {
	if s.conn == nil {
		return "", fmt.Errorf("%w: not connected", domain.ErrConnection)
	}
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	for {
		typ, b, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %w", domain.ErrConnection, err)
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		if typ != websocket.TextMessage {
			continue
		}
		return domain.RawFrame(b), nil
	}
}

// Close 发送 close 帧并关闭连接，可重复调用
func (s *DiffDepthStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		if s.conn == nil {
			return
		}
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		err = s.conn.Close()
	})
	return err
}

var _ port.FrameSource = (*DiffDepthStream)(nil)
