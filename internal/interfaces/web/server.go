package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"obavg/internal/domain"
)

const shutdownTimeout = 5 * time.Second

// Querier is the inbound query interface the boundary adapts.
type Querier interface {
	AveragePrice(ctx context.Context, symbol string) (domain.AggregationResult, error)
	Symbols() []domain.Symbol
}

// StreamStatus reports whether the shared market stream is still live.
type StreamStatus interface {
	Running() bool
	Err() error
	Published() uint64
	Lagged() uint64
}

type Options struct {
	StaticDir      string
	RateLimitRPS   float64 // <= 0 关闭限流
	RateLimitBurst int
}

type Server struct {
	engine  *gin.Engine
	querier Querier
	status  StreamStatus
	opts    Options
}

func NewServer(q Querier, status StreamStatus, opts Options) *Server {
	s := &Server{
		engine:  gin.New(),
		querier: q,
		status:  status,
		opts:    opts,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery(), accessLog(), cors.Default())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if s.opts.RateLimitRPS > 0 {
		burst := s.opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		api.Use(rateLimit(rate.NewLimiter(rate.Limit(s.opts.RateLimitRPS), burst)))
	}
	api.GET("/get_average_orderbook_price", s.averageSocket)
	api.GET("/average/:symbol", s.average)

	r.NoRoute(s.static)
}

// Handler 返回 http.Handler（测试用 httptest 包一层即可）
func (s *Server) Handler() http.Handler { return s.engine }

// Serve 监听 addr 直到 ctx 结束，然后优雅关闭
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
		_ = srv.Close()
	}
	log.Info().Msg("http server stopped")
	return nil
}

type averageResponse struct {
	Symbol       string    `json:"symbol"`
	AveragePrice string    `json:"average_price"`
	Levels       int       `json:"levels"`
	ComputedAt   time.Time `json:"computed_at"`
}

func toResponse(res domain.AggregationResult) averageResponse {
	return averageResponse{
		Symbol:       res.Symbol.String(),
		AveragePrice: res.AveragePrice.String(),
		Levels:       res.Levels,
		ComputedAt:   res.ComputedAt,
	}
}

func (s *Server) average(c *gin.Context) {
	res, err := s.querier.AveragePrice(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"symbol": c.Param("symbol"), "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(res))
}

// statusFor maps query errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSymbol):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyOrderBook):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStreamClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) health(c *gin.Context) {
	symbols := s.querier.Symbols()
	names := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		names = append(names, sym.String())
	}

	body := gin.H{
		"status":           "up",
		"symbols":          names,
		"frames_published": s.status.Published(),
		"frames_dropped":   s.status.Lagged(),
	}
	code := http.StatusOK
	if !s.status.Running() {
		body["status"] = "closed"
		code = http.StatusServiceUnavailable
		if err := s.status.Err(); err != nil {
			body["error"] = err.Error()
		}
	}
	c.JSON(code, body)
}

// static 提供前端构建产物；未知路径回落到 index.html
func (s *Server) static(c *gin.Context) {
	p := c.Request.URL.Path
	if s.opts.StaticDir == "" || strings.HasPrefix(p, "/api/") || c.Request.Method != http.MethodGet {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	name := filepath.Join(s.opts.StaticDir, filepath.FromSlash(path.Clean("/"+p)))
	if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
		c.File(name)
		return
	}
	c.File(filepath.Join(s.opts.StaticDir, "index.html"))
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("http")
	}
}

func rateLimit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		c.Next()
	}
}
