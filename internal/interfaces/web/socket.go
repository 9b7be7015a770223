package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	socketWriteWait = 5 * time.Second
	// 单连接排队中的查询上限，超过视为滥用并断开
	maxPendingQueries = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 浏览器客户端可能来自别的端口
	CheckOrigin: func(r *http.Request) bool { return true },
}

type socketReply struct {
	Symbol       string `json:"symbol"`
	AveragePrice string `json:"average_price,omitempty"`
	Levels       int    `json:"levels,omitempty"`
	Error        string `json:"error,omitempty"`
}

// averageSocket 每条文本消息是一个交易对，每条回复是一次查询结果。
// 查询按顺序执行；读协程一直在读，客户端断开会取消正在进行的查询。
func (s *Server) averageSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	symbols := make(chan string, maxPendingQueries)
	go func() {
		defer cancel()
		defer close(symbols)
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket client gone")
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			select {
			case symbols <- string(data):
			default:
				log.Warn().Int("pending", maxPendingQueries).Msg("websocket client has too many pending queries, closing")
				return
			}
		}
	}()

	for sym := range symbols {
		reply := socketReply{Symbol: sym}
		res, err := s.querier.AveragePrice(ctx, sym)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			reply.Error = err.Error()
		} else {
			reply.Symbol = res.Symbol.String()
			reply.AveragePrice = res.AveragePrice.String()
			reply.Levels = res.Levels
		}

		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
}
