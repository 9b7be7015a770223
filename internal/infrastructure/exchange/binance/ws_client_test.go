package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obavg/internal/domain"
)

const depthMsg = `{"stream":"btcusdc@depth","data":{"e":"depthUpdate","E":1,"s":"BTCUSDC","U":1,"u":2,"b":[["1","1"]],"a":[["3","1"]]}}`

// newFakeExchange serves one websocket connection per dial with serve.
func newFakeExchange(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestDiffDepthStreamSubscribeAndRead(t *testing.T) {
	subs := make(chan SubscribeRequest, 1)
	pongs := make(chan string, 1)

	url := newFakeExchange(t, func(conn *websocket.Conn) {
		var req SubscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subs <- req
		conn.SetPongHandler(func(data string) error {
			pongs <- data
			return nil
		})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteControl(websocket.PingMessage, []byte("hb"), time.Now().Add(time.Second))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(depthMsg))
		drain(conn)
	})

	src := NewDiffDepthStream(url, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, src.Connect(ctx))
	defer src.Close()
	require.NoError(t, src.Subscribe(ctx, []domain.Symbol{"BTCUSDC", "ETHUSDT", "BTCUSDC"}))

	req := <-subs
	assert.Equal(t, "SUBSCRIBE", req.Method)
	assert.Equal(t, []string{"btcusdc@depth", "ethusdt@depth"}, req.Params)
	assert.Equal(t, uint64(1), req.ID)

	f, err := src.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RawFrame(`{"result":null,"id":1}`), f)

	// the ping sits between the two text frames and must not surface
	f, err = src.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RawFrame(depthMsg), f)

	select {
	case data := <-pongs:
		assert.Equal(t, "hb", data)
	case <-time.After(2 * time.Second):
		t.Fatal("ping was not answered")
	}
}

func TestDiffDepthStreamPeerClose(t *testing.T) {
	url := newFakeExchange(t, func(conn *websocket.Conn) {
		var req SubscribeRequest
		_ = conn.ReadJSON(&req)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	src := NewDiffDepthStream(url, Options{})
	ctx := context.Background()
	require.NoError(t, src.Connect(ctx))
	defer src.Close()
	require.NoError(t, src.Subscribe(ctx, []domain.Symbol{"BTCUSDC"}))

	_, err := src.ReadFrame(ctx)
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestDiffDepthStreamSubscribeWriteTimeout(t *testing.T) {
	url := newFakeExchange(t, drain)

	src := NewDiffDepthStream(url, Options{})
	require.NoError(t, src.Connect(context.Background()))
	defer src.Close()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err := src.Subscribe(ctx, []domain.Symbol{"BTCUSDC"})
	assert.ErrorIs(t, err, domain.ErrSubscription)
	assert.Contains(t, err.Error(), "timeout")
}

func TestDiffDepthStreamReadCancellation(t *testing.T) {
	url := newFakeExchange(t, drain)

	src := NewDiffDepthStream(url, Options{})
	require.NoError(t, src.Connect(context.Background()))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := src.ReadFrame(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDiffDepthStreamConnectErrors(t *testing.T) {
	src := NewDiffDepthStream("ws://127.0.0.1:1/stream", Options{DialTimeout: time.Second})
	err := src.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)

	err = src.Subscribe(context.Background(), []domain.Symbol{"BTCUSDC"})
	assert.ErrorIs(t, err, domain.ErrSubscription)

	_, err = src.ReadFrame(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)

	assert.NoError(t, src.Close())
	assert.NoError(t, src.Close())
}
