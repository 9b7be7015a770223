package binance

import (
	"obavg/internal/application/port"
	"obavg/internal/infrastructure/marketstream"
)

// init() automatically registers the Binance diff depth frame source
func init() {
	marketstream.Register(ExchangeName, func(s marketstream.Settings) port.FrameSource {
		return NewDiffDepthStream(s.WsURL, Options{
			MaxStreams:  s.MaxStreams,
			ReadTimeout: s.ReadTimeout,
			PingEvery:   s.PingEvery,
		})
	})
}
