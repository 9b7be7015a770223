package marketstream

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"obavg/internal/application/port"
)

// Settings 创建行情源所需的参数（来自配置）
type Settings struct {
	WsURL       string
	MaxStreams  int
	ReadTimeout time.Duration
	PingEvery   time.Duration
}

// factory函数类型
type Factory func(s Settings) port.FrameSource

// registry maps exchange names to their frame source factories
var registry = make(map[string]Factory)

// Register 注册一个 frame source factory
// 这是由各个交易所包的init()函数调用来自注册的
func Register(exchangeName string, factory Factory) {
	if factory == nil {
		log.Warn().Str("exchange", exchangeName).Msg("invalid frame source factory")
		return
	}
	if _, exists := registry[exchangeName]; exists {
		log.Warn().Str("exchange", exchangeName).Msg("frame source factory already registered, overwriting")
	}
	registry[exchangeName] = factory
	log.Debug().Str("exchange", exchangeName).Msg("frame source factory registered")
}

// Get 获取已注册的 factory
func Get(exchangeName string) (Factory, bool) {
	factory, ok := registry[exchangeName]
	return factory, ok
}

// Names 已注册的交易所名称，按字母排序
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
