package domain

import "errors"

// 连接层错误：无法建立或维持行情连接，发布者以关闭 channel 的方式向下游传播
var ErrConnection = errors.New("market stream connection error")

// 订阅错误：在 subscribe 时立即返回给调用方，不重试
var (
	ErrTooManySymbols = errors.New("too many streams requested")
	ErrSubscription   = errors.New("market stream subscription failed")
)

// ErrParse 帧格式错误，由聚合器在本地跳过
var ErrParse = errors.New("malformed frame")

// 单次查询的终止错误
var (
	ErrEmptyOrderBook = errors.New("order book has no price levels")
	ErrStreamClosed   = errors.New("market stream closed before a matching update arrived")
	ErrInvalidSymbol  = errors.New("invalid symbol")
	ErrUnknownSymbol  = errors.New("symbol is not subscribed")
)
