package svc

import "errors"

// ErrUnknownExchange 错误：配置的交易所没有注册行情源
var ErrUnknownExchange = errors.New("no frame source registered for exchange")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")
