package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLevel(t *testing.T) {
	Setup()
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Fatalf("Setup level = %v, want info", got)
	}

	SetLevel("debug")
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Errorf("SetLevel(debug) = %v", got)
	}

	SetLevel("loud")
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Errorf("unknown level changed global level to %v", got)
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
