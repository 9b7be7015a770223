package port

import (
	"context"

	"obavg/internal/domain"
)

// FrameSource owns the single connection to the market-data endpoint.
// Connect must succeed before Subscribe; ReadFrame yields frames until the
// connection errors or the peer closes it, and cannot be restarted.
type FrameSource interface {
	Name() string
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []domain.Symbol) error
	ReadFrame(ctx context.Context) (domain.RawFrame, error)
	Close() error
}

// FrameHandle is one consumer's read view onto the fan-out stream.
type FrameHandle interface {
	Recv(ctx context.Context) (domain.RawFrame, error)
}
