package media

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/fallback"
)

// Acquisition is the outcome of a successful cascade: the stream plus the
// name of the strategy that produced it, kept for diagnostics.
type Acquisition struct {
	Stream   Stream
	Strategy string
}

// Acquire walks the strategies in order and returns the first stream the
// device grants. A strategy failing with an OverconstrainedError is retried
// once with the offending constraints stripped before the cascade moves on.
// When every strategy is exhausted, the error is a *DeviceError derived from
// the last underlying failure.
func Acquire(ctx context.Context, api DeviceAPI, strategies []Strategy, log *zap.Logger) (*Acquisition, error) {
	steps := make([]fallback.Step[Stream], 0, len(strategies))
	for _, s := range strategies {
		s := s
		steps = append(steps, fallback.Step[Stream]{
			Name: s.Name,
			Run: func() (Stream, error) {
				stream, err := api.GetUserMedia(ctx, s.Constraints)
				if err == nil {
					return stream, nil
				}
				var oc *OverconstrainedError
				if errors.As(err, &oc) && !s.Constraints.IsZero() {
					log.Debug("strategy overconstrained, retrying relaxed",
						zap.String("strategy", s.Name),
						zap.String("constraint", oc.Constraint))
					return api.GetUserMedia(ctx, Constraints{})
				}
				return nil, err
			},
		})
	}

	stream, name, err := fallback.First(steps)
	if err != nil {
		return nil, Classify(err)
	}
	log.Info("media acquired", zap.String("strategy", name))
	return &Acquisition{Stream: stream, Strategy: name}, nil
}
