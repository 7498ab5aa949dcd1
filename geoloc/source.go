package geoloc

import (
	"context"
	"errors"

	"github.com/machimap/machimap/venue"
)

// ErrUnavailable means no position source is configured or the device
// refused the reading. Consumers treat it as "position unknown".
var ErrUnavailable = errors.New("position unavailable")

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (venue.Position, error)

func (f SourceFunc) Acquire(ctx context.Context) (venue.Position, error) {
	return f(ctx)
}

// StaticSource always reports a fixed position, for kiosk-style deployments
// where the viewer's location is the venue itself.
func StaticSource(pos venue.Position) Source {
	return SourceFunc(func(context.Context) (venue.Position, error) {
		return pos, nil
	})
}

// NoSource fails every reading. The session then degrades to whatever its
// cache holds, or to position-unknown.
func NoSource() Source {
	return SourceFunc(func(context.Context) (venue.Position, error) {
		return venue.Position{}, ErrUnavailable
	})
}
