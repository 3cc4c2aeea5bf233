package location

import (
	"context"
	"time"
)

// StaticSource reports one fixed coordinate, then waits for cancellation.
type StaticSource struct {
	Lat float64
	Lng float64
}

// Watch emits the configured coordinate once.
func (s StaticSource) Watch(ctx context.Context, emit func(Sample)) error {
	emit(Sample{Lat: s.Lat, Lng: s.Lng, CapturedAt: time.Now()})
	<-ctx.Done()
	return nil
}
