package service

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// flightGroup collapses concurrent calls that share a key.
//
// The shared call runs on a context detached from the first caller's
// cancellation, so one caller going away does not fail the others. Each
// caller still stops waiting when its own ctx is done.
type flightGroup struct {
	group singleflight.Group

	// waiting, when set, is called once a caller has joined a flight and
	// is about to wait for its result.
	waiting func(key string)
}

func (f *flightGroup) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (v any, shared bool, err error) {
	detached := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	if f.waiting != nil {
		f.waiting(key)
	}

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
