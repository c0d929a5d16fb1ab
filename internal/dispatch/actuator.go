package dispatch

import "context"

// Actuator is the mechanism that physically delivers text to a screen
// coordinate. Implementations live outside this core; from here it is an
// opaque, possibly-unavailable side effect.
type Actuator interface {
	Deliver(ctx context.Context, x, y int, text string) (bool, error)
}

// DryRun is the disabled actuator: it reports success without acting, so
// validation and bookkeeping run identically with or without real hardware.
type DryRun struct{}

func (DryRun) Deliver(ctx context.Context, x, y int, text string) (bool, error) {
	_ = ctx
	_, _, _ = x, y, text
	return true, nil
}
