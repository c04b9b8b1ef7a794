package vectorstore

import (
	"context"
	"fmt"
	"time"
)

// defaultPollInterval is how often readiness is rechecked after a create.
const defaultPollInterval = 2 * time.Second

// waitReady polls check until it reports ready, the timeout elapses or ctx
// is cancelled. A zero timeout checks once.
func waitReady(ctx context.Context, name string, timeout, interval time.Duration, check func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.Now().Add(timeout)

	for {
		ready, err := check(ctx)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrIndexNotReady, name, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
