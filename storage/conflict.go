package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultConflictAttempts is how many times a profile update is tried.
const DefaultConflictAttempts = 5

// RetryOnConflict reruns fn while it fails with ErrConflict. fn must re-read
// the state it modifies on every call. Other errors are returned immediately.
func RetryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, ErrConflict) {
			return err
		}
		// short linear pause lets the competing writer finish
		time.Sleep(time.Duration(attempt) * time.Millisecond)
	}
	return fmt.Errorf("%w: gave up after %d attempts", err, attempts)
}
