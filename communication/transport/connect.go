package transport

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval is how often Connect re-checks the client state
const DefaultPollInterval = 100 * time.Millisecond

// Connect is the blocking form of ConnectAsync shared by all clients. It waits on
// the wait handle and polls State until the client left Connecting. When ctx ends
// first the client is disconnected and ctx.Err() returned.
func Connect(ctx context.Context, c IClient, pollInterval time.Duration) error {
	wait, err := c.ConnectAsync()
	if err != nil {
		return err
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for c.State() == Connecting {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return ctx.Err()
		case <-wait:
			wait = nil
		case <-ticker.C:
		}
	}

	if state := c.State(); state != Connected {
		return fmt.Errorf("%w: %s is %s", ErrConnectionFailed, c.ServerURI(), state)
	}
	return nil
}
