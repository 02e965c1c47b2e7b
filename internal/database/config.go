package database

import (
	"context"
	"time"
)

// Timeouts bound every driver call made on behalf of a session.
type Timeouts struct {
	Connect time.Duration // time limit for establishing the session
	Query   time.Duration // per-call deadline for catalog and user queries
}

// DefaultTimeouts returns the limits used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: 10 * time.Second,
		Query:   30 * time.Second,
	}
}

// DialTimeout is the time left before ctx's deadline, rounded up to whole
// seconds and never below one. Without a deadline it falls back to the
// default connect limit. Drivers that take a dial timeout in their DSN use it
// so the DSN agrees with the context the connect runs under.
func DialTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return DefaultTimeouts().Connect
	}
	left := time.Until(deadline)
	if left <= time.Second {
		return time.Second
	}
	if rem := left % time.Second; rem != 0 {
		left += time.Second - rem
	}
	return left
}
