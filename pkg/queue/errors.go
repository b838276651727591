package queue

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/redis/go-redis/v9"
)

// ConnectivityError marks a queue-backend reachability failure, as opposed to
// a protocol or data error. Producers match on this type to downgrade the
// failure to a degraded response instead of failing the caller's request.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return "queue backend unreachable during " + e.Op + ": " + e.Err.Error()
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// classify wraps reachability failures in ConnectivityError and passes
// everything else through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectivity(err) {
		return &ConnectivityError{Op: op, Err: err}
	}
	return err
}

func isConnectivity(err error) bool {
	if errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
