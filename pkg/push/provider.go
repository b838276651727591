// Package push holds the adapters for the external push gateways. Each
// adapter translates a delivery request into one gateway's request/response
// shape; the worker iterates the configured list generically, so adding a
// gateway never touches the worker.
package push

import "context"

// Provider is one external push gateway. An unconfigured provider reports
// Configured() == false and is skipped, never called.
type Provider interface {
	Name() string
	Configured() bool
	// Send pushes the notification to every token in one call. A returned
	// error means a real delivery failure (network, auth, rate limit) and
	// makes the whole job eligible for retry.
	Send(ctx context.Context, tokens []string, title, message string, data map[string]string) error
}
