package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"school-admin-be/internal/pkg/logger"
)

// MessagingClient is the subset of the Firebase Messaging API we use, so the
// client can be mocked in unit tests. *messaging.Client satisfies it.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMProvider struct {
	client MessagingClient
	log    logger.ILogger
}

// NewFCMProvider accepts a nil client, which leaves the provider in the
// non-fatal "not configured" state.
func NewFCMProvider(client MessagingClient, log logger.ILogger) *FCMProvider {
	return &FCMProvider{client: client, log: log}
}

func (p *FCMProvider) Name() string {
	return "fcm"
}

func (p *FCMProvider) Configured() bool {
	return p.client != nil
}

func (p *FCMProvider) Send(ctx context.Context, tokens []string, title, message string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
		Notification: &messaging.Notification{
			Title: title,
			Body:  message,
		},
	}

	br, err := p.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		if messaging.IsInvalidArgument(err) {
			// The batch itself was malformed; retrying cannot help.
			p.log.Error("FCMProvider", "FCM rejected batch as invalid argument", map[string]interface{}{"error": err.Error()})
			return nil
		}
		return fmt.Errorf("fcm transport failed: %w", err)
	}

	retryable := 0
	invalid := 0
	for _, resp := range br.Responses {
		if resp.Success {
			continue
		}
		// Dead tokens are not a delivery failure, just garbage rows.
		if messaging.IsInvalidArgument(resp.Error) || messaging.IsRegistrationTokenNotRegistered(resp.Error) {
			invalid++
			continue
		}
		retryable++
	}

	if invalid > 0 {
		p.log.Warn("FCMProvider", "Batch contained invalid tokens", map[string]interface{}{"count": invalid})
	}
	if retryable > 0 {
		return fmt.Errorf("fcm batch had %d retryable send errors", retryable)
	}
	return nil
}
