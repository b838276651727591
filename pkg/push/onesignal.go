package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"school-admin-be/internal/pkg/logger"
)

const defaultOneSignalBaseURL = "https://onesignal.com/api/v1"

// OneSignalProvider sends a batch create-notification request addressed by
// player ids (our stored device tokens).
type OneSignalProvider struct {
	appID   string
	apiKey  string
	baseURL string
	client  *http.Client
	log     logger.ILogger
}

func NewOneSignalProvider(appID, apiKey, baseURL string, log logger.ILogger) *OneSignalProvider {
	if baseURL == "" {
		baseURL = defaultOneSignalBaseURL
	}
	return &OneSignalProvider{
		appID:   appID,
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

func (p *OneSignalProvider) Name() string {
	return "onesignal"
}

func (p *OneSignalProvider) Configured() bool {
	return p.appID != "" && p.apiKey != ""
}

type oneSignalRequest struct {
	AppID            string            `json:"app_id"`
	IncludePlayerIDs []string          `json:"include_player_ids"`
	Headings         map[string]string `json:"headings"`
	Contents         map[string]string `json:"contents"`
	Data             map[string]string `json:"data,omitempty"`
}

type oneSignalResponse struct {
	ID         string      `json:"id"`
	Recipients int         `json:"recipients"`
	Errors     interface{} `json:"errors,omitempty"`
}

func (p *OneSignalProvider) Send(ctx context.Context, tokens []string, title, message string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	payload := oneSignalRequest{
		AppID:            p.appID,
		IncludePlayerIDs: tokens,
		Headings:         map[string]string{"en": title},
		Contents:         map[string]string{"en": message},
		Data:             data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal onesignal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build onesignal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("onesignal transport failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("onesignal returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed oneSignalResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Errors != nil {
		// Partial failures (stale player ids) are logged but not retried;
		// OneSignal has already accepted the batch.
		p.log.Warn("OneSignalProvider", "Batch accepted with errors", map[string]interface{}{"errors": parsed.Errors})
	}

	return nil
}
