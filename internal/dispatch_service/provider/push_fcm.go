package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// FCMPushProvider sends push notifications through the FCM legacy HTTP API.
type FCMPushProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	serverKey  string
}

// NewFCMPushProvider creates a new FCMPushProvider.
func NewFCMPushProvider(logger *slog.Logger, apiURL, serverKey string, httpClient *http.Client) *FCMPushProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &FCMPushProvider{
		logger:     logger.With("provider", "fcm_push"),
		httpClient: httpClient,
		apiURL:     apiURL,
		serverKey:  serverKey,
	}
}

func (p *FCMPushProvider) Name() string {
	return "fcm_push"
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmSendRequest struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmSendResponse struct {
	MulticastID int64 `json:"multicast_id"`
	Success     int   `json:"success"`
	Failure     int   `json:"failure"`
	Results     []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

func (p *FCMPushProvider) Send(ctx context.Context, msg Message) (*SendResult, error) {
	reqBody := fcmSendRequest{
		To: msg.Destination,
		Notification: fcmNotification{
			Title: msg.Title,
			Body:  msg.Body,
		},
	}
	if msg.Deeplink != "" {
		reqBody.Data = map[string]string{"deeplink": msg.Deeplink}
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &SendError{Provider: p.Name(), Cause: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, &SendError{Provider: p.Name(), Cause: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "key="+p.serverKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &SendError{Provider: p.Name(), Cause: err}
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &SendError{Provider: p.Name(), StatusCode: httpResp.StatusCode, Cause: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		p.logger.WarnContext(ctx, "Push provider rejected send",
			"status_code", httpResp.StatusCode, "body", string(respBytes), "delivery_key", msg.DeliveryKey)
		return nil, &SendError{
			Provider:   p.Name(),
			StatusCode: httpResp.StatusCode,
			Cause:      fmt.Errorf("provider response: %s", string(respBytes)),
		}
	}

	var resp fcmSendResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, &SendError{Provider: p.Name(), StatusCode: httpResp.StatusCode, Cause: fmt.Errorf("parse response: %w", err)}
	}

	// FCM reports per-token errors inside a 200 response.
	if resp.Failure > 0 || (len(resp.Results) > 0 && resp.Results[0].Error != "") {
		fcmErr := "unknown"
		if len(resp.Results) > 0 && resp.Results[0].Error != "" {
			fcmErr = resp.Results[0].Error
		}
		return nil, &SendError{
			Provider:   p.Name(),
			StatusCode: httpResp.StatusCode,
			Cause:      fmt.Errorf("fcm error: %s", fcmErr),
		}
	}

	messageID := strconv.FormatInt(resp.MulticastID, 10)
	if len(resp.Results) > 0 && resp.Results[0].MessageID != "" {
		messageID = resp.Results[0].MessageID
	}

	p.logger.InfoContext(ctx, "Push submitted to provider",
		"provider_message_id", messageID, "delivery_key", msg.DeliveryKey)
	return &SendResult{
		ProviderMessageID: messageID,
		ProviderStatus:    "accepted",
	}, nil
}
