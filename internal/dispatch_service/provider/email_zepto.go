package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ZeptoEmailProvider sends transactional email through a ZeptoMail-style
// HTTP JSON API.
type ZeptoEmailProvider struct {
	logger      *slog.Logger
	httpClient  *http.Client
	apiURL      string
	apiKey      string
	fromAddress string
}

// NewZeptoEmailProvider creates a new ZeptoEmailProvider.
func NewZeptoEmailProvider(logger *slog.Logger, apiURL, apiKey, fromAddress string, httpClient *http.Client) *ZeptoEmailProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ZeptoEmailProvider{
		logger:      logger.With("provider", "zepto_email"),
		httpClient:  httpClient,
		apiURL:      apiURL,
		apiKey:      apiKey,
		fromAddress: fromAddress,
	}
}

func (p *ZeptoEmailProvider) Name() string {
	return "zepto_email"
}

type zeptoAddress struct {
	Address string `json:"address"`
}

type zeptoRecipient struct {
	EmailAddress zeptoAddress `json:"email_address"`
}

type zeptoSendRequest struct {
	From     zeptoAddress     `json:"from"`
	To       []zeptoRecipient `json:"to"`
	Subject  string           `json:"subject"`
	HTMLBody string           `json:"htmlbody,omitempty"`
	TextBody string           `json:"textbody,omitempty"`
}

type zeptoSendResponse struct {
	RequestID string `json:"request_id"`
	Data      []struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
	Message string `json:"message"`
}

func (p *ZeptoEmailProvider) Send(ctx context.Context, msg Message) (*SendResult, error) {
	reqBody := zeptoSendRequest{
		From:     zeptoAddress{Address: p.fromAddress},
		To:       []zeptoRecipient{{EmailAddress: zeptoAddress{Address: msg.Destination}}},
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		TextBody: msg.TextBody,
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
	httpReq.Header.Set("Authorization", "Zoho-enczapikey "+p.apiKey)

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
		p.logger.WarnContext(ctx, "Email provider rejected send",
			"status_code", httpResp.StatusCode, "body", string(respBytes), "delivery_key", msg.DeliveryKey)
		return nil, &SendError{
			Provider:   p.Name(),
			StatusCode: httpResp.StatusCode,
			Cause:      fmt.Errorf("provider response: %s", string(respBytes)),
		}
	}

	var resp zeptoSendResponse
	messageID := ""
	if err := json.Unmarshal(respBytes, &resp); err == nil {
		if len(resp.Data) > 0 && resp.Data[0].MessageID != "" {
			messageID = resp.Data[0].MessageID
		} else {
			messageID = resp.RequestID
		}
	} else {
		p.logger.WarnContext(ctx, "Email accepted but response body unparsable",
			"status_code", httpResp.StatusCode, "delivery_key", msg.DeliveryKey)
	}

	p.logger.InfoContext(ctx, "Email submitted to provider",
		"provider_message_id", messageID, "delivery_key", msg.DeliveryKey)
	return &SendResult{
		ProviderMessageID: messageID,
		ProviderStatus:    fmt.Sprintf("ACCEPTED_%d", httpResp.StatusCode),
	}, nil
}
