package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioProvider sends SMS and WhatsApp messages through a Twilio-style
// Messages API. The same adapter serves both channels; the WhatsApp variant
// prefixes addresses with "whatsapp:" and submits the pre-approved template
// body assembled from rendered parameters.
type TwilioProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	fromNumber string
	whatsapp   bool
}

// NewTwilioSMSProvider creates the SMS variant.
func NewTwilioSMSProvider(logger *slog.Logger, baseURL, accountSID, authToken, fromNumber string, httpClient *http.Client) *TwilioProvider {
	return newTwilioProvider(logger, baseURL, accountSID, authToken, fromNumber, false, httpClient)
}

// NewTwilioWhatsAppProvider creates the WhatsApp variant.
func NewTwilioWhatsAppProvider(logger *slog.Logger, baseURL, accountSID, authToken, fromNumber string, httpClient *http.Client) *TwilioProvider {
	return newTwilioProvider(logger, baseURL, accountSID, authToken, fromNumber, true, httpClient)
}

func newTwilioProvider(logger *slog.Logger, baseURL, accountSID, authToken, fromNumber string, whatsapp bool, httpClient *http.Client) *TwilioProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	name := "twilio_sms"
	if whatsapp {
		name = "twilio_whatsapp"
	}
	return &TwilioProvider{
		logger:     logger.With("provider", name),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		whatsapp:   whatsapp,
	}
}

func (p *TwilioProvider) Name() string {
	if p.whatsapp {
		return "twilio_whatsapp"
	}
	return "twilio_sms"
}

type twilioMessageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"message"`
}

func (p *TwilioProvider) Send(ctx context.Context, msg Message) (*SendResult, error) {
	to := msg.Destination
	from := p.fromNumber
	body := msg.Body
	if p.whatsapp {
		to = "whatsapp:" + to
		from = "whatsapp:" + from
		// Provider-side template: name followed by its rendered parameters.
		parts := append([]string{msg.TemplateName}, msg.TemplateParams...)
		body = strings.Join(parts, "|")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", p.baseURL, p.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &SendError{Provider: p.Name(), Cause: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(p.accountSID, p.authToken)

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
		p.logger.WarnContext(ctx, "Messaging provider rejected send",
			"status_code", httpResp.StatusCode, "body", string(respBytes), "delivery_key", msg.DeliveryKey)
		return nil, &SendError{
			Provider:   p.Name(),
			StatusCode: httpResp.StatusCode,
			Cause:      fmt.Errorf("provider response: %s", string(respBytes)),
		}
	}

	var resp twilioMessageResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		p.logger.WarnContext(ctx, "Message accepted but response body unparsable",
			"status_code", httpResp.StatusCode, "delivery_key", msg.DeliveryKey)
		return &SendResult{ProviderStatus: fmt.Sprintf("ACCEPTED_%d", httpResp.StatusCode)}, nil
	}

	p.logger.InfoContext(ctx, "Message submitted to provider",
		"provider_message_id", resp.SID, "provider_status", resp.Status, "delivery_key", msg.DeliveryKey)
	return &SendResult{
		ProviderMessageID: resp.SID,
		ProviderStatus:    resp.Status,
	}, nil
}
