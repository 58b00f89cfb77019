package provider

import (
	"context"
	"fmt"
)

// Message is the channel-agnostic content handed to an adapter. Only the
// fields relevant to the adapter's channel are populated; the rest are empty.
type Message struct {
	DeliveryKey string
	EventID     string
	UID         string
	Destination string

	// Email
	Subject  string
	HTMLBody string
	TextBody string

	// SMS / push / in-app
	Title    string
	Body     string
	Deeplink string

	// WhatsApp provider-side templates
	TemplateName   string
	TemplateParams []string
}

// SendResult holds the outcome of a successful provider submission.
type SendResult struct {
	ProviderMessageID string
	ProviderStatus    string
}

// SendError is the typed failure every adapter surfaces on rejection. The
// underlying cause is preserved for logging; callers treat all variants
// identically as "send failed". Retries are the dispatcher's responsibility.
type SendError struct {
	Provider   string
	StatusCode int
	Cause      error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s send failed (status %d): %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("provider %s send failed: %v", e.Provider, e.Cause)
}

func (e *SendError) Unwrap() error {
	return e.Cause
}

// Adapter is the uniform contract every channel provider implements.
type Adapter interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
	Name() string
}
