package domain

// EmailTemplate is the email channel's content definition.
type EmailTemplate struct {
	Enabled bool   `json:"enabled"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// SMSTemplate is the SMS channel's content definition.
type SMSTemplate struct {
	Enabled bool   `json:"enabled"`
	Text    string `json:"text"`
}

// WhatsAppTemplate references a pre-approved provider-side template by name;
// Params are rendered individually before submission.
type WhatsAppTemplate struct {
	Enabled      bool     `json:"enabled"`
	TemplateName string   `json:"templateName"`
	Params       []string `json:"params,omitempty"`
}

// PushTemplate is the push channel's content definition.
type PushTemplate struct {
	Enabled  bool   `json:"enabled"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Deeplink string `json:"deeplink,omitempty"`
}

// InAppTemplate is the in-app channel's content definition.
type InAppTemplate struct {
	Enabled bool   `json:"enabled"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

// TemplateBundle holds the per-channel content definitions for one
// (locale, eventID) pair. Absent channels are treated as disabled.
type TemplateBundle struct {
	Locale   string            `json:"locale"`
	EventID  string            `json:"eventId"`
	Email    *EmailTemplate    `json:"email,omitempty"`
	SMS      *SMSTemplate      `json:"sms,omitempty"`
	WhatsApp *WhatsAppTemplate `json:"whatsapp,omitempty"`
	Push     *PushTemplate     `json:"push,omitempty"`
	InApp    *InAppTemplate    `json:"inapp,omitempty"`
}

// ChannelEnabled reports whether the bundle defines enabled content for ch.
func (b *TemplateBundle) ChannelEnabled(ch Channel) bool {
	if b == nil {
		return false
	}
	switch ch {
	case ChannelEmail:
		return b.Email != nil && b.Email.Enabled
	case ChannelSMS:
		return b.SMS != nil && b.SMS.Enabled
	case ChannelWhatsApp:
		return b.WhatsApp != nil && b.WhatsApp.Enabled
	case ChannelPush:
		return b.Push != nil && b.Push.Enabled
	case ChannelInApp:
		return b.InApp != nil && b.InApp.Enabled
	default:
		return false
	}
}
