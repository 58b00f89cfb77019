package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioProvider_SendSMS(t *testing.T) {
	var capturedPath string
	var capturedForm url.Values
	var sid, token string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		sid, token, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		capturedForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer server.Close()

	p := NewTwilioSMSProvider(testLogger(), server.URL, "AC42", "secret", "+15550001111", server.Client())
	result, err := p.Send(context.Background(), Message{
		Destination: "+33612345678",
		Body:        "Bienvenue William",
	})

	require.NoError(t, err)
	assert.Equal(t, "twilio_sms", p.Name())
	assert.Equal(t, "SM123", result.ProviderMessageID)
	assert.Equal(t, "queued", result.ProviderStatus)

	assert.Equal(t, "/Accounts/AC42/Messages.json", capturedPath)
	assert.Equal(t, "AC42", sid)
	assert.Equal(t, "secret", token)
	assert.Equal(t, "+33612345678", capturedForm.Get("To"))
	assert.Equal(t, "+15550001111", capturedForm.Get("From"))
	assert.Equal(t, "Bienvenue William", capturedForm.Get("Body"))
}

func TestTwilioProvider_SendWhatsAppTemplate(t *testing.T) {
	var capturedForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		capturedForm = r.PostForm
		_, _ = w.Write([]byte(`{"sid":"WA456","status":"accepted"}`))
	}))
	defer server.Close()

	p := NewTwilioWhatsAppProvider(testLogger(), server.URL, "AC42", "secret", "+15550001111", server.Client())
	result, err := p.Send(context.Background(), Message{
		Destination:    "+33612345678",
		TemplateName:   "welcome_v2",
		TemplateParams: []string{"William", "SOS Expat"},
	})

	require.NoError(t, err)
	assert.Equal(t, "twilio_whatsapp", p.Name())
	assert.Equal(t, "WA456", result.ProviderMessageID)

	assert.Equal(t, "whatsapp:+33612345678", capturedForm.Get("To"))
	assert.Equal(t, "whatsapp:+15550001111", capturedForm.Get("From"))
	assert.Equal(t, "welcome_v2|William|SOS Expat", capturedForm.Get("Body"))
}

func TestTwilioProvider_Send_RejectionSurfacesSendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"invalid 'To' phone number"}`))
	}))
	defer server.Close()

	p := NewTwilioSMSProvider(testLogger(), server.URL, "AC42", "secret", "+15550001111", server.Client())
	_, err := p.Send(context.Background(), Message{Destination: "nonsense", Body: "hi"})

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, http.StatusBadRequest, sendErr.StatusCode)
	assert.Contains(t, sendErr.Error(), "invalid 'To' phone number")
}
