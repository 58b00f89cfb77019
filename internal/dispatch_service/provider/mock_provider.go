package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a simulated channel provider for testing and development.
type MockProvider struct {
	logger       *slog.Logger
	name         string
	failRate     float64 // chance to simulate failure (0.0 to 1.0)
	minLatencyMs int
	maxLatencyMs int
}

// NewMockProvider creates a new MockProvider.
func NewMockProvider(logger *slog.Logger, name string, failRate float64, minLatencyMs, maxLatencyMs int) *MockProvider {
	if name == "" {
		name = "mock-provider"
	}
	return &MockProvider{
		logger:       logger.With("provider", name),
		name:         name,
		failRate:     failRate,
		minLatencyMs: minLatencyMs,
		maxLatencyMs: maxLatencyMs,
	}
}

func (p *MockProvider) Name() string {
	return p.name
}

func (p *MockProvider) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if p.maxLatencyMs > p.minLatencyMs {
		latency := p.minLatencyMs + rand.Intn(p.maxLatencyMs-p.minLatencyMs+1)
		time.Sleep(time.Duration(latency) * time.Millisecond)
	}

	if rand.Float64() < p.failRate {
		p.logger.WarnContext(ctx, "MockProvider simulated failure",
			"destination", msg.Destination, "delivery_key", msg.DeliveryKey)
		return nil, &SendError{
			Provider:   p.name,
			StatusCode: 500,
			Cause:      fmt.Errorf("simulated failure for destination %s", msg.Destination),
		}
	}

	providerMsgID := uuid.NewString()
	p.logger.InfoContext(ctx, "MockProvider send succeeded (simulated)",
		"destination", msg.Destination, "provider_message_id", providerMsgID, "delivery_key", msg.DeliveryKey)
	return &SendResult{
		ProviderMessageID: providerMsgID,
		ProviderStatus:    "accepted",
	}, nil
}
