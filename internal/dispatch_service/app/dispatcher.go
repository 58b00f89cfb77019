package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/localize"
	"github.com/sosexpat/notification-service/internal/dispatch_service/provider"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
	"github.com/sosexpat/notification-service/internal/dispatch_service/template"
)

// ChannelOutcome is the terminal state of one channel attempt.
type ChannelOutcome string

const (
	OutcomeSent               ChannelOutcome = "sent"
	OutcomeFailed             ChannelOutcome = "failed"
	OutcomeLedgerError        ChannelOutcome = "ledger_error"
	OutcomeSkippedDisabled    ChannelOutcome = "skipped_disabled"
	OutcomeSkippedAlreadySent ChannelOutcome = "skipped_already_sent"
	OutcomeSkippedMissing     ChannelOutcome = "skipped_missing_destination_or_content"
)

// AbortReason explains why an event produced no channel attempts at all.
// These are expected configuration states, not system errors.
type AbortReason string

const (
	AbortNone              AbortReason = ""
	AbortMessagingDisabled AbortReason = "messaging_disabled"
	AbortNoTemplate        AbortReason = "no_template"
	AbortRateLimited       AbortReason = "rate_limited"
)

// ChannelResult is the per-channel slice of a dispatch outcome summary.
type ChannelResult struct {
	Outcome     ChannelOutcome
	DeliveryKey string
	Error       string
}

// DispatchOutcome is the orchestrator's outward summary. The real observable
// effects are the ledger records and the provider-side sends; this exists for
// logging and tests.
type DispatchOutcome struct {
	EventID  string
	Locale   string
	Aborted  AbortReason
	Channels map[domain.Channel]ChannelResult
}

// Dispatcher is the top-level driver for one incoming event: it resolves
// locale, template, routing and rate limit, renders channel content, and
// performs ledger-guarded sends. Idempotency is enforced by the ledger's
// atomic conditional create, not by in-process locking, so concurrent
// invocations for the same event are safe.
type Dispatcher struct {
	settings        repository.SettingsRepository
	localeResolver  *localize.Resolver
	templates       *template.Store
	router          *Router
	rateLimiter     *RateLimiter
	ledger          *Ledger
	providers       map[domain.Channel]provider.Adapter
	providerTimeout time.Duration
	logger          *slog.Logger
}

// NewDispatcher creates a new Dispatcher. providers maps each channel to its
// configured adapter; a channel with no adapter fails its attempts.
func NewDispatcher(
	settings repository.SettingsRepository,
	localeResolver *localize.Resolver,
	templates *template.Store,
	router *Router,
	rateLimiter *RateLimiter,
	ledger *Ledger,
	providers map[domain.Channel]provider.Adapter,
	providerTimeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if providerTimeout <= 0 {
		providerTimeout = 15 * time.Second
	}
	return &Dispatcher{
		settings:        settings,
		localeResolver:  localeResolver,
		templates:       templates,
		router:          router,
		rateLimiter:     rateLimiter,
		ledger:          ledger,
		providers:       providers,
		providerTimeout: providerTimeout,
		logger:          logger.With("component", "dispatcher"),
	}
}

// Dispatch processes one event end to end. A non-nil error means the pipeline
// could not make a safe decision (store failures); expected configuration
// states (kill switch, missing template, rate limit) return a summary with
// the abort reason and no error.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) (*DispatchOutcome, error) {
	start := time.Now()
	outcome := &DispatchOutcome{
		EventID:  event.EventID,
		Channels: make(map[domain.Channel]ChannelResult),
	}

	enabled, err := d.settings.MessagingEnabled(ctx)
	if err != nil {
		eventsProcessedCounter.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("kill switch lookup failed: %w", err)
	}
	if !enabled {
		d.logger.InfoContext(ctx, "Messaging disabled, ignoring event", "event_id", event.EventID)
		outcome.Aborted = AbortMessagingDisabled
		eventsProcessedCounter.WithLabelValues(string(AbortMessagingDisabled)).Inc()
		return outcome, nil
	}

	locale := d.resolveLocale(event)
	outcome.Locale = locale

	bundle, err := d.templates.GetBundle(ctx, locale, event.EventID)
	if err != nil {
		eventsProcessedCounter.WithLabelValues("error").Inc()
		return nil, err
	}
	if bundle == nil {
		d.logger.InfoContext(ctx, "No template bundle for event, nothing to send",
			"event_id", event.EventID, "locale", locale)
		outcome.Aborted = AbortNoTemplate
		eventsProcessedCounter.WithLabelValues(string(AbortNoTemplate)).Inc()
		return outcome, nil
	}

	routing, err := d.router.Resolve(ctx, event.EventID)
	if err != nil {
		eventsProcessedCounter.WithLabelValues("error").Inc()
		return nil, err
	}

	// Rate limiting is evaluated once per event, not once per channel.
	limited, err := d.rateLimiter.IsLimited(ctx, event.UID, event.EventID, routing.RateLimitHours())
	if err != nil {
		eventsProcessedCounter.WithLabelValues("error").Inc()
		return nil, err
	}
	if limited {
		outcome.Aborted = AbortRateLimited
		eventsProcessedCounter.WithLabelValues(string(AbortRateLimited)).Inc()
		return outcome, nil
	}

	renderCtx := buildRenderContext(event, locale)
	channels := routing.AttemptOrder()

	if routing.EffectiveStrategy() == domain.StrategyFallback {
		d.dispatchFallback(ctx, event, bundle, renderCtx, locale, channels, outcome)
	} else {
		d.dispatchParallel(ctx, event, bundle, renderCtx, locale, channels, outcome)
	}

	dispatchDurationHist.WithLabelValues(event.EventID).Observe(time.Since(start).Seconds())
	eventsProcessedCounter.WithLabelValues("dispatched").Inc()
	d.logger.InfoContext(ctx, "Event dispatched",
		"event_id", event.EventID, "locale", locale,
		"strategy", string(routing.EffectiveStrategy()), "channels", summarize(outcome))
	return outcome, nil
}

// dispatchParallel attempts all enabled channels independently. One channel's
// failure never aborts its siblings; there is no ordering between channels.
func (d *Dispatcher) dispatchParallel(ctx context.Context, event domain.Event, bundle *domain.TemplateBundle,
	renderCtx map[string]any, locale string, channels []domain.Channel, outcome *DispatchOutcome) {

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		ch := ch
		g.Go(func() error {
			result := d.attemptChannel(gctx, event, ch, bundle, renderCtx, locale)
			mu.Lock()
			outcome.Channels[ch] = result
			mu.Unlock()
			// Failures are recorded in the result, never propagated: an
			// errgroup error would cancel sibling sends.
			return nil
		})
	}
	_ = g.Wait()
}

// dispatchFallback attempts channels strictly in declared order and stops at
// the first successful send.
func (d *Dispatcher) dispatchFallback(ctx context.Context, event domain.Event, bundle *domain.TemplateBundle,
	renderCtx map[string]any, locale string, channels []domain.Channel, outcome *DispatchOutcome) {

	for _, ch := range channels {
		result := d.attemptChannel(ctx, event, ch, bundle, renderCtx, locale)
		outcome.Channels[ch] = result
		if result.Outcome == OutcomeSent || result.Outcome == OutcomeSkippedAlreadySent {
			return
		}
	}
}

func (d *Dispatcher) attemptChannel(ctx context.Context, event domain.Event, ch domain.Channel,
	bundle *domain.TemplateBundle, renderCtx map[string]any, locale string) ChannelResult {

	logger := d.logger.With("event_id", event.EventID, "channel", string(ch))

	if !bundle.ChannelEnabled(ch) {
		channelAttemptsCounter.WithLabelValues(string(ch), string(OutcomeSkippedDisabled)).Inc()
		return ChannelResult{Outcome: OutcomeSkippedDisabled}
	}

	destination := resolveDestination(event, ch)
	if destination == "" {
		logger.InfoContext(ctx, "No destination for channel, skipping")
		channelAttemptsCounter.WithLabelValues(string(ch), string(OutcomeSkippedMissing)).Inc()
		return ChannelResult{Outcome: OutcomeSkippedMissing}
	}

	msg, ok := buildMessage(event, ch, bundle, renderCtx, locale)
	if !ok {
		logger.InfoContext(ctx, "Required template content missing after render, skipping")
		channelAttemptsCounter.WithLabelValues(string(ch), string(OutcomeSkippedMissing)).Inc()
		return ChannelResult{Outcome: OutcomeSkippedMissing}
	}
	msg.Destination = destination

	record, alreadyHandled, err := d.ledger.Enqueue(ctx, event, ch, destination)
	if err != nil {
		// Without the idempotency record no send is safe. Logged distinctly
		// from provider failures.
		logger.ErrorContext(ctx, "Ledger enqueue failed, aborting channel attempt", "error", err)
		channelAttemptsCounter.WithLabelValues(string(ch), string(OutcomeLedgerError)).Inc()
		return ChannelResult{Outcome: OutcomeLedgerError, Error: err.Error()}
	}
	if alreadyHandled {
		channelAttemptsCounter.WithLabelValues(string(ch), string(OutcomeSkippedAlreadySent)).Inc()
		return ChannelResult{Outcome: OutcomeSkippedAlreadySent, DeliveryKey: record.Key}
	}
	msg.DeliveryKey = record.Key

	adapter, ok := d.providers[ch]
	if !ok {
		errMsg := fmt.Sprintf("no provider configured for channel %s", ch)
		logger.ErrorContext(ctx, "Channel has no provider adapter")
		if markErr := d.ledger.MarkFailed(ctx, record.Key, errMsg); markErr != nil {
			logger.ErrorContext(ctx, "Failed to record provider-missing failure", "error", markErr)
		}
		channelAttemptsCounter.WithLabelValues(string(ch), string(OutcomeFailed)).Inc()
		return ChannelResult{Outcome: OutcomeFailed, DeliveryKey: record.Key, Error: errMsg}
	}

	providerCtx, cancel := context.WithTimeout(ctx, d.providerTimeout)
	defer cancel()
	sendStart := time.Now()
	result, sendErr := adapter.Send(providerCtx, msg)
	providerRequestDurationHist.WithLabelValues(adapter.Name()).Observe(time.Since(sendStart).Seconds())

	if sendErr != nil {
		logger.WarnContext(ctx, "Provider send failed",
			"provider", adapter.Name(), "error", sendErr, "delivery_key", record.Key)
		if markErr := d.ledger.MarkFailed(ctx, record.Key, sendErr.Error()); markErr != nil {
			logger.ErrorContext(ctx, "Failed to record send failure on ledger", "error", markErr)
		}
		channelAttemptsCounter.WithLabelValues(string(ch), string(OutcomeFailed)).Inc()
		return ChannelResult{Outcome: OutcomeFailed, DeliveryKey: record.Key, Error: sendErr.Error()}
	}

	if err := d.ledger.MarkSent(ctx, record.Key, adapter.Name(), result.ProviderMessageID); err != nil {
		// The provider accepted the message; losing the status update is an
		// audit gap, not a reason to re-send.
		logger.ErrorContext(ctx, "Failed to record successful send on ledger", "error", err)
	}
	channelAttemptsCounter.WithLabelValues(string(ch), string(OutcomeSent)).Inc()
	return ChannelResult{Outcome: OutcomeSent, DeliveryKey: record.Key}
}

// resolveLocale prefers the event's explicit hint, then the embedded user
// preference, then the default.
func (d *Dispatcher) resolveLocale(event domain.Event) string {
	if event.Locale != "" {
		return d.localeResolver.Resolve(event.Locale)
	}
	for _, path := range []string{"user.preferredLanguage", "user.locale"} {
		if value, ok := event.ContextValue(path); ok {
			if s, isString := value.(string); isString && s != "" {
				return d.localeResolver.Resolve(s)
			}
		}
	}
	return d.localeResolver.Default()
}

// buildRenderContext merges the event context with the resolved locale
// without mutating the event.
func buildRenderContext(event domain.Event, locale string) map[string]any {
	ctx := make(map[string]any, len(event.Context)+1)
	for k, v := range event.Context {
		ctx[k] = v
	}
	ctx["locale"] = locale
	return ctx
}

// resolveDestination picks the explicit event override first, then the
// context-derived default for the channel.
func resolveDestination(event domain.Event, ch domain.Channel) string {
	contextString := func(paths ...string) string {
		for _, p := range paths {
			if v, ok := event.ContextValue(p); ok {
				if s, isString := v.(string); isString && s != "" {
					return s
				}
			}
		}
		return ""
	}

	switch ch {
	case domain.ChannelEmail:
		if event.To.Email != "" {
			return event.To.Email
		}
		return contextString("user.email")
	case domain.ChannelSMS, domain.ChannelWhatsApp:
		if event.To.Phone != "" {
			return event.To.Phone
		}
		return contextString("user.phone", "user.phoneNumber")
	case domain.ChannelPush:
		if event.To.PushToken != "" {
			return event.To.PushToken
		}
		return contextString("user.fcmToken", "user.pushToken")
	case domain.ChannelInApp:
		if event.To.UID != "" {
			return event.To.UID
		}
		if event.UID != "" {
			return event.UID
		}
		return contextString("user.uid", "user.id")
	default:
		return ""
	}
}

// buildMessage renders the channel's template fields. The second return is
// false when required content is missing after rendering.
func buildMessage(event domain.Event, ch domain.Channel, bundle *domain.TemplateBundle,
	renderCtx map[string]any, locale string) (provider.Message, bool) {

	msg := provider.Message{EventID: event.EventID, UID: event.UID}

	switch ch {
	case domain.ChannelEmail:
		t := bundle.Email
		msg.Subject = template.Render(t.Subject, renderCtx, locale)
		msg.HTMLBody = template.Render(t.HTML, renderCtx, locale)
		msg.TextBody = template.Render(t.Text, renderCtx, locale)
		if msg.Subject == "" || (msg.HTMLBody == "" && msg.TextBody == "") {
			return msg, false
		}
	case domain.ChannelSMS:
		t := bundle.SMS
		msg.Body = template.Render(t.Text, renderCtx, locale)
		if msg.Body == "" {
			return msg, false
		}
	case domain.ChannelWhatsApp:
		t := bundle.WhatsApp
		if t.TemplateName == "" {
			return msg, false
		}
		msg.TemplateName = t.TemplateName
		msg.TemplateParams = make([]string, len(t.Params))
		for i, p := range t.Params {
			msg.TemplateParams[i] = template.Render(p, renderCtx, locale)
		}
	case domain.ChannelPush:
		t := bundle.Push
		msg.Title = template.Render(t.Title, renderCtx, locale)
		msg.Body = template.Render(t.Body, renderCtx, locale)
		msg.Deeplink = template.Render(t.Deeplink, renderCtx, locale)
		if msg.Title == "" || msg.Body == "" {
			return msg, false
		}
	case domain.ChannelInApp:
		t := bundle.InApp
		msg.Title = template.Render(t.Title, renderCtx, locale)
		msg.Body = template.Render(t.Body, renderCtx, locale)
		if msg.Title == "" || msg.Body == "" {
			return msg, false
		}
	default:
		return msg, false
	}
	return msg, true
}

func summarize(outcome *DispatchOutcome) map[string]string {
	out := make(map[string]string, len(outcome.Channels))
	for ch, res := range outcome.Channels {
		out[string(ch)] = string(res.Outcome)
	}
	return out
}
