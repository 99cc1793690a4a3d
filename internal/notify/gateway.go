package notify

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cleanpress/laundry-pos/pkg/circuitbreaker"
	"github.com/cleanpress/laundry-pos/pkg/errors"
	"github.com/cleanpress/laundry-pos/pkg/logger"
	"github.com/cleanpress/laundry-pos/pkg/ratelimit"
)

// Gateway delivers a text message to a phone number. Implementations
// report failure as an error; there is no partial success.
type Gateway interface {
	Send(ctx context.Context, rawPhone, body string) error
}

// TwilioGateway sends WhatsApp messages through the Twilio Messages API.
// A circuit breaker keeps a dead Twilio endpoint from being hammered on
// every scan, and a token bucket caps the outbound message rate.
type TwilioGateway struct {
	settings   SettingsSource
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	limiter    *ratelimit.TokenBucket
	logger     logger.Logger
}

// NewTwilioGateway creates a gateway reading credentials from the given
// settings source on every send, so runtime settings changes apply
// immediately
func NewTwilioGateway(settings SettingsSource, logger logger.Logger) *TwilioGateway {
	return &TwilioGateway{
		settings: settings,
		baseURL:  "https://api.twilio.com",
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     2 * time.Minute,
			HalfOpenMaxCalls: 1,
		}),
		// Twilio WhatsApp senders are throttled upstream; one message per
		// second with small bursts stays well inside the limit
		limiter: ratelimit.NewTokenBucket(5, 1),
		logger:  logger,
	}
}

// SetBaseURL overrides the Twilio endpoint; used in tests
func (g *TwilioGateway) SetBaseURL(baseURL string) {
	g.baseURL = baseURL
}

// Send delivers one message. Timeouts, transport errors, non-2xx responses,
// an open breaker and an empty rate bucket are all delivery failures; the
// caller decides whether to retry.
func (g *TwilioGateway) Send(ctx context.Context, rawPhone, body string) error {
	settings := g.settings.Current()

	if !settings.Configured() || settings.AuthToken == "" || settings.FromNumber == "" {
		g.logger.Warn("Messaging gateway is not configured or disabled")
		return errors.NewDeliveryError("messaging gateway is not configured or disabled")
	}

	if !g.limiter.Allow() {
		g.logger.Warn("Outbound message rate limit reached")
		return errors.NewAppError(errors.ErrRateLimited, "outbound message rate limit reached", http.StatusTooManyRequests, true)
	}

	if !g.breaker.Allow() {
		g.logger.Warn("Messaging gateway circuit is open, skipping send")
		return errors.NewDeliveryError("messaging gateway circuit is open")
	}

	toPhone := NormalizePhone(rawPhone)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.baseURL, settings.AccountSid)

	form := url.Values{}
	form.Set("To", "whatsapp:+"+toPhone)
	form.Set("From", "whatsapp:"+settings.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))

	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
	}

	req.SetBasicAuth(settings.AccountSid, settings.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)

	if err != nil {
		g.breaker.Failure()

		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			g.logger.Error("Message send timed out", "toPhone", toPhone)
			return errors.NewTimeoutError("message send timed out")
		}

		g.logger.Error("Failed to reach messaging gateway", "error", err, "toPhone", toPhone)
		return errors.NewDeliveryError(fmt.Sprintf("failed to reach messaging gateway: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		g.breaker.Failure()
		g.logger.Error("Messaging gateway rejected the message",
			"status", resp.StatusCode,
			"toPhone", toPhone)
		return errors.NewDeliveryError(fmt.Sprintf("messaging gateway returned status %d", resp.StatusCode))
	}

	g.breaker.Success()
	g.logger.Info("Message delivered", "toPhone", toPhone)
	return nil
}

// Metrics returns a snapshot of the gateway's breaker and rate bucket for
// the admin monitoring endpoint
func (g *TwilioGateway) Metrics() map[string]interface{} {
	metrics := g.breaker.GetMetrics()
	metrics["rate_tokens_available"] = g.limiter.Available()
	return metrics
}
