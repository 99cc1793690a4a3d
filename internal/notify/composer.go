package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"context"

	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/pkg/errors"
	"github.com/cleanpress/laundry-pos/pkg/logger"
	"github.com/cleanpress/laundry-pos/pkg/retry"
)

// Composer produces customer-facing notification text for an order event
type Composer interface {
	Compose(ctx context.Context, order *models.Order, kind models.EventKind) (string, error)
}

// HTTPComposer calls a remote text-generation service to produce a
// polished, localized message
type HTTPComposer struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	logger      logger.Logger
	retryConfig *retry.RetryConfig
}

type composeRequest struct {
	EventKind    string  `json:"event_kind"`
	CustomerName string  `json:"customer_name"`
	OrderNumber  string  `json:"order_number"`
	Total        float64 `json:"total"`
	Status       string  `json:"status"`
	Language     string  `json:"language"`
}

type composeResponse struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewHTTPComposer creates a composer client for the given service
func NewHTTPComposer(baseURL, apiKey string, logger logger.Logger) *HTTPComposer {
	return &HTTPComposer{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
		retryConfig: &retry.RetryConfig{
			MaxAttempts: 3,
			BackoffStrategy: &retry.ExponentialBackoff{
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				Multiplier:      1.5,
				JitterFactor:    0.2,
			},
			Logger: logger,
			RetryableErrors: []error{
				errors.ErrTimeout,
				errors.ErrTemporaryFailure,
				errors.ErrServiceUnavailable,
			},
		},
	}
}

// Compose requests message text from the remote service
func (c *HTTPComposer) Compose(ctx context.Context, order *models.Order, kind models.EventKind) (string, error) {
	url := fmt.Sprintf("%s/v1/compose", c.baseURL)

	var text string

	retryFunc := func() error {
		reqBody, err := json.Marshal(composeRequest{
			EventKind:    string(kind),
			CustomerName: order.CustomerName,
			OrderNumber:  order.OrderNumber,
			Total:        order.Total,
			Status:       string(order.Status),
			Language:     "ar",
		})

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to marshal request: %v", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
		}

		req.Header.Set("Content-Type", "application/json")

		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)

		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return errors.NewTimeoutError("compose request timed out")
			}
			return errors.NewTemporaryError(fmt.Sprintf("failed to send request: %v", err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to read response body: %v", err))
		}

		if resp.StatusCode >= 400 {
			if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout {
				return errors.NewTimeoutError("compose request timed out")
			}

			if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusInternalServerError {
				return errors.NewTemporaryError(fmt.Sprintf("composer service error: %d", resp.StatusCode))
			}

			return errors.NewAppError(
				errors.ErrInternal,
				fmt.Sprintf("composer service returned error: %d", resp.StatusCode),
				resp.StatusCode,
				false,
			)
		}

		var response composeResponse

		if err := json.Unmarshal(body, &response); err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to parse response: %v", err))
		}

		if response.Error != "" {
			return errors.NewTemporaryError(response.Error)
		}

		if response.Text == "" {
			return errors.NewTemporaryError("composer returned empty text")
		}

		text = response.Text
		return nil
	}

	err := retry.Retry(ctx, retryFunc, c.retryConfig)

	if err != nil {
		c.logger.Error("Failed to compose message after retries",
			"error", err,
			"orderID", order.ID,
			"eventKind", kind)
		return "", err
	}

	return text, nil
}

// FailoverComposer tries the remote composer and falls back to the static
// templates on any failure; Compose on this type never returns an error
type FailoverComposer struct {
	primary  Composer
	fallback *FallbackComposer
	logger   logger.Logger
}

// NewFailoverComposer wraps primary with the deterministic fallback.
// A nil primary means the remote service is not configured and every
// message comes from the templates.
func NewFailoverComposer(primary Composer, logger logger.Logger) *FailoverComposer {
	return &FailoverComposer{
		primary:  primary,
		fallback: NewFallbackComposer(),
		logger:   logger,
	}
}

// Compose fails open: composition problems are recovered locally and
// never surfaced to the caller
func (c *FailoverComposer) Compose(ctx context.Context, order *models.Order, kind models.EventKind) (string, error) {
	if c.primary != nil {
		text, err := c.primary.Compose(ctx, order, kind)

		if err == nil {
			return text, nil
		}

		c.logger.Warn("Remote composition failed, using fallback template",
			"error", err,
			"orderID", order.ID,
			"eventKind", kind)
	}

	return c.fallback.Compose(ctx, order, kind)
}
