package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cleanpress/laundry-pos/internal/models"
	apperrors "github.com/cleanpress/laundry-pos/pkg/errors"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger("error")
}

func gatewaySettings() *SettingsStore {
	return NewSettingsStore(models.NotificationSettings{
		AccountSid: "AC123",
		AuthToken:  "secret",
		FromNumber: "+14155550100",
		Enabled:    true,
	})
}

func TestTwilioGateway_Send(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody string
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()

		_ = r.ParseForm()
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotBody = r.PostFormValue("Body")

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	g := NewTwilioGateway(gatewaySettings(), testLogger())
	g.SetBaseURL(srv.URL)

	err := g.Send(context.Background(), "0501234567", "مرحباً")
	require.NoError(t, err)

	require.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	require.Equal(t, "AC123", gotUser)
	require.Equal(t, "secret", gotPass)
	require.Equal(t, "whatsapp:+966501234567", gotTo)
	require.Equal(t, "whatsapp:+14155550100", gotFrom)
	require.Equal(t, "مرحباً", gotBody)
}

func TestTwilioGateway_RejectedMessageIsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewTwilioGateway(gatewaySettings(), testLogger())
	g.SetBaseURL(srv.URL)

	err := g.Send(context.Background(), "0501234567", "مرحباً")
	require.ErrorIs(t, err, apperrors.ErrDeliveryFailed)
}

func TestTwilioGateway_NotConfigured(t *testing.T) {
	settings := NewSettingsStore(models.NotificationSettings{Enabled: false})
	g := NewTwilioGateway(settings, testLogger())

	err := g.Send(context.Background(), "0501234567", "مرحباً")
	require.ErrorIs(t, err, apperrors.ErrDeliveryFailed)
}

func TestTwilioGateway_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewTwilioGateway(gatewaySettings(), testLogger())
	g.SetBaseURL(srv.URL)

	for i := 0; i < 5; i++ {
		err := g.Send(context.Background(), "0501234567", "مرحباً")
		require.Error(t, err)
	}

	metrics := g.Metrics()
	require.Equal(t, "open", metrics["state"])
}

func TestTwilioGateway_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	g := NewTwilioGateway(gatewaySettings(), testLogger())
	g.SetBaseURL(srv.URL)

	// Drain the burst allowance
	for i := 0; i < 5; i++ {
		require.NoError(t, g.Send(context.Background(), "0501234567", "مرحباً"))
	}

	err := g.Send(context.Background(), "0501234567", "مرحباً")
	require.ErrorIs(t, err, apperrors.ErrRateLimited)
}

type failingComposer struct{}

func (failingComposer) Compose(context.Context, *models.Order, models.EventKind) (string, error) {
	return "", apperrors.NewTemporaryError("composer down")
}

func TestFailoverComposer_FallsBackOnPrimaryFailure(t *testing.T) {
	composer := NewFailoverComposer(failingComposer{}, testLogger())
	order := sampleOrder()

	text, err := composer.Compose(context.Background(), order, models.EventReceived)
	require.NoError(t, err)
	require.Contains(t, text, order.CustomerName)
}
