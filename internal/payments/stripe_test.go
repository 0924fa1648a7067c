package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeClientCreateIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "50000", r.PostForm.Get("amount"))
		assert.Equal(t, "inr", r.PostForm.Get("currency"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[]"))

		json.NewEncoder(w).Encode(Intent{
			ID:           "pi_123",
			ClientSecret: "pi_123_secret",
			Amount:       50000,
			Currency:     "inr",
			Status:       "requires_payment_method",
		})
	}))
	defer server.Close()

	client := NewStripeClient("sk_test_123", nil).WithBaseURL(server.URL)

	intent, err := client.CreateIntent(context.Background(), 50000, "inr")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
	assert.EqualValues(t, 50000, intent.Amount)
}

func TestStripeClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	}))
	defer server.Close()

	client := NewStripeClient("sk_test_123", nil).WithBaseURL(server.URL)

	_, err := client.CreateIntent(context.Background(), 50000, "inr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 402")
}

func TestStripeClientRequiresSecretKey(t *testing.T) {
	client := NewStripeClient("", nil)

	_, err := client.CreateIntent(context.Background(), 100, "inr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key not configured")
}

func TestStripeClientDryRun(t *testing.T) {
	client := NewStripeClient("", nil).WithDryRun(true)

	intent, err := client.CreateIntent(context.Background(), 50000, "inr")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(intent.ID, "pi_dryrun_"))
	assert.Equal(t, intent.ID+"_secret", intent.ClientSecret)
	assert.EqualValues(t, 50000, intent.Amount)
	assert.Equal(t, "requires_payment_method", intent.Status)
}
