package auction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/internal/pkg/credentials"
	"github.com/leadaxle/leadaxle/internal/pkg/webhooksign"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func testBuyer() *models.Buyer {
	return &models.Buyer{ID: 1, Name: "Test Buyer", AuthType: models.AUTH_TYPE_NONE}
}

func TestBidClient_PingParsesBid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]interface{}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "90210", payload["zip_code"])

		w.Write([]byte(`{"bidAmount": 42.50, "accepted": true}`))
	}))
	defer srv.Close()

	client := NewBidClient()
	result := client.Ping(context.Background(), testBuyer(), srv.URL, time.Second, map[string]interface{}{"zip_code": "90210"})

	require.True(t, result.OK(), "unexpected failure: %s %v", result.FailCode, result.Err)
	require.NotNil(t, result.Bid)
	assert.Equal(t, 42.50, *result.Bid.BidAmount)
	assert.True(t, *result.Bid.Accepted)
	assert.Equal(t, 200, result.StatusCode)
	assert.Greater(t, result.ResponseTime, time.Duration(0))
}

func TestBidClient_PingRejectsMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "hello"},
		{"missing accepted", `{"bidAmount": 10}`},
		{"missing bidAmount", `{"accepted": true}`},
		{"empty object", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result := NewBidClient().Ping(context.Background(), testBuyer(), srv.URL, time.Second, nil)
			assert.False(t, result.OK())
			assert.Equal(t, FailInvalidResponse, result.FailCode)
			assert.Nil(t, result.Bid)
		})
	}
}

func TestBidClient_NonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := NewBidClient().Ping(context.Background(), testBuyer(), srv.URL, time.Second, nil)
	assert.False(t, result.OK())
	assert.Equal(t, FailHTTP, result.FailCode)
	assert.Equal(t, 503, result.StatusCode)
	// The raw body still reaches the ledger.
	assert.Contains(t, string(result.Body), "nope")
}

func TestBidClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	result := NewBidClient().Ping(context.Background(), testBuyer(), srv.URL, 20*time.Millisecond, nil)
	assert.False(t, result.OK())
	assert.Equal(t, FailTimeout, result.FailCode)
}

func TestBidClient_SendsAuthHeaders(t *testing.T) {
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", testEncryptionKey)

	creds, err := credentials.Encrypt(`{"header": "X-Partner-Key", "key": "s3cret"}`)
	require.NoError(t, err)

	buyer := testBuyer()
	buyer.AuthType = models.AUTH_TYPE_API_KEY
	buyer.AuthCredentials = creds

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Partner-Key")
		w.Write([]byte(`{"bidAmount": 1, "accepted": true}`))
	}))
	defer srv.Close()

	result := NewBidClient().Ping(context.Background(), buyer, srv.URL, time.Second, nil)
	require.True(t, result.OK())
	assert.Equal(t, "s3cret", got)
}

func TestBidClient_SignsWhenRequired(t *testing.T) {
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", testEncryptionKey)

	secret, err := credentials.Encrypt("signing-secret")
	require.NoError(t, err)

	buyer := testBuyer()
	buyer.RequiresSignature = true
	buyer.SigningSecret = secret

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ok := webhooksign.Verify(body,
			r.Header.Get("X-Signature"),
			r.Header.Get("X-Signature-Timestamp"),
			"signing-secret", webhooksign.DefaultReplayWindow)
		assert.True(t, ok, "delivered signature must verify against the shared secret")
		w.Write([]byte(`{"bidAmount": 1, "accepted": true}`))
	}))
	defer srv.Close()

	result := NewBidClient().Ping(context.Background(), buyer, srv.URL, time.Second, map[string]interface{}{"a": 1})
	require.True(t, result.OK(), "unexpected failure: %s %v", result.FailCode, result.Err)
}

func TestBidClient_PostReturnsRawResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status": "received"}`))
	}))
	defer srv.Close()

	result := NewBidClient().Post(context.Background(), testBuyer(), srv.URL, time.Second, map[string]interface{}{"full": true})
	require.True(t, result.OK())
	assert.Equal(t, 201, result.StatusCode)
	assert.Nil(t, result.Bid, "POST replies are not parsed as bids")
}
