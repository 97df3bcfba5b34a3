package blockcypher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tipvault/config"
	"tipvault/internal/core/domain"
	"tipvault/pkg/apperror"
	"tipvault/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(config.CustodyConfig{
		BaseURL:        srv.URL,
		Token:          "test-token",
		Coin:           "ltc",
		Network:        "main",
		RequestTimeout: 2 * time.Second,
	}, logger.New("test", "disabled", false))
	return client, srv
}

func TestAllocateAddress(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotPath, gotToken string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotToken = r.URL.Query().Get("token")
			assert.Equal(t, http.MethodPost, r.Method)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"address":"LTC1addr","private":"xx","public":"yy"}`))
		}))

		addr, err := client.AllocateAddress(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "LTC1addr", addr)
		assert.Equal(t, "/v1/ltc/main/addrs", gotPath)
		assert.Equal(t, "test-token", gotToken)
	})

	t.Run("EmptyAddress", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		}))

		_, err := client.AllocateAddress(context.Background())

		assert.Equal(t, "PRV_003", apperror.Code(err))
	})

	t.Run("ProviderError", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
		}))

		_, err := client.AllocateAddress(context.Background())

		require.Error(t, err)
		assert.Equal(t, "PRV_003", apperror.Code(err))
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})

	t.Run("ConnectionRefused", func(t *testing.T) {
		client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := client.AllocateAddress(context.Background())

		assert.Equal(t, "PRV_001", apperror.Code(err))
	})
}

func TestConfirmedBalance(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotPath string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			assert.Equal(t, http.MethodGet, r.Method)
			w.Write([]byte(`{"address":"LTC1addr","balance":150000000,"unconfirmed_balance":9999}`))
		}))

		balance, err := client.ConfirmedBalance(context.Background(), "LTC1addr")

		require.NoError(t, err)
		assert.Equal(t, domain.Amount(150000000), balance)
		assert.Equal(t, "/v1/ltc/main/addrs/LTC1addr/balance", gotPath)
	})

	t.Run("ZeroBalance", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"balance":0}`))
		}))

		balance, err := client.ConfirmedBalance(context.Background(), "LTC1addr")

		require.NoError(t, err)
		assert.Equal(t, domain.Amount(0), balance)
	})

	t.Run("Timeout", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.ConfirmedBalance(ctx, "LTC1addr")

		assert.Equal(t, "PRV_002", apperror.Code(err))
	})
}

func TestSubmitPayment(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/ltc/main/txs/micro", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"hash":"txhash123"}`))
		}))

		result, err := client.SubmitPayment(context.Background(), "LTCdest", 50000000)

		require.NoError(t, err)
		assert.True(t, result.Accepted)
		assert.Equal(t, "txhash123", result.ProviderRef)
	})

	t.Run("Rejected", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"value too low for a microtransaction"}`))
		}))

		result, err := client.SubmitPayment(context.Background(), "LTCdest", 1)

		require.NoError(t, err)
		assert.False(t, result.Accepted)
		assert.Contains(t, result.Message, "value too low")
	})

	t.Run("Timeout", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.SubmitPayment(ctx, "LTCdest", 50000000)

		assert.Equal(t, "PRV_002", apperror.Code(err))
	})
}
