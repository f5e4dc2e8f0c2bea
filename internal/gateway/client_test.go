package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

const testAPIKey = "test-api-key"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := srv.URL
	return NewClient(Endpoints{
		CreateAccount:     base + "/accounts",
		CreateController:  base + "/controllers",
		Address:           base + "/address",
		Balance:           base + "/balance",
		Rate:              base + "/rate",
		VerifyBank:        base + "/banks/verify",
		ListBanks:         base + "/banks",
		SaveBank:          base + "/banks/save",
		InitiateOfframp:   base + "/offramp",
		Payment:           base + "/payments",
		TransactionStatus: base,
	}, testAPIKey, 5*time.Second)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClient_SendsServiceHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testAPIKey, r.Header.Get("x-api-key"))
		assert.Equal(t, "whatsapp-bot", r.Header.Get("x-service"))
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{"usd_ngn_rate": 1550.5}})
	})

	rate, err := c.GetRate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("1550.5")))
}

func TestClient_ProvisionController(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body provisionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada", body.Username)
		assert.Equal(t, "whatsapp", body.ServiceType)
		assert.Equal(t, []string{"user"}, body.UserPermission)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": "true",
			"data":    map[string]any{"controller_address": "0xfeed", "username": "ada"},
		})
	})

	addr, err := c.ProvisionController(context.Background(), "ada", "2348012345678")
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", addr)
}

func TestClient_GetAddress(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		want     string
		notFound bool
		wantErr  bool
	}{
		{
			name:   "address present",
			status: http.StatusOK,
			body:   map[string]any{"data": map[string]any{"controller_address": "0xabc"}},
			want:   "0xabc",
		},
		{
			name:     "404",
			status:   http.StatusNotFound,
			body:     map[string]any{},
			notFound: true,
		},
		{
			name:     "missing address",
			status:   http.StatusOK,
			body:     map[string]any{"data": map[string]any{}},
			notFound: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    map[string]any{},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "2348012345678", r.URL.Query().Get("phone"))
				writeJSON(t, w, tc.status, tc.body)
			})

			got, err := c.GetAddress(context.Background(), "2348012345678")
			switch {
			case tc.notFound:
				assert.True(t, errors.Is(err, domain.ErrNotFound))
			case tc.wantErr:
				require.Error(t, err)
				assert.True(t, IsStatus(err, http.StatusInternalServerError))
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestClient_GetBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xtoken", r.URL.Query().Get("token"))
		assert.Equal(t, "0xwallet", r.URL.Query().Get("user_address"))
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{"balance": "12.345", "token": "0xtoken"}})
	})

	bal, err := c.GetBalance(context.Background(), "2348012345678", "0xtoken", "0xwallet")
	require.NoError(t, err)
	assert.True(t, bal.Amount.Equal(decimal.RequireFromString("12.345")))
	assert.Equal(t, "0xtoken", bal.Token)
}

func TestClient_GetBalanceMissingIsZero(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{}})
	})

	bal, err := c.GetBalance(context.Background(), "2348012345678", "0xtoken", "0xwallet")
	require.NoError(t, err)
	assert.True(t, bal.Amount.IsZero())
}

func TestClient_ListSavedBanks(t *testing.T) {
	t.Run("keeps order", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"status": "ok",
				"data": map[string]any{"banks": []map[string]any{
					{"bank_details_id": "b1", "bank_name": "Opay", "bank_account_number": "0123456789", "account_name": "ADA L"},
					{"bank_details_id": "b2", "bank_name": "GTBank", "bank_account_number": "9876543210", "account_name": "ADA L"},
				}},
			})
		})

		banks, err := c.ListSavedBanks(context.Background(), "2348012345678")
		require.NoError(t, err)
		require.Len(t, banks, 2)
		assert.Equal(t, "b1", banks[0].ID)
		assert.Equal(t, "0123456789", banks[0].AccountNumber)
	})

	t.Run("404 is empty", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		banks, err := c.ListSavedBanks(context.Background(), "2348012345678")
		require.NoError(t, err)
		assert.Empty(t, banks)
	})
}

func TestClient_VerifyBank(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Opay", r.URL.Query().Get("bank_name"))
		assert.Equal(t, "01234567890", r.URL.Query().Get("account_number"))
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{
			"bank_name": "Opay", "account_name": "ADA LOVELACE", "account_number": "01234567890", "bank_code": "999992",
		}})
	})

	v, err := c.VerifyBank(context.Background(), "2348012345678", "Opay", "01234567890")
	require.NoError(t, err)
	assert.Equal(t, domain.BankVerification{
		BankName: "Opay", AccountName: "ADA LOVELACE", AccountNumber: "01234567890", BankCode: "999992",
	}, v)
}

func TestClient_InitiateWithdrawal(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body offrampPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 10.0, body.Amount)
			assert.Equal(t, "USDT", body.TokenSymbol)
			assert.Equal(t, "b1", body.BankAccountID)
			assert.Equal(t, "NGN", body.Currency)
			assert.Equal(t, "withdraw", body.OrderType)
			assert.Equal(t, "bank_transfer", body.PaymentMethod)
			writeJSON(t, w, http.StatusOK, map[string]any{
				"success":   true,
				"message":   "ok",
				"reference": "ref-1",
				"data": map[string]any{
					"account_name": "ADA L", "account_number": "0123456789", "bank_name": "Opay",
					"bank_code": "999992", "amount": 15500.0, "currency": "NGN", "crypto_tx_hash": "0x1",
				},
			})
		})

		receipt, err := c.InitiateWithdrawal(context.Background(), WithdrawalRequest{
			Phone: "2348012345678", Amount: decimal.NewFromInt(10), TokenSymbol: "USDT", BankAccountID: "b1", Currency: "NGN",
		})
		require.NoError(t, err)
		assert.Equal(t, "ref-1", receipt.Reference)
		assert.Equal(t, "Opay", receipt.Disbursement.BankName)
		assert.True(t, receipt.Disbursement.Amount.Equal(decimal.NewFromInt(15500)))
	})

	t.Run("business rejection", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"success": false, "reference": "", "message": "", "error": "Insufficient liquidity",
			})
		})

		_, err := c.InitiateWithdrawal(context.Background(), WithdrawalRequest{Amount: decimal.NewFromInt(1)})
		var rejected *domain.RejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, "Insufficient liquidity", rejected.Reason)
	})
}

func TestClient_TransactionStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/ref-1/status", r.URL.Path)
		assert.Equal(t, "2348012345678", r.URL.Query().Get("phone"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"message": "ok",
			"data": map[string]any{
				"transaction_id": "tx-1",
				"reference":      "ref-1",
				"status":         "completed",
				"amount":         15500,
				"currency":       "NGN",
				"last_updated":   "2026-01-02T03:04:05Z",
			},
		})
	})

	st, err := c.TransactionStatus(context.Background(), "ref-1", "2348012345678")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, st.Outcome())
	require.NotNil(t, st.Amount)
	assert.True(t, st.Amount.Equal(decimal.NewFromInt(15500)))
	assert.Equal(t, "NGN", st.Currency)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), st.LastUpdated.UTC())
}
