package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type account struct {
	username string
	address  string
	balance  decimal.Decimal
}

type bank struct {
	ID            string `json:"bank_details_id"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"bank_account_number"`
	AccountName   string `json:"account_name"`
}

type transaction struct {
	id        string
	reference string
	phone     string
	amount    decimal.Decimal
	paidAt    time.Time
	updatedAt time.Time
	status    string
}

// backend is an in-memory stand-in for the wallet and offramp service.
// Paid transactions settle once settleAfter has passed; account numbers
// ending in 0000 fail instead.
type backend struct {
	apiKey      string
	rate        decimal.Decimal
	settleAfter time.Duration
	now         func() time.Time

	mu       sync.Mutex
	accounts map[string]*account
	banks    map[string][]bank
	txs      map[string]*transaction
	txBank   map[string]bank
}

func newBackend(apiKey string, rate decimal.Decimal, settleAfter time.Duration) *backend {
	return &backend{
		apiKey:      apiKey,
		rate:        rate,
		settleAfter: settleAfter,
		now:         time.Now,
		accounts:    make(map[string]*account),
		banks:       make(map[string][]bank),
		txs:         make(map[string]*transaction),
		txBank:      make(map[string]bank),
	}
}

func (b *backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /accounts", b.createAccount)
	mux.HandleFunc("POST /controllers", b.createController)
	mux.HandleFunc("GET /address", b.address)
	mux.HandleFunc("GET /balance", b.balance)
	mux.HandleFunc("GET /rate", b.getRate)
	mux.HandleFunc("POST /banks/verify", b.verifyBank)
	mux.HandleFunc("GET /banks", b.listBanks)
	mux.HandleFunc("POST /banks", b.saveBank)
	mux.HandleFunc("POST /offramp", b.offramp)
	mux.HandleFunc("POST /payments", b.payment)
	mux.HandleFunc("GET /transactions/{reference}/status", b.transactionStatus)
	return b.requireKey(mux)
}

func (b *backend) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.apiKey != "" && r.URL.Path != "/health" && r.Header.Get("x-api-key") != b.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type provisionRequest struct {
	Username string `json:"username"`
	Phone    string `json:"phone"`
}

func (b *backend) createAccount(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and phone required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[req.Phone]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "account exists"})
		return
	}
	b.accounts[req.Phone] = &account{username: req.Username, balance: decimal.NewFromInt(100)}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (b *backend) createController(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[req.Phone]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	if acct.address == "" {
		acct.address = "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": "true",
		"message": "controller created",
		"data": map[string]string{
			"controller_address": acct.address,
			"username":           acct.username,
			"session_id":         uuid.NewString(),
		},
	})
}

func (b *backend) lookup(phone string) (*account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[phone]
	if !ok || acct.address == "" {
		return nil, false
	}
	copied := *acct
	return &copied, true
}

func (b *backend) address(w http.ResponseWriter, r *http.Request) {
	acct, ok := b.lookup(r.URL.Query().Get("phone"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no wallet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]string{"controller_address": acct.address},
	})
}

func (b *backend) balance(w http.ResponseWriter, r *http.Request) {
	acct, ok := b.lookup(r.URL.Query().Get("phone"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no wallet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]string{
			"balance": acct.balance.String(),
			"token":   r.URL.Query().Get("token"),
		},
	})
}

func (b *backend) getRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"usd_ngn_rate": b.rate.InexactFloat64()},
	})
}

func (b *backend) verifyBank(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	number := q.Get("account_number")
	if strings.HasPrefix(number, "9") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]string{
			"bank_name":      q.Get("bank_name"),
			"account_name":   "TEST ACCOUNT HOLDER",
			"account_number": number,
			"bank_code":      "999992",
		},
	})
}

func (b *backend) listBanks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	banks := append([]bank(nil), b.banks[r.URL.Query().Get("phone")]...)
	b.mu.Unlock()

	if len(banks) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no banks saved"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"banks": banks},
	})
}

type saveBankRequest struct {
	Phone         string `json:"phone"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
}

func (b *backend) saveBank(w http.ResponseWriter, r *http.Request) {
	var req saveBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.banks[req.Phone] = append([]bank{{
		ID:            uuid.NewString(),
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	}}, b.banks[req.Phone]...)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

type offrampRequest struct {
	Phone         string          `json:"phone"`
	Amount        decimal.Decimal `json:"amount"`
	TokenSymbol   string          `json:"token_symbol"`
	BankAccountID string          `json:"bank_account_id"`
	Currency      string          `json:"currency"`
}

func (b *backend) offramp(w http.ResponseWriter, r *http.Request) {
	var req offrampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	reject := func(reason string) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": reason})
	}
	acct, ok := b.accounts[req.Phone]
	if !ok {
		reject("Account not found.")
		return
	}
	if req.Amount.GreaterThan(acct.balance) {
		reject("Insufficient balance.")
		return
	}
	var target *bank
	for i := range b.banks[req.Phone] {
		if b.banks[req.Phone][i].ID == req.BankAccountID {
			target = &b.banks[req.Phone][i]
		}
	}
	if target == nil {
		reject("Bank account not found.")
		return
	}

	ref := "KP-" + strings.ToUpper(uuid.NewString()[:8])
	now := b.now().UTC()
	b.txs[ref] = &transaction{
		id:        uuid.NewString(),
		reference: ref,
		phone:     req.Phone,
		amount:    req.Amount.Mul(b.rate),
		status:    "pending",
		updatedAt: now,
	}
	b.txBank[ref] = *target

	slog.Info("offramp initiated", "reference", ref, "amount", req.Amount.String(), "token", req.TokenSymbol)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Offramp initiated",
		"reference": ref,
		"data": map[string]any{
			"account_name":   target.AccountName,
			"account_number": target.AccountNumber,
			"bank_name":      target.BankName,
			"bank_code":      "999992",
			"amount":         req.Amount.Mul(b.rate).StringFixed(2),
			"currency":       req.Currency,
			"crypto_tx_hash": "0x" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		},
	})
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Phone     string          `json:"phone"`
}

func (b *backend) payment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	tx, ok := b.txs[req.Reference]
	if !ok || tx.phone != req.Phone {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
		return
	}
	if !tx.paidAt.IsZero() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already paid"})
		return
	}
	tx.paidAt = b.now().UTC()
	if acct, ok := b.accounts[req.Phone]; ok {
		acct.balance = acct.balance.Sub(req.Amount)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *backend) transactionStatus(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("reference")

	b.mu.Lock()
	defer b.mu.Unlock()
	tx, ok := b.txs[ref]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": fmt.Sprintf("no transaction %s", ref)})
		return
	}
	b.settle(tx)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "ok",
		"data": map[string]any{
			"transaction_id": tx.id,
			"reference":      tx.reference,
			"status":         tx.status,
			"amount":         tx.amount.StringFixed(2),
			"currency":       "NGN",
			"last_updated":   tx.updatedAt.Format(time.RFC3339),
		},
	})
}

// settle moves a paid transaction to its terminal status. Caller holds mu.
func (b *backend) settle(tx *transaction) {
	if tx.status != "pending" || tx.paidAt.IsZero() {
		return
	}
	now := b.now().UTC()
	if now.Sub(tx.paidAt) < b.settleAfter {
		return
	}
	tx.status = "completed"
	if strings.HasSuffix(b.txBank[tx.reference].AccountNumber, "0000") {
		tx.status = "failed"
	}
	tx.updatedAt = now
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
