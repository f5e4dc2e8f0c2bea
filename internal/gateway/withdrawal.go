package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

type WithdrawalRequest struct {
	Phone         string
	Amount        decimal.Decimal
	TokenSymbol   string
	BankAccountID string
	Currency      string
}

type offrampPayload struct {
	Phone         string  `json:"phone"`
	Amount        float64 `json:"amount"`
	TokenSymbol   string  `json:"token_symbol"`
	BankAccountID string  `json:"bank_account_id"`
	Currency      string  `json:"currency"`
	OrderType     string  `json:"order_type"`
	PaymentMethod string  `json:"payment_method"`
}

type offrampResponse struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	Reference string  `json:"reference"`
	Error     *string `json:"error"`
	Data      *struct {
		AccountName   string          `json:"account_name"`
		AccountNumber string          `json:"account_number"`
		BankName      string          `json:"bank_name"`
		BankCode      string          `json:"bank_code"`
		Amount        decimal.Decimal `json:"amount"`
		Currency      string          `json:"currency"`
		CryptoTxHash  string          `json:"crypto_tx_hash"`
	} `json:"data"`
}

// InitiateWithdrawal returns *domain.RejectedError when the backend answers
// with success=false.
func (c *Client) InitiateWithdrawal(ctx context.Context, req WithdrawalRequest) (domain.WithdrawalReceipt, error) {
	payload := offrampPayload{
		Phone:         req.Phone,
		Amount:        req.Amount.InexactFloat64(),
		TokenSymbol:   req.TokenSymbol,
		BankAccountID: req.BankAccountID,
		Currency:      req.Currency,
		OrderType:     "withdraw",
		PaymentMethod: "bank_transfer",
	}

	var resp offrampResponse
	if err := c.do(ctx, "InitiateWithdrawal", http.MethodPost, c.endpoints.InitiateOfframp, nil, payload, &resp); err != nil {
		return domain.WithdrawalReceipt{}, err
	}

	if !resp.Success {
		reason := "Offramp initialization failed due to unknown error."
		if resp.Error != nil && *resp.Error != "" {
			reason = *resp.Error
		}
		return domain.WithdrawalReceipt{}, &domain.RejectedError{Op: "InitiateWithdrawal", Reason: reason}
	}
	if resp.Data == nil {
		return domain.WithdrawalReceipt{}, fmt.Errorf("InitiateWithdrawal: missing disbursement details for reference %q", resp.Reference)
	}

	return domain.WithdrawalReceipt{
		Reference: resp.Reference,
		Message:   resp.Message,
		Disbursement: domain.Disbursement{
			AccountName:   resp.Data.AccountName,
			AccountNumber: resp.Data.AccountNumber,
			BankName:      resp.Data.BankName,
			BankCode:      resp.Data.BankCode,
			Amount:        resp.Data.Amount,
			Currency:      resp.Data.Currency,
			CryptoTxHash:  resp.Data.CryptoTxHash,
		},
	}, nil
}

type paymentPayload struct {
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
	Phone     string `json:"phone"`
}

func (c *Client) TriggerPayment(ctx context.Context, token string, amount decimal.Decimal, reference, phone string) error {
	payload := paymentPayload{
		Token:     token,
		Amount:    amount.String(),
		Reference: reference,
		Phone:     phone,
	}
	return c.do(ctx, "TriggerPayment", http.MethodPost, c.endpoints.Payment, nil, payload, nil)
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		TransactionID string           `json:"transaction_id"`
		Reference     string           `json:"reference"`
		Status        string           `json:"status"`
		Amount        *decimal.Decimal `json:"amount"`
		Currency      *string          `json:"currency"`
		LastUpdated   time.Time        `json:"last_updated"`
	} `json:"data"`
}

// TransactionStatus reports domain.ErrNotFound when the backend has no
// status for the reference yet.
func (c *Client) TransactionStatus(ctx context.Context, reference, phone string) (domain.TransactionStatus, error) {
	endpoint := strings.TrimRight(c.endpoints.TransactionStatus, "/") +
		"/transactions/" + url.PathEscape(reference) + "/status"

	var resp statusResponse
	if err := c.do(ctx, "TransactionStatus", http.MethodGet, endpoint, url.Values{"phone": {phone}}, nil, &resp); err != nil {
		return domain.TransactionStatus{}, err
	}
	if !resp.Success || resp.Data == nil {
		return domain.TransactionStatus{}, fmt.Errorf("TransactionStatus: %s: %w", resp.Message, domain.ErrNotFound)
	}

	st := domain.TransactionStatus{
		TransactionID: resp.Data.TransactionID,
		Reference:     resp.Data.Reference,
		Status:        resp.Data.Status,
		Amount:        resp.Data.Amount,
		LastUpdated:   resp.Data.LastUpdated,
	}
	if resp.Data.Currency != nil {
		st.Currency = *resp.Data.Currency
	}
	return st, nil
}
