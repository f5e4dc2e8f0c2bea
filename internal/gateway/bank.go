package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

type verifyBankResponse struct {
	Data struct {
		BankName      string `json:"bank_name"`
		AccountName   string `json:"account_name"`
		AccountNumber string `json:"account_number"`
		BankCode      string `json:"bank_code"`
	} `json:"data"`
}

func (c *Client) VerifyBank(ctx context.Context, phone, bankName, accountNumber string) (domain.BankVerification, error) {
	query := url.Values{
		"phone":          {phone},
		"bank_name":      {bankName},
		"account_number": {accountNumber},
	}

	var resp verifyBankResponse
	err := c.do(ctx, "VerifyBank", http.MethodPost, c.endpoints.VerifyBank, query, nil, &resp)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return domain.BankVerification{}, fmt.Errorf("VerifyBank: %w", domain.ErrNotFound)
		}
		return domain.BankVerification{}, err
	}

	d := resp.Data
	if d.AccountName == "" || d.AccountNumber == "" || d.BankName == "" || d.BankCode == "" {
		return domain.BankVerification{}, fmt.Errorf("VerifyBank: incomplete verification data")
	}
	return domain.BankVerification{
		BankName:      d.BankName,
		AccountName:   d.AccountName,
		AccountNumber: d.AccountNumber,
		BankCode:      d.BankCode,
	}, nil
}

type bankListResponse struct {
	Status string `json:"status"`
	Data   struct {
		Banks []struct {
			ID            string `json:"bank_details_id"`
			BankName      string `json:"bank_name"`
			AccountNumber string `json:"bank_account_number"`
			AccountName   string `json:"account_name"`
		} `json:"banks"`
	} `json:"data"`
}

// ListSavedBanks keeps backend order. A 404 means the user has none.
func (c *Client) ListSavedBanks(ctx context.Context, phone string) ([]domain.SavedBank, error) {
	var resp bankListResponse
	err := c.do(ctx, "ListSavedBanks", http.MethodGet, c.endpoints.ListBanks, url.Values{"phone": {phone}}, nil, &resp)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}

	banks := make([]domain.SavedBank, 0, len(resp.Data.Banks))
	for _, b := range resp.Data.Banks {
		banks = append(banks, domain.SavedBank{
			ID:            b.ID,
			BankName:      b.BankName,
			AccountNumber: b.AccountNumber,
			AccountName:   b.AccountName,
		})
	}
	return banks, nil
}

type saveBankRequest struct {
	Phone         string `json:"phone"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
}

func (c *Client) SaveBank(ctx context.Context, phone string, v domain.BankVerification) error {
	req := saveBankRequest{
		Phone:         phone,
		AccountName:   v.AccountName,
		AccountNumber: v.AccountNumber,
		BankCode:      v.BankCode,
		BankName:      v.BankName,
	}
	return c.do(ctx, "SaveBank", http.MethodPost, c.endpoints.SaveBank, nil, req, nil)
}
