package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

type provisionRequest struct {
	Username       string   `json:"username"`
	ServiceType    string   `json:"service_type"`
	Phone          string   `json:"phone"`
	UserPermission []string `json:"user_permission,omitempty"`
}

type controllerResponse struct {
	Success string `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ControllerAddress string `json:"controller_address"`
		Username          string `json:"username"`
		SessionID         string `json:"session_id"`
	} `json:"data"`
}

func (c *Client) ProvisionAccount(ctx context.Context, username, phone string) error {
	req := provisionRequest{Username: username, ServiceType: "whatsapp", Phone: phone}
	if err := c.do(ctx, "ProvisionAccount", http.MethodPost, c.endpoints.CreateAccount, nil, req, nil); err != nil {
		return err
	}
	return nil
}

func (c *Client) ProvisionController(ctx context.Context, username, phone string) (string, error) {
	req := provisionRequest{
		Username:       username,
		ServiceType:    "whatsapp",
		Phone:          phone,
		UserPermission: []string{"user"},
	}

	var resp controllerResponse
	if err := c.do(ctx, "ProvisionController", http.MethodPost, c.endpoints.CreateController, nil, req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ControllerAddress == "" {
		return "", fmt.Errorf("ProvisionController: empty controller address")
	}
	return resp.Data.ControllerAddress, nil
}

type addressResponse struct {
	Data struct {
		ControllerAddress string `json:"controller_address"`
	} `json:"data"`
}

func (c *Client) GetAddress(ctx context.Context, phone string) (string, error) {
	var resp addressResponse
	err := c.do(ctx, "GetAddress", http.MethodGet, c.endpoints.Address, url.Values{"phone": {phone}}, nil, &resp)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return "", fmt.Errorf("GetAddress: %w", domain.ErrNotFound)
		}
		return "", err
	}
	if resp.Data.ControllerAddress == "" {
		return "", fmt.Errorf("GetAddress: no address: %w", domain.ErrNotFound)
	}
	return resp.Data.ControllerAddress, nil
}

type balanceResponse struct {
	Data *struct {
		Balance *string `json:"balance"`
		Token   string  `json:"token"`
	} `json:"data"`
}

// GetBalance returns a zero balance when the backend reports none.
func (c *Client) GetBalance(ctx context.Context, phone, token, address string) (domain.Balance, error) {
	query := url.Values{
		"phone":        {phone},
		"token":        {token},
		"user_address": {address},
	}

	var resp balanceResponse
	err := c.do(ctx, "GetBalance", http.MethodGet, c.endpoints.Balance, query, nil, &resp)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return domain.Balance{}, fmt.Errorf("GetBalance: %w", domain.ErrNotFound)
		}
		return domain.Balance{}, err
	}
	if resp.Data == nil || resp.Data.Balance == nil {
		return domain.Balance{Amount: decimal.Zero}, nil
	}

	amount, err := decimal.NewFromString(*resp.Data.Balance)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("GetBalance: parse balance %q: %w", *resp.Data.Balance, err)
	}
	return domain.Balance{Amount: amount, Token: resp.Data.Token}, nil
}

type rateResponse struct {
	Data struct {
		USDNGNRate *float64 `json:"usd_ngn_rate"`
	} `json:"data"`
}

func (c *Client) GetRate(ctx context.Context) (decimal.Decimal, error) {
	var resp rateResponse
	if err := c.do(ctx, "GetRate", http.MethodGet, c.endpoints.Rate, nil, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Data.USDNGNRate == nil {
		return decimal.Zero, fmt.Errorf("GetRate: missing usd_ngn_rate")
	}
	return decimal.NewFromFloat(*resp.Data.USDNGNRate), nil
}
