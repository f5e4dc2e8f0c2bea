package fx

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

type rateSource interface {
	GetRate(ctx context.Context) (decimal.Decimal, error)
}

// Quote prices a crypto amount in the local payout currency.
type Quote struct {
	Amount        decimal.Decimal
	Crypto        string
	Rate          decimal.Decimal
	LocalAmount   decimal.Decimal
	LocalCurrency string
}

type Quoter struct {
	rates         rateSource
	localCurrency string
}

func NewQuoter(rates rateSource, localCurrency string) *Quoter {
	return &Quoter{rates: rates, localCurrency: strings.ToUpper(localCurrency)}
}

func (q *Quoter) Quote(ctx context.Context, amount decimal.Decimal, crypto string) (*Quote, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Quote: %w", domain.ErrInvalidAmount)
	}

	rate, err := q.rates.GetRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("Quote: %w", err)
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("Quote: rate %s: %w", rate, domain.ErrInvalidRate)
	}

	return &Quote{
		Amount:        amount,
		Crypto:        strings.ToUpper(crypto),
		Rate:          rate,
		LocalAmount:   amount.Mul(rate).Round(2),
		LocalCurrency: q.localCurrency,
	}, nil
}

// Symbol is the display prefix for the local currency.
func (q *Quote) Symbol() string {
	switch q.LocalCurrency {
	case "NGN":
		return "₦"
	case "USD":
		return "$"
	default:
		return q.LocalCurrency + " "
	}
}
