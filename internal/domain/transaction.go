package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionOutcome string

const (
	OutcomePending   TransactionOutcome = "pending"
	OutcomeCompleted TransactionOutcome = "completed"
	OutcomeFailed    TransactionOutcome = "failed"
)

type TransactionStatus struct {
	TransactionID string
	Reference     string
	Status        string
	Amount        *decimal.Decimal
	Currency      string
	LastUpdated   time.Time
}

func (t TransactionStatus) Outcome() TransactionOutcome {
	switch strings.ToLower(strings.TrimSpace(t.Status)) {
	case "completed", "successful":
		return OutcomeCompleted
	case "failed", "cancelled":
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

type Disbursement struct {
	AccountName   string
	AccountNumber string
	BankName      string
	BankCode      string
	Amount        decimal.Decimal
	Currency      string
	CryptoTxHash  string
}

type WithdrawalReceipt struct {
	Reference    string
	Message      string
	Disbursement Disbursement
}

type Balance struct {
	Amount decimal.Decimal
	Token  string
}
