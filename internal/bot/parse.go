package bot

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

var (
	errBankFormat    = errors.New("bank details must be \"Bank Name, Account Number\"")
	errAccountNumber = errors.New("account number must be at least 10 digits")
)

const minAccountNumberLen = 10

var greetings = []string{"hi", "hello", "start"}

func isGreeting(word string) bool {
	for _, g := range greetings {
		if strings.Contains(word, g) {
			return true
		}
	}
	return false
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return amount, nil
}

func parseBankDetails(text string) (bankName, accountNumber string, err error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return "", "", errBankFormat
	}

	bankName = strings.TrimSpace(parts[0])
	accountNumber = strings.TrimSpace(parts[1])
	if bankName == "" {
		return "", "", errBankFormat
	}
	if len(accountNumber) < minAccountNumberLen || !isDigits(accountNumber) {
		return "", "", errAccountNumber
	}
	return bankName, accountNumber, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// keyword normalizes a reply for the yes/no/confirm/cancel states.
func keyword(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// backendPhone is the form the backend keys users by: no leading "+".
func backendPhone(phone string) string {
	return strings.TrimPrefix(phone, "+")
}
