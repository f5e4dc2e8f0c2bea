package domain

// SavedBank is a bank account persisted by the backend and addressable by ID.
// Only a SavedBank can fund a withdrawal.
type SavedBank struct {
	ID            string
	BankName      string
	AccountNumber string
	AccountName   string
}

// BankVerification is a freshly resolved bank account that the user has not
// confirmed yet. It has no backend ID until it is saved.
type BankVerification struct {
	BankName      string
	AccountName   string
	AccountNumber string
	BankCode      string
}
