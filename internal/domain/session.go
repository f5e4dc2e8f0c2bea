package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type PendingWithdrawal struct {
	Amount   decimal.Decimal
	Currency string
}

type Session struct {
	Phone               string
	State               UserState
	AccountID           *string
	ControllerAddress   *string
	PendingWithdrawal   *PendingWithdrawal
	PendingBank         *SavedBank
	PendingVerification *BankVerification

	// Busy names the operation whose gateway calls are in flight for this
	// session. Empty when the session is idle.
	Busy string
}

func NewSession(phone string) *Session {
	return &Session{Phone: phone, State: StateInitial}
}

func (s *Session) Transition(to UserState) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("Transition %s -> %s: %w", s.State, to, ErrIllegalTransition)
	}
	s.State = to
	if to != StateBankDetailsConfirmation {
		s.PendingVerification = nil
	}
	return nil
}

// Clear ends the current withdrawal flow. Account identity survives.
func (s *Session) Clear() {
	s.State = StateInitial
	s.PendingWithdrawal = nil
	s.PendingBank = nil
	s.PendingVerification = nil
}

func (s *Session) Claim(op string) bool {
	if s.Busy != "" {
		return false
	}
	s.Busy = op
	return true
}

func (s *Session) Release() {
	s.Busy = ""
}

// Clone returns a deep copy safe to read outside the store lock.
func (s *Session) Clone() Session {
	c := *s
	if s.AccountID != nil {
		v := *s.AccountID
		c.AccountID = &v
	}
	if s.ControllerAddress != nil {
		v := *s.ControllerAddress
		c.ControllerAddress = &v
	}
	if s.PendingWithdrawal != nil {
		v := *s.PendingWithdrawal
		c.PendingWithdrawal = &v
	}
	if s.PendingBank != nil {
		v := *s.PendingBank
		c.PendingBank = &v
	}
	if s.PendingVerification != nil {
		v := *s.PendingVerification
		c.PendingVerification = &v
	}
	return c
}
