package domain

import "fmt"

type UserState int

const (
	StateInitial UserState = iota
	StateAccountCreation
	StateBankDetailsEntry
	StateOfframpConfirmation
	StateBankDetailsConfirmation
	StateSavedBankConfirmation
)

var stateNames = map[UserState]string{
	StateInitial:                 "initial",
	StateAccountCreation:         "account_creation",
	StateBankDetailsEntry:        "bank_details_entry",
	StateOfframpConfirmation:     "offramp_confirmation",
	StateBankDetailsConfirmation: "bank_details_confirmation",
	StateSavedBankConfirmation:   "saved_bank_confirmation",
}

func (s UserState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

func (s UserState) IsValid() bool {
	_, ok := stateNames[s]
	return ok
}

// Returning to StateInitial is always allowed and is not listed here.
var transitions = map[UserState][]UserState{
	StateInitial:                 {StateAccountCreation, StateOfframpConfirmation},
	StateAccountCreation:         {},
	StateOfframpConfirmation:     {StateSavedBankConfirmation, StateBankDetailsEntry},
	StateBankDetailsEntry:        {StateBankDetailsConfirmation},
	StateBankDetailsConfirmation: {StateBankDetailsEntry},
	StateSavedBankConfirmation:   {},
}

func CanTransition(from, to UserState) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if to == StateInitial {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
