package bot

import (
	"context"
	"errors"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

func (d *Dispatcher) onOfframpConfirmation(s *domain.Session, text string) step {
	switch keyword(text) {
	case "confirm":
		return step{op: "list_banks", effect: d.loadSavedBank}
	case "cancel":
		s.Clear()
		return reply(msgWithdrawalCancelled)
	default:
		return reply(msgConfirmOrAbort)
	}
}

func (d *Dispatcher) loadSavedBank(ctx context.Context, snap domain.Session) outcome {
	banks, err := d.backend.ListSavedBanks(ctx, backendPhone(snap.Phone))
	if err != nil {
		logging.FromContext(ctx).Error("failed to list saved banks", "error", err)
		return outcome{replies: []string{msgBankLookupFailed}}
	}

	if len(banks) == 0 {
		return outcome{
			replies: []string{msgBankDetailsRequired},
			commit: func(s *domain.Session) error {
				return s.Transition(domain.StateBankDetailsEntry)
			},
		}
	}

	bank := banks[0]
	return outcome{
		replies: []string{savedBankMessage(bank)},
		commit: func(s *domain.Session) error {
			if err := s.Transition(domain.StateSavedBankConfirmation); err != nil {
				return err
			}
			s.PendingBank = &bank
			return nil
		},
	}
}

func (d *Dispatcher) onBankDetailsEntry(s *domain.Session, text string) step {
	if keyword(text) == "cancel" {
		s.Clear()
		return reply(msgWithdrawalCancelled)
	}

	bankName, accountNumber, err := parseBankDetails(text)
	switch {
	case errors.Is(err, errAccountNumber):
		return reply(msgInvalidAccountNumber)
	case err != nil:
		return reply(msgInvalidBankFormat)
	}

	return step{
		op: "verify_bank",
		effect: func(ctx context.Context, snap domain.Session) outcome {
			v, err := d.backend.VerifyBank(ctx, backendPhone(snap.Phone), bankName, accountNumber)
			if err != nil {
				reason := reasonVerifyFailed
				if errors.Is(err, domain.ErrNotFound) {
					reason = reasonAccountNotFound
				} else {
					logging.FromContext(ctx).Error("failed to verify bank", "error", err)
				}
				return outcome{replies: []string{verificationFailedMessage(reason)}}
			}
			return outcome{
				replies: []string{verifiedBankMessage(v)},
				commit: func(s *domain.Session) error {
					if err := s.Transition(domain.StateBankDetailsConfirmation); err != nil {
						return err
					}
					s.PendingVerification = &v
					return nil
				},
			}
		},
	}
}

func (d *Dispatcher) onBankDetailsConfirmation(ctx context.Context, s *domain.Session, text string) step {
	switch keyword(text) {
	case "yes":
		if s.PendingVerification == nil {
			if err := s.Transition(domain.StateBankDetailsEntry); err != nil {
				return d.abort(ctx, s, err)
			}
			return reply(msgVerificationMissing)
		}
		v := *s.PendingVerification
		return step{
			op: "save_bank",
			effect: func(ctx context.Context, snap domain.Session) outcome {
				return d.saveAndWithdraw(ctx, snap, v)
			},
		}
	case "no":
		if err := s.Transition(domain.StateBankDetailsEntry); err != nil {
			return d.abort(ctx, s, err)
		}
		return reply(msgReenterBankDetails)
	default:
		return reply(msgYesOrReenter)
	}
}

// saveAndWithdraw stores the verified account with the backend and withdraws
// to the identifier the backend assigned it. A verification is never used as
// a withdrawal target directly.
func (d *Dispatcher) saveAndWithdraw(ctx context.Context, snap domain.Session, v domain.BankVerification) outcome {
	log := logging.FromContext(ctx)
	phone := backendPhone(snap.Phone)

	if err := d.backend.SaveBank(ctx, phone, v); err != nil {
		log.Error("failed to save bank", "error", err)
		return outcome{replies: []string{msgSaveBankFailed}}
	}

	banks, err := d.backend.ListSavedBanks(ctx, phone)
	if err != nil {
		log.Error("failed to list saved banks", "error", err)
		return outcome{replies: []string{msgBankLookupFailed}}
	}
	if len(banks) == 0 {
		log.Error("saved bank missing after save", "error", domain.ErrEmptyBankList)
		return outcome{replies: []string{msgSavedBanksEmpty}}
	}

	return d.executeWithdrawal(ctx, snap, banks[0])
}

func (d *Dispatcher) onSavedBankConfirmation(s *domain.Session, text string) step {
	switch keyword(text) {
	case "yes":
		if s.PendingBank == nil {
			s.Clear()
			return reply(msgSavedBankMissing)
		}
		bank := *s.PendingBank
		return step{
			op: "withdraw",
			effect: func(ctx context.Context, snap domain.Session) outcome {
				return d.executeWithdrawal(ctx, snap, bank)
			},
		}
	case "no":
		s.Clear()
		return reply(msgWithdrawalCancelled)
	default:
		return reply(msgYesOrCancel)
	}
}
